package selfx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoicedTask is a finished task billed on an invoice.
type InvoicedTask struct {
	IssueID    string
	Estimation int // minutes
	Value      decimal.Decimal
}

// Invoice bills a contract for a set of finished tasks. Amounts are USD cents.
type Invoice struct {
	ID        string
	Contract  ContractID
	CreatedAt time.Time
	Amount    decimal.Decimal
	Tasks     []InvoicedTask
}

// TotalAmount sums the values of the invoiced tasks.
func TotalAmount(tasks []InvoicedTask) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tasks {
		total = total.Add(t.Value)
	}
	return total
}

// IsPaid reports whether one of payments is a successful payment of this invoice.
func (i *Invoice) IsPaid(payments []Payment) bool {
	for _, p := range payments {
		if p.InvoiceID == i.ID && p.Status == PaymentSuccessful {
			return true
		}
	}
	return false
}

// Invoices provides access to stored invoices. A view returned by OfContract
// only sees, and only accepts, invoices of that contract.
type Invoices interface {
	// OfContract returns the invoices of the given contract. The view is lazy:
	// nothing is read until one of its methods is called.
	OfContract(id ContractID) Invoices

	// Active returns the most recent unpaid invoice, or nil if there is none.
	Active(ctx context.Context) (*Invoice, error)

	// GetByID returns the invoice or nil if it does not exist in this view.
	GetByID(ctx context.Context, id string) (*Invoice, error)

	// Register stores a new invoice.
	Register(ctx context.Context, invoice Invoice) (*Invoice, error)

	// All returns the invoices of this view ordered by creation time.
	All(ctx context.Context) ([]Invoice, error)
}

// InvoiceDocument is the archived form of an invoice.
type InvoiceDocument struct {
	ID          string                `json:"id"`
	Project     string                `json:"project"`
	Provider    string                `json:"provider"`
	Contributor string                `json:"contributor"`
	Role        Role                  `json:"role"`
	HourlyRate  string                `json:"hourlyRate,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	Amount      string                `json:"amount"`
	Tasks       []InvoiceDocumentTask `json:"tasks"`
	Payments    []InvoiceDocumentPay  `json:"payments"`
	Paid        bool                  `json:"paid"`
}

type InvoiceDocumentTask struct {
	IssueID    string `json:"issueId"`
	Estimation int    `json:"estimation"`
	Value      string `json:"value"`
}

type InvoiceDocumentPay struct {
	TransactionID string    `json:"transactionId,omitempty"`
	PaymentTime   time.Time `json:"paymentTime"`
	Value         string    `json:"value"`
	Status        string    `json:"status"`
	FailReason    string    `json:"failReason,omitempty"`
}

// NewInvoiceDocument builds the document of an invoice. contract may be nil
// when the contract has been removed since the invoice was emitted.
func NewInvoiceDocument(invoice *Invoice, contract *Contract, payments []Payment) *InvoiceDocument {
	doc := &InvoiceDocument{
		ID:          invoice.ID,
		Project:     invoice.Contract.Project.RepoFullName,
		Provider:    invoice.Contract.Project.Provider,
		Contributor: invoice.Contract.Contributor.Username,
		Role:        invoice.Contract.Role,
		CreatedAt:   invoice.CreatedAt.UTC(),
		Amount:      invoice.Amount.String(),
		Tasks:       make([]InvoiceDocumentTask, 0, len(invoice.Tasks)),
		Payments:    make([]InvoiceDocumentPay, 0, len(payments)),
		Paid:        invoice.IsPaid(payments),
	}
	if contract != nil {
		doc.HourlyRate = contract.HourlyRate().String()
	}
	for _, t := range invoice.Tasks {
		doc.Tasks = append(doc.Tasks, InvoiceDocumentTask{
			IssueID:    t.IssueID,
			Estimation: t.Estimation,
			Value:      t.Value.String(),
		})
	}
	for _, p := range payments {
		doc.Payments = append(doc.Payments, InvoiceDocumentPay{
			TransactionID: p.TransactionID,
			PaymentTime:   p.PaymentTime.UTC(),
			Value:         p.Value.String(),
			Status:        string(p.Status),
			FailReason:    p.FailReason,
		})
	}
	return doc
}

// Marshal renders the document as indented JSON.
func (d *InvoiceDocument) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling invoice document: %w", err)
	}
	return data, nil
}

// ParseInvoiceDocument reads a document produced by Marshal.
func ParseInvoiceDocument(data []byte) (*InvoiceDocument, error) {
	var doc InvoiceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing invoice document: %w", err)
	}
	return &doc, nil
}
