package selfx

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the outcome of a payment attempt.
type PaymentStatus string

const (
	PaymentSuccessful PaymentStatus = "SUCCESSFUL"
	PaymentFailed     PaymentStatus = "FAILED"
)

// Payment is an attempt to pay an invoice.
//
// Two payments are the same entity when they belong to the same invoice and
// were made at the same instant, whatever their value or status. Use Equal or
// Key rather than ==.
type Payment struct {
	InvoiceID     string
	TransactionID string // required when Status is PaymentSuccessful
	PaymentTime   time.Time
	Value         decimal.Decimal
	Status        PaymentStatus
	FailReason    string // only set when Status is PaymentFailed
}

// PaymentKey is the comparable identity of a payment.
type PaymentKey struct {
	InvoiceID   string
	PaymentTime time.Time // UTC, without monotonic reading
}

// NewSuccessfulPayment builds a successful payment.
func NewSuccessfulPayment(invoiceID, transactionID string, at time.Time, value decimal.Decimal) Payment {
	return Payment{
		InvoiceID:     invoiceID,
		TransactionID: transactionID,
		PaymentTime:   at,
		Value:         value,
		Status:        PaymentSuccessful,
	}
}

// NewFailedPayment builds a failed payment.
func NewFailedPayment(invoiceID string, at time.Time, value decimal.Decimal, reason string) Payment {
	return Payment{
		InvoiceID:   invoiceID,
		PaymentTime: at,
		Value:       value,
		Status:      PaymentFailed,
		FailReason:  reason,
	}
}

// Key returns the payment's identity.
func (p Payment) Key() PaymentKey {
	return PaymentKey{InvoiceID: p.InvoiceID, PaymentTime: p.PaymentTime.UTC().Round(0)}
}

// Equal reports whether p and other identify the same payment.
func (p Payment) Equal(other Payment) bool {
	return p.InvoiceID == other.InvoiceID && p.PaymentTime.Equal(other.PaymentTime)
}

// Validate checks the status-dependent fields.
func (p Payment) Validate() error {
	if p.InvoiceID == "" {
		return fmt.Errorf("%w: invoice id is required", ErrInvalidPayment)
	}
	if p.PaymentTime.IsZero() {
		return fmt.Errorf("%w: payment time is required", ErrInvalidPayment)
	}
	if p.Value.IsNegative() {
		return fmt.Errorf("payment value %s: %w", p.Value, ErrInvalidAmount)
	}
	switch p.Status {
	case PaymentSuccessful:
		if p.TransactionID == "" {
			return fmt.Errorf("%w: successful payment needs a transaction id", ErrInvalidPayment)
		}
		if p.FailReason != "" {
			return fmt.Errorf("%w: successful payment cannot have a fail reason", ErrInvalidPayment)
		}
	case PaymentFailed:
		if p.FailReason == "" {
			return fmt.Errorf("%w: failed payment needs a reason", ErrInvalidPayment)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPayment, p.Status)
	}
	return nil
}

// Payments provides access to stored payments.
type Payments interface {
	// OfInvoice returns the payments of an invoice ordered by payment time.
	OfInvoice(ctx context.Context, invoiceID string) ([]Payment, error)

	// Register stores a payment. Registering a payment whose identity is
	// already stored returns the stored payment unchanged.
	Register(ctx context.Context, payment Payment) (Payment, error)

	// All returns every stored payment.
	All(ctx context.Context) ([]Payment, error)
}
