package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"selfx-go/internal/selfx"
)

// invoices is the invoice collection, optionally scoped to one contract.
type invoices struct {
	s        *Storage
	contract *selfx.ContractID
}

const selectInvoices = `SELECT i.id, i.repo_full_name, i.provider, i.username, i.role, i.created_at, i.amount
	FROM invoices i`

func (i *invoices) OfContract(id selfx.ContractID) selfx.Invoices {
	return &invoices{s: i.s, contract: &id}
}

// scope returns the WHERE conditions restricting the view, joined with extra.
func (i *invoices) scope(extra ...string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if i.contract != nil {
		conds = append(conds, "i.repo_full_name = ?", "i.provider = ?", "i.username = ?", "i.role = ?")
		args = append(args, i.contract.Project.RepoFullName, i.contract.Project.Provider,
			i.contract.Contributor.Username, string(i.contract.Role))
	}
	conds = append(conds, extra...)
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (i *invoices) All(ctx context.Context) ([]selfx.Invoice, error) {
	where, args := i.scope()
	rows, err := i.s.query(ctx, i.s.db, selectInvoices+where+` ORDER BY i.created_at, i.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	var out []selfx.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}
		out = append(out, *invoice)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}

	for k := range out {
		tasks, err := i.tasksOf(ctx, out[k].ID)
		if err != nil {
			return nil, err
		}
		out[k].Tasks = tasks
	}
	return out, nil
}

func (i *invoices) Active(ctx context.Context) (*selfx.Invoice, error) {
	where, args := i.scope(`NOT EXISTS (SELECT 1 FROM payments p WHERE p.invoice_id = i.id AND p.status = ?)`)
	args = append(args, string(selfx.PaymentSuccessful))
	return i.one(ctx, selectInvoices+where+` ORDER BY i.created_at DESC, i.id DESC LIMIT 1`, args...)
}

func (i *invoices) GetByID(ctx context.Context, id string) (*selfx.Invoice, error) {
	where, args := i.scope("i.id = ?")
	args = append(args, id)
	return i.one(ctx, selectInvoices+where, args...)
}

// Register stores the invoice and its tasks. A contract-scoped view only
// accepts invoices of its contract.
func (i *invoices) Register(ctx context.Context, invoice selfx.Invoice) (*selfx.Invoice, error) {
	if i.contract != nil && invoice.Contract != *i.contract {
		return nil, fmt.Errorf("invoice of contract %s registered on contract %s", invoice.Contract, *i.contract)
	}
	if invoice.ID == "" {
		return nil, fmt.Errorf("invoice id is required")
	}
	if invoice.Amount.IsNegative() {
		return nil, fmt.Errorf("invoice amount %s: %w", invoice.Amount, selfx.ErrInvalidAmount)
	}
	contract, err := (&contracts{s: i.s}).FindByID(ctx, invoice.Contract)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, fmt.Errorf("contract %s: %w", invoice.Contract, selfx.ErrNotFound)
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = i.s.clock.Now()
	}

	err = i.s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := i.s.exec(ctx, tx,
			`INSERT INTO invoices (id, repo_full_name, provider, username, role, created_at, amount)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			invoice.ID, invoice.Contract.Project.RepoFullName, invoice.Contract.Project.Provider,
			invoice.Contract.Contributor.Username, string(invoice.Contract.Role),
			formatTime(invoice.CreatedAt), invoice.Amount.String())
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("invoice %s: %w", invoice.ID, selfx.ErrAlreadyExists)
			}
			return fmt.Errorf("inserting invoice: %w", err)
		}
		for pos, t := range invoice.Tasks {
			_, err := i.s.exec(ctx, tx,
				`INSERT INTO invoiced_tasks (invoice_id, position, issue_id, estimation, value) VALUES (?, ?, ?, ?, ?)`,
				invoice.ID, pos, t.IssueID, t.Estimation, t.Value.String())
			if err != nil {
				return fmt.Errorf("inserting invoiced task %s: %w", t.IssueID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return i.GetByID(ctx, invoice.ID)
}

func (i *invoices) one(ctx context.Context, query string, args ...any) (*selfx.Invoice, error) {
	invoice, err := scanInvoice(i.s.queryRow(ctx, i.s.db, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding invoice: %w", err)
	}
	tasks, err := i.tasksOf(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Tasks = tasks
	return invoice, nil
}

func (i *invoices) tasksOf(ctx context.Context, invoiceID string) ([]selfx.InvoicedTask, error) {
	rows, err := i.s.query(ctx, i.s.db,
		`SELECT issue_id, estimation, value FROM invoiced_tasks WHERE invoice_id = ? ORDER BY position`,
		invoiceID)
	if err != nil {
		return nil, fmt.Errorf("listing invoiced tasks: %w", err)
	}
	defer rows.Close()

	var out []selfx.InvoicedTask
	for rows.Next() {
		var (
			t     selfx.InvoicedTask
			value string
		)
		if err := rows.Scan(&t.IssueID, &t.Estimation, &value); err != nil {
			return nil, fmt.Errorf("scanning invoiced task: %w", err)
		}
		if t.Value, err = parseDecimal(value); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanInvoice(row rowScanner) (*selfx.Invoice, error) {
	var (
		invoice   selfx.Invoice
		role      string
		createdAt string
		amount    string
	)
	err := row.Scan(&invoice.ID, &invoice.Contract.Project.RepoFullName, &invoice.Contract.Project.Provider,
		&invoice.Contract.Contributor.Username, &role, &createdAt, &amount)
	if err != nil {
		return nil, err
	}
	invoice.Contract.Contributor.Provider = invoice.Contract.Project.Provider
	invoice.Contract.Role = selfx.Role(role)
	if invoice.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if invoice.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	return &invoice, nil
}

type payments struct {
	s *Storage
}

const selectPayments = `SELECT invoice_id, payment_time, transaction_id, value, status, fail_reason FROM payments`

func (p *payments) OfInvoice(ctx context.Context, invoiceID string) ([]selfx.Payment, error) {
	return p.list(ctx, selectPayments+` WHERE invoice_id = ? ORDER BY payment_time`, invoiceID)
}

func (p *payments) All(ctx context.Context) ([]selfx.Payment, error) {
	return p.list(ctx, selectPayments+` ORDER BY invoice_id, payment_time`)
}

// Register inserts the payment. A payment with the same invoice and time is
// the same payment; the stored one is returned unchanged.
func (p *payments) Register(ctx context.Context, payment selfx.Payment) (selfx.Payment, error) {
	if err := payment.Validate(); err != nil {
		return selfx.Payment{}, err
	}
	at := formatTime(payment.PaymentTime)
	_, err := p.s.exec(ctx, p.s.db,
		`INSERT INTO payments (invoice_id, payment_time, transaction_id, value, status, fail_reason)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (invoice_id, payment_time) DO NOTHING`,
		payment.InvoiceID, at, payment.TransactionID, payment.Value.String(),
		string(payment.Status), payment.FailReason)
	if err != nil {
		return selfx.Payment{}, fmt.Errorf("inserting payment: %w", err)
	}

	stored, err := scanPayment(p.s.queryRow(ctx, p.s.db,
		selectPayments+` WHERE invoice_id = ? AND payment_time = ?`, payment.InvoiceID, at))
	if err != nil {
		return selfx.Payment{}, fmt.Errorf("reading payment: %w", err)
	}
	return *stored, nil
}

func (p *payments) list(ctx context.Context, query string, args ...any) ([]selfx.Payment, error) {
	rows, err := p.s.query(ctx, p.s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var out []selfx.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		out = append(out, *payment)
	}
	return out, rows.Err()
}

func scanPayment(row rowScanner) (*selfx.Payment, error) {
	var (
		payment selfx.Payment
		at      string
		value   string
		status  string
	)
	err := row.Scan(&payment.InvoiceID, &at, &payment.TransactionID, &value, &status, &payment.FailReason)
	if err != nil {
		return nil, err
	}
	payment.Status = selfx.PaymentStatus(status)
	if payment.PaymentTime, err = parseTime(at); err != nil {
		return nil, err
	}
	if payment.Value, err = parseDecimal(value); err != nil {
		return nil, err
	}
	return &payment, nil
}
