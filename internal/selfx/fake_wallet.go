package selfx

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// FakeWallet is a wallet for trying the platform out. Payments always succeed
// while the cash limit covers the invoice; no money moves.
type FakeWallet struct {
	storage    Storage
	project    Project
	cash       decimal.Decimal
	identifier string
	active     bool
	clock      Clock
	idgen      IDGenerator
}

var _ Wallet = (*FakeWallet)(nil)

// NewFakeWallet creates a FakeWallet. clock and idgen stamp the payments it makes.
func NewFakeWallet(storage Storage, project Project, cash decimal.Decimal, identifier string, active bool, clock Clock, idgen IDGenerator) *FakeWallet {
	return &FakeWallet{
		storage:    storage,
		project:    project,
		cash:       cash,
		identifier: identifier,
		active:     active,
		clock:      clock,
		idgen:      idgen,
	}
}

func (w *FakeWallet) Project() Project      { return w.project }
func (w *FakeWallet) Cash() decimal.Decimal { return w.cash }
func (w *FakeWallet) Type() string          { return WalletFake }
func (w *FakeWallet) Identifier() string    { return w.identifier }
func (w *FakeWallet) Active() bool          { return w.active }

func (w *FakeWallet) UpdateCash(ctx context.Context, cash decimal.Decimal) (Wallet, error) {
	if err := validateCash(cash); err != nil {
		return nil, err
	}
	return w.storage.Wallets().OfProject(w.project.ID()).UpdateCash(ctx, w, cash)
}

// Pay registers a successful payment for the invoice and lowers the stored
// cash limit by the invoice amount. The storage checks and debits the cash,
// so a stale receiver cannot pay with money already spent.
func (w *FakeWallet) Pay(ctx context.Context, invoice *Invoice) (Payment, error) {
	if invoice == nil {
		return Payment{}, fmt.Errorf("%w: no invoice", ErrInvalidPayment)
	}
	if invoice.Contract.Project != w.project.ID() {
		return Payment{}, fmt.Errorf("%w: invoice %s belongs to %s, not %s",
			ErrInvalidPayment, invoice.ID, invoice.Contract.Project, w.project.ID())
	}

	payment := NewSuccessfulPayment(invoice.ID, "fake-"+w.idgen.New(), w.clock.Now(), invoice.Amount)
	stored, err := w.storage.Wallets().OfProject(w.project.ID()).Debit(ctx, w, payment)
	if err != nil {
		return Payment{}, fmt.Errorf("paying invoice %s of %s: %w", invoice.ID, invoice.Amount, err)
	}
	return stored, nil
}

func (w *FakeWallet) PaymentMethods(context.Context) ([]PaymentMethod, error) {
	return nil, Unsupported("fake wallet has no payment methods")
}
