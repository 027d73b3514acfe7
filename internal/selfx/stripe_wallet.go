package selfx

import (
	"context"

	"github.com/shopspring/decimal"
)

// StripeWallet is a wallet backed by a Stripe customer.
type StripeWallet struct {
	storage    Storage
	project    Project
	cash       decimal.Decimal
	identifier string
	active     bool
}

var _ Wallet = (*StripeWallet)(nil)

// NewStripeWallet creates a StripeWallet. identifier is the Stripe customer id.
func NewStripeWallet(storage Storage, project Project, cash decimal.Decimal, identifier string, active bool) *StripeWallet {
	return &StripeWallet{
		storage:    storage,
		project:    project,
		cash:       cash,
		identifier: identifier,
		active:     active,
	}
}

func (w *StripeWallet) Project() Project      { return w.project }
func (w *StripeWallet) Cash() decimal.Decimal { return w.cash }
func (w *StripeWallet) Type() string          { return WalletStripe }
func (w *StripeWallet) Identifier() string    { return w.identifier }
func (w *StripeWallet) Active() bool          { return w.active }

// UpdateCash delegates to the project's wallets in storage.
func (w *StripeWallet) UpdateCash(ctx context.Context, cash decimal.Decimal) (Wallet, error) {
	if err := validateCash(cash); err != nil {
		return nil, err
	}
	return w.storage.Wallets().OfProject(w.project.ID()).UpdateCash(ctx, w, cash)
}

// Pay is not supported yet.
func (w *StripeWallet) Pay(context.Context, *Invoice) (Payment, error) {
	return Payment{}, Unsupported("stripe wallet: pay")
}

// PaymentMethods is not supported yet.
func (w *StripeWallet) PaymentMethods(context.Context) ([]PaymentMethod, error) {
	return nil, Unsupported("stripe wallet: payment methods")
}
