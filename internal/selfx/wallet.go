package selfx

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Wallet types.
const (
	WalletStripe = "STRIPE"
	WalletFake   = "FAKE"
)

// Wallet is a project's funding source. Cash is the spending limit in USD
// cents.
//
// A Wallet is a snapshot: UpdateCash goes through the storage and returns a new
// value, so callers must drop the receiver once they issued an update.
type Wallet interface {
	Project() Project
	Cash() decimal.Decimal
	Type() string
	Identifier() string
	Active() bool

	// UpdateCash sets the cash limit and returns the stored wallet.
	UpdateCash(ctx context.Context, cash decimal.Decimal) (Wallet, error)

	// Pay pays the invoice from this wallet.
	Pay(ctx context.Context, invoice *Invoice) (Payment, error)

	// PaymentMethods returns the payment methods registered with this wallet.
	PaymentMethods(ctx context.Context) ([]PaymentMethod, error)
}

// PaymentMethod is a card or account attached to a wallet at the payment processor.
type PaymentMethod struct {
	Identifier string
	Active     bool
}

// Wallets provides access to stored wallets.
type Wallets interface {
	// OfProject returns the wallets of the given project.
	OfProject(project ProjectID) Wallets

	// Active returns the active wallet of this view, or nil if none is active.
	Active(ctx context.Context) (Wallet, error)

	// Register stores a new, inactive wallet.
	Register(ctx context.Context, project Project, walletType string, cash decimal.Decimal, identifier string) (Wallet, error)

	// UpdateCash stores the new cash limit of wallet and returns the updated value.
	// The wallet argument is not modified.
	UpdateCash(ctx context.Context, wallet Wallet, cash decimal.Decimal) (Wallet, error)

	// Debit stores payment and lowers the stored cash of wallet by its value
	// in one transaction. The check runs against the stored cash, never the
	// wallet value passed in. A payment already stored under the same identity
	// is returned without a second debit. Fails with ErrInsufficientCash when
	// the stored cash does not cover the payment and with ErrInvalidPayment
	// when the invoice already has another successful payment.
	Debit(ctx context.Context, wallet Wallet, payment Payment) (Payment, error)

	// Activate makes wallet the only active wallet of its project.
	Activate(ctx context.Context, wallet Wallet) (Wallet, error)

	// All returns every wallet of this view.
	All(ctx context.Context) ([]Wallet, error)
}

// NewWallet builds the Wallet implementation for walletType.
func NewWallet(walletType string, storage Storage, project Project, cash decimal.Decimal, identifier string, active bool) (Wallet, error) {
	switch walletType {
	case WalletStripe:
		return NewStripeWallet(storage, project, cash, identifier, active), nil
	case WalletFake:
		return NewFakeWallet(storage, project, cash, identifier, active, RealClock{}, UUIDGenerator{}), nil
	default:
		return nil, fmt.Errorf("unknown wallet type: %s", walletType)
	}
}

func validateCash(cash decimal.Decimal) error {
	if cash.IsNegative() {
		return fmt.Errorf("cash %s: %w", cash, ErrInvalidAmount)
	}
	return nil
}
