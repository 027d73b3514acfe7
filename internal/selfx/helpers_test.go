package selfx_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"selfx-go/internal/database"
	"selfx-go/internal/selfx"
	"selfx-go/internal/testutil"
)

var cents = decimal.RequireFromString

// fixture is a storage holding one project, one contributor and their contract.
type fixture struct {
	storage  *database.Storage
	project  selfx.Project
	contract *selfx.Contract
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewTestStorage(t)

	project, err := s.Projects().Register(ctx, selfx.Project{RepoFullName: "amihaiemil/docker-java-api", Provider: selfx.GitHub, Owner: "amihaiemil"})
	if err != nil {
		t.Fatalf("Register(project) error = %v", err)
	}
	contributor, err := s.Contributors().Register(ctx, "mihai", selfx.GitHub)
	if err != nil {
		t.Fatalf("Register(contributor) error = %v", err)
	}
	contract, err := s.Contracts().Register(ctx, project, contributor, cents("2500"), selfx.RoleDeveloper)
	if err != nil {
		t.Fatalf("Register(contract) error = %v", err)
	}
	return &fixture{storage: s, project: project, contract: contract}
}

// wallet registers and activates a wallet of the fixture project.
func (f *fixture) wallet(t *testing.T, walletType string, cash string) selfx.Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := f.storage.Wallets().Register(ctx, f.project, walletType, cents(cash), "cus_123")
	if err != nil {
		t.Fatalf("Register(wallet) error = %v", err)
	}
	w, err = f.storage.Wallets().Activate(ctx, w)
	if err != nil {
		t.Fatalf("Activate(wallet) error = %v", err)
	}
	return w
}

// invoice registers an invoice of the fixture contract.
func (f *fixture) invoice(t *testing.T, id string, amount string) *selfx.Invoice {
	t.Helper()
	inv, err := f.contract.Invoices().Register(context.Background(), selfx.Invoice{
		ID:       id,
		Contract: f.contract.ID(),
		Amount:   cents(amount),
		Tasks:    []selfx.InvoicedTask{{IssueID: "42", Estimation: 60, Value: cents(amount)}},
	})
	if err != nil {
		t.Fatalf("Register(invoice) error = %v", err)
	}
	return inv
}
