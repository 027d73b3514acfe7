package selfx_test

import (
	"context"
	"errors"
	"testing"

	"selfx-go/internal/selfx"
	"selfx-go/internal/testutil"
)

func TestStripeWallet_UpdateCash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.wallet(t, selfx.WalletStripe, "10000")

	updated, err := w.UpdateCash(ctx, cents("25000"))
	if err != nil {
		t.Fatalf("UpdateCash() error = %v", err)
	}
	if !updated.Cash().Equal(cents("25000")) {
		t.Errorf("updated Cash() = %s, want 25000", updated.Cash())
	}
	if !w.Cash().Equal(cents("10000")) {
		t.Errorf("receiver Cash() = %s, want unchanged 10000", w.Cash())
	}
	if updated.Type() != selfx.WalletStripe || updated.Identifier() != "cus_123" || !updated.Active() {
		t.Errorf("updated wallet = %s/%s/%v", updated.Type(), updated.Identifier(), updated.Active())
	}

	stored, err := f.storage.Wallets().OfProject(f.project.ID()).Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if !stored.Cash().Equal(cents("25000")) {
		t.Errorf("stored Cash() = %s, want 25000", stored.Cash())
	}
}

func TestStripeWallet_UpdateCashNegative(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, selfx.WalletStripe, "100")

	if _, err := w.UpdateCash(context.Background(), cents("-1")); !errors.Is(err, selfx.ErrInvalidAmount) {
		t.Errorf("UpdateCash(-1) error = %v, want ErrInvalidAmount", err)
	}
}

func TestStripeWallet_Unsupported(t *testing.T) {
	ctx := context.Background()
	w := selfx.NewStripeWallet(nil, selfx.Project{RepoFullName: "a/b", Provider: selfx.GitHub}, cents("1"), "cus_1", true)

	if _, err := w.Pay(ctx, &selfx.Invoice{ID: "inv-1"}); !errors.Is(err, selfx.ErrUnsupported) {
		t.Errorf("Pay() error = %v, want ErrUnsupported", err)
	}
	if _, err := w.PaymentMethods(ctx); !errors.Is(err, selfx.ErrUnsupported) {
		t.Errorf("PaymentMethods() error = %v, want ErrUnsupported", err)
	}
}

func TestFakeWallet_Pay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.wallet(t, selfx.WalletFake, "1000")
	inv := f.invoice(t, "inv-1", "400")

	clock := testutil.FixedClock()
	w := selfx.NewFakeWallet(f.storage, f.project, cents("1000"), "cus_123", true, clock, testutil.NewStubIDGenerator())

	payment, err := w.Pay(ctx, inv)
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if payment.Status != selfx.PaymentSuccessful || payment.TransactionID != "fake-id-1" {
		t.Errorf("payment = %+v", payment)
	}
	if !payment.PaymentTime.Equal(clock.Now()) {
		t.Errorf("PaymentTime = %v, want %v", payment.PaymentTime, clock.Now())
	}
	if !payment.Value.Equal(cents("400")) {
		t.Errorf("Value = %s, want 400", payment.Value)
	}

	stored, err := f.storage.Wallets().OfProject(f.project.ID()).Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if !stored.Cash().Equal(cents("600")) {
		t.Errorf("Cash() after payment = %s, want 600", stored.Cash())
	}

	payments, err := f.storage.Payments().OfInvoice(ctx, "inv-1")
	if err != nil {
		t.Fatalf("OfInvoice() error = %v", err)
	}
	if !inv.IsPaid(payments) {
		t.Error("invoice should be paid")
	}
}

func TestFakeWallet_PayRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.wallet(t, selfx.WalletFake, "399")
	inv := f.invoice(t, "inv-1", "400")

	t.Run("insufficient stored cash", func(t *testing.T) {
		w := selfx.NewFakeWallet(f.storage, f.project, cents("1000"), "x", true, testutil.FixedClock(), testutil.NewStubIDGenerator())
		if _, err := w.Pay(ctx, inv); !errors.Is(err, selfx.ErrInsufficientCash) {
			t.Errorf("Pay() error = %v, want ErrInsufficientCash", err)
		}
	})

	t.Run("other project", func(t *testing.T) {
		other := selfx.Project{RepoFullName: "other/repo", Provider: selfx.GitHub, Owner: "o"}
		w := selfx.NewFakeWallet(f.storage, other, cents("1000"), "x", true, testutil.FixedClock(), testutil.NewStubIDGenerator())
		if _, err := w.Pay(ctx, inv); !errors.Is(err, selfx.ErrInvalidPayment) {
			t.Errorf("Pay() error = %v, want ErrInvalidPayment", err)
		}
	})

	t.Run("nil invoice", func(t *testing.T) {
		w := selfx.NewFakeWallet(f.storage, f.project, cents("1000"), "x", true, testutil.FixedClock(), testutil.NewStubIDGenerator())
		if _, err := w.Pay(ctx, nil); !errors.Is(err, selfx.ErrInvalidPayment) {
			t.Errorf("Pay(nil) error = %v, want ErrInvalidPayment", err)
		}
	})

	payments, err := f.storage.Payments().OfInvoice(ctx, "inv-1")
	if err != nil {
		t.Fatalf("OfInvoice() error = %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("rejected payments were stored: %v", payments)
	}
}

func TestFakeWallet_PayFromStaleWallets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.wallet(t, selfx.WalletFake, "1000")
	first := f.invoice(t, "inv-1", "400")
	second := f.invoice(t, "inv-2", "400")
	third := f.invoice(t, "inv-3", "400")

	active := f.storage.Wallets().OfProject(f.project.ID())
	w1, err := active.Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	w2, err := active.Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}

	if _, err := w1.Pay(ctx, first); err != nil {
		t.Fatalf("w1.Pay() error = %v", err)
	}
	if _, err := w2.Pay(ctx, second); err != nil {
		t.Fatalf("w2.Pay() error = %v", err)
	}
	stored, err := active.Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if !stored.Cash().Equal(cents("200")) {
		t.Errorf("Cash() after paying 400 twice from 1000 = %s, want 200", stored.Cash())
	}

	// w1 still believes it holds 1000.
	if _, err := w1.Pay(ctx, third); !errors.Is(err, selfx.ErrInsufficientCash) {
		t.Errorf("w1.Pay(third) error = %v, want ErrInsufficientCash", err)
	}
}

func TestFakeWallet_PayRepeated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.wallet(t, selfx.WalletFake, "1000")
	inv := f.invoice(t, "inv-1", "400")

	clock := testutil.FixedClock()
	w := selfx.NewFakeWallet(f.storage, f.project, cents("1000"), "cus_123", true, clock, testutil.NewStubIDGenerator())

	first, err := w.Pay(ctx, inv)
	if err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	again, err := w.Pay(ctx, inv)
	if err != nil {
		t.Fatalf("repeated Pay() error = %v", err)
	}
	if !again.Equal(first) || again.TransactionID != first.TransactionID {
		t.Errorf("repeated Pay() = %+v, want stored %+v", again, first)
	}

	stored, err := f.storage.Wallets().OfProject(f.project.ID()).Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if !stored.Cash().Equal(cents("600")) {
		t.Errorf("Cash() after repeated payment = %s, want 600", stored.Cash())
	}
}

func TestNewWallet(t *testing.T) {
	p := selfx.Project{RepoFullName: "a/b", Provider: selfx.GitHub}
	for _, typ := range []string{selfx.WalletStripe, selfx.WalletFake} {
		w, err := selfx.NewWallet(typ, nil, p, cents("1"), "id", false)
		if err != nil {
			t.Errorf("NewWallet(%s) error = %v", typ, err)
			continue
		}
		if w.Type() != typ {
			t.Errorf("Type() = %s, want %s", w.Type(), typ)
		}
	}
	if _, err := selfx.NewWallet("PAYPAL", nil, p, cents("1"), "id", false); err == nil {
		t.Error("NewWallet(PAYPAL) should fail")
	}
}
