package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"selfx-go/internal/selfx"
)

// wallets is the wallet collection, optionally scoped to one project.
type wallets struct {
	s       *Storage
	project *selfx.ProjectID
}

const selectWallets = `SELECT w.repo_full_name, w.provider, p.owner, w.type, w.identifier, w.cash, w.active
	FROM wallets w
	JOIN projects p ON p.repo_full_name = w.repo_full_name AND p.provider = w.provider`

func (w *wallets) OfProject(project selfx.ProjectID) selfx.Wallets {
	return &wallets{s: w.s, project: &project}
}

func (w *wallets) where(extra string, extraArgs ...any) (string, []any) {
	if w.project == nil {
		if extra == "" {
			return "", extraArgs
		}
		return " WHERE " + extra, extraArgs
	}
	clause := " WHERE w.repo_full_name = ? AND w.provider = ?"
	args := []any{w.project.RepoFullName, w.project.Provider}
	if extra != "" {
		clause += " AND " + extra
	}
	return clause, append(args, extraArgs...)
}

func (w *wallets) checkScope(project selfx.ProjectID) error {
	if w.project != nil && *w.project != project {
		return fmt.Errorf("wallet of %s used through the wallets of %s", project, *w.project)
	}
	return nil
}

// Active returns the active wallet of the view. Without a project scope it
// returns the first active wallet found.
func (w *wallets) Active(ctx context.Context) (selfx.Wallet, error) {
	where, args := w.where("w.active = 1")
	return w.one(ctx, selectWallets+where+` ORDER BY w.provider, w.repo_full_name LIMIT 1`, args...)
}

func (w *wallets) All(ctx context.Context) ([]selfx.Wallet, error) {
	where, args := w.where("")
	rows, err := w.s.query(ctx, w.s.db, selectWallets+where+` ORDER BY w.provider, w.repo_full_name, w.type`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	defer rows.Close()

	var out []selfx.Wallet
	for rows.Next() {
		wallet, err := w.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}
		out = append(out, wallet)
	}
	return out, rows.Err()
}

func (w *wallets) Register(ctx context.Context, project selfx.Project, walletType string, cash decimal.Decimal, identifier string) (selfx.Wallet, error) {
	if err := w.checkScope(project.ID()); err != nil {
		return nil, err
	}
	if cash.IsNegative() {
		return nil, fmt.Errorf("cash %s: %w", cash, selfx.ErrInvalidAmount)
	}
	wallet, err := selfx.NewWallet(walletType, w.s, project, cash, identifier, false)
	if err != nil {
		return nil, err
	}
	_, err = w.s.exec(ctx, w.s.db,
		`INSERT INTO wallets (repo_full_name, provider, type, identifier, cash, active) VALUES (?, ?, ?, ?, ?, 0)`,
		project.RepoFullName, project.Provider, walletType, identifier, cash.String())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s wallet of %s: %w", walletType, project.ID(), selfx.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("inserting wallet: %w", err)
	}
	return wallet, nil
}

// UpdateCash writes the new cash limit and reads the wallet back. The wallet
// argument is left as it was.
func (w *wallets) UpdateCash(ctx context.Context, wallet selfx.Wallet, cash decimal.Decimal) (selfx.Wallet, error) {
	project := wallet.Project().ID()
	if err := w.checkScope(project); err != nil {
		return nil, err
	}
	if cash.IsNegative() {
		return nil, fmt.Errorf("cash %s: %w", cash, selfx.ErrInvalidAmount)
	}
	res, err := w.s.exec(ctx, w.s.db,
		`UPDATE wallets SET cash = ? WHERE repo_full_name = ? AND provider = ? AND type = ?`,
		cash.String(), project.RepoFullName, project.Provider, wallet.Type())
	if err != nil {
		return nil, fmt.Errorf("updating wallet cash: %w", err)
	}
	if err := checkAffected(res, wallet.Type()+" wallet of "+project.String()); err != nil {
		return nil, err
	}
	return w.get(ctx, project, wallet.Type())
}

// errCashMoved means the stored cash changed between reading and debiting it.
var errCashMoved = errors.New("wallet cash changed concurrently")

const debitAttempts = 5

// Debit inserts the payment and moves the stored cash down by its value in
// one transaction. The cash update is conditional on the value read inside
// the transaction, so a concurrent debit makes this one retry instead of
// overwriting it.
func (w *wallets) Debit(ctx context.Context, wallet selfx.Wallet, payment selfx.Payment) (selfx.Payment, error) {
	project := wallet.Project().ID()
	if err := w.checkScope(project); err != nil {
		return selfx.Payment{}, err
	}
	if err := payment.Validate(); err != nil {
		return selfx.Payment{}, err
	}
	if payment.Status != selfx.PaymentSuccessful {
		return selfx.Payment{}, fmt.Errorf("%w: only successful payments debit a wallet", selfx.ErrInvalidPayment)
	}

	var err error
	for attempt := 0; attempt < debitAttempts; attempt++ {
		var stored selfx.Payment
		stored, err = w.debit(ctx, project, wallet.Type(), payment)
		if !errors.Is(err, errCashMoved) {
			return stored, err
		}
	}
	return selfx.Payment{}, fmt.Errorf("debiting %s wallet of %s: %w", wallet.Type(), project, err)
}

func (w *wallets) debit(ctx context.Context, project selfx.ProjectID, walletType string, payment selfx.Payment) (selfx.Payment, error) {
	what := walletType + " wallet of " + project.String()
	at := formatTime(payment.PaymentTime)
	var stored *selfx.Payment
	err := w.s.withTx(ctx, func(tx *sql.Tx) error {
		var stock string
		err := w.s.queryRow(ctx, tx,
			`SELECT cash FROM wallets WHERE repo_full_name = ? AND provider = ? AND type = ?`,
			project.RepoFullName, project.Provider, walletType).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", what, selfx.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading wallet cash: %w", err)
		}
		cash, err := parseDecimal(stock)
		if err != nil {
			return err
		}

		res, err := w.s.exec(ctx, tx,
			`INSERT INTO payments (invoice_id, payment_time, transaction_id, value, status, fail_reason)
			VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (invoice_id, payment_time) DO NOTHING`,
			payment.InvoiceID, at, payment.TransactionID, payment.Value.String(),
			string(payment.Status), payment.FailReason)
		if err != nil {
			return fmt.Errorf("inserting payment: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("counting affected rows: %w", err)
		}

		// Only a newly stored payment moves cash.
		if inserted == 1 {
			var paid int
			if err := w.s.queryRow(ctx, tx,
				`SELECT COUNT(*) FROM payments WHERE invoice_id = ? AND status = ? AND payment_time <> ?`,
				payment.InvoiceID, string(selfx.PaymentSuccessful), at).Scan(&paid); err != nil {
				return fmt.Errorf("counting invoice payments: %w", err)
			}
			if paid > 0 {
				return fmt.Errorf("%w: invoice %s is already paid", selfx.ErrInvalidPayment, payment.InvoiceID)
			}
			if cash.LessThan(payment.Value) {
				return fmt.Errorf("paying %s with %s: %w", payment.Value, cash, selfx.ErrInsufficientCash)
			}
			res, err := w.s.exec(ctx, tx,
				`UPDATE wallets SET cash = ? WHERE repo_full_name = ? AND provider = ? AND type = ? AND cash = ?`,
				cash.Sub(payment.Value).String(), project.RepoFullName, project.Provider, walletType, stock)
			if err != nil {
				return fmt.Errorf("debiting wallet cash: %w", err)
			}
			if err := checkAffected(res, what); err != nil {
				if errors.Is(err, selfx.ErrNotFound) {
					return errCashMoved
				}
				return err
			}
		}

		stored, err = scanPayment(w.s.queryRow(ctx, tx,
			selectPayments+` WHERE invoice_id = ? AND payment_time = ?`, payment.InvoiceID, at))
		if err != nil {
			return fmt.Errorf("reading payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return selfx.Payment{}, err
	}
	return *stored, nil
}

// Activate deactivates the other wallets of the project and activates wallet.
func (w *wallets) Activate(ctx context.Context, wallet selfx.Wallet) (selfx.Wallet, error) {
	project := wallet.Project().ID()
	if err := w.checkScope(project); err != nil {
		return nil, err
	}
	err := w.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := w.s.exec(ctx, tx,
			`UPDATE wallets SET active = 0 WHERE repo_full_name = ? AND provider = ?`,
			project.RepoFullName, project.Provider); err != nil {
			return fmt.Errorf("deactivating wallets: %w", err)
		}
		res, err := w.s.exec(ctx, tx,
			`UPDATE wallets SET active = 1 WHERE repo_full_name = ? AND provider = ? AND type = ?`,
			project.RepoFullName, project.Provider, wallet.Type())
		if err != nil {
			return fmt.Errorf("activating wallet: %w", err)
		}
		return checkAffected(res, wallet.Type()+" wallet of "+project.String())
	})
	if err != nil {
		return nil, err
	}
	return w.get(ctx, project, wallet.Type())
}

func (w *wallets) get(ctx context.Context, project selfx.ProjectID, walletType string) (selfx.Wallet, error) {
	wallet, err := w.one(ctx, selectWallets+` WHERE w.repo_full_name = ? AND w.provider = ? AND w.type = ?`,
		project.RepoFullName, project.Provider, walletType)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("%s wallet of %s: %w", walletType, project, selfx.ErrNotFound)
	}
	return wallet, nil
}

func (w *wallets) one(ctx context.Context, query string, args ...any) (selfx.Wallet, error) {
	wallet, err := w.scan(w.s.queryRow(ctx, w.s.db, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding wallet: %w", err)
	}
	return wallet, nil
}

func (w *wallets) scan(row rowScanner) (selfx.Wallet, error) {
	var (
		project    selfx.Project
		walletType string
		identifier string
		cash       string
		active     int
	)
	if err := row.Scan(&project.RepoFullName, &project.Provider, &project.Owner, &walletType, &identifier, &cash, &active); err != nil {
		return nil, err
	}
	amount, err := parseDecimal(cash)
	if err != nil {
		return nil, err
	}
	return selfx.NewWallet(walletType, w.s, project, amount, identifier, active == 1)
}
