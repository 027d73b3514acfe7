package selfx

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SelfService is the orchestration layer that coordinates storage, providers
// and the invoice archive for the CLI.
type SelfService struct {
	storage   Storage
	providers map[string]Provider
	archive   InvoiceArchive
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewSelfService creates a new SelfService. archive and encryptor may be nil
// when invoice archiving is not configured.
func NewSelfService(storage Storage, providers []Provider, archive InvoiceArchive, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *SelfService {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &SelfService{
		storage:   storage,
		providers: byName,
		archive:   archive,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

func (s *SelfService) commits(project ProjectID) (Commits, error) {
	p, ok := s.providers[project.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", project.Provider)
	}
	return p.Commits(project.RepoFullName), nil
}

// Commit returns the commit ref of the project's repository, or nil when the
// provider does not know it.
func (s *SelfService) Commit(ctx context.Context, project ProjectID, ref string) (Commit, error) {
	commits, err := s.commits(project)
	if err != nil {
		return nil, err
	}
	commit, err := commits.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("getting commit %s of %s: %w", ref, project, err)
	}
	return commit, nil
}

// LatestCommit returns the most recent commit of the project's repository.
func (s *SelfService) LatestCommit(ctx context.Context, project ProjectID) (Commit, error) {
	commits, err := s.commits(project)
	if err != nil {
		return nil, err
	}
	commit, err := commits.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting latest commit of %s: %w", project, err)
	}
	return commit, nil
}

// RegisterContract registers username as a contributor of the project and
// binds them with a contract.
func (s *SelfService) RegisterContract(ctx context.Context, projectID ProjectID, username string, hourlyRate decimal.Decimal, role Role) (*Contract, error) {
	if hourlyRate.IsNegative() {
		return nil, fmt.Errorf("hourly rate %s: %w", hourlyRate, ErrInvalidAmount)
	}
	project, err := s.storage.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("finding project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	contributor, err := s.storage.Contributors().Register(ctx, username, projectID.Provider)
	if err != nil {
		return nil, fmt.Errorf("registering contributor: %w", err)
	}
	contract, err := s.storage.Contracts().Register(ctx, *project, contributor, hourlyRate, role)
	if err != nil {
		return nil, fmt.Errorf("registering contract: %w", err)
	}

	s.logger.Info("contract registered", "contract", contract.ID().String(), "rate", hourlyRate.String())
	return contract, nil
}

func (s *SelfService) contract(ctx context.Context, id ContractID) (*Contract, error) {
	contract, err := s.storage.Contracts().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding contract: %w", err)
	}
	if contract == nil {
		return nil, fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	return contract, nil
}

// ContractInvoices returns the invoices of a contract.
func (s *SelfService) ContractInvoices(ctx context.Context, id ContractID) ([]Invoice, error) {
	contract, err := s.contract(ctx, id)
	if err != nil {
		return nil, err
	}
	invoices, err := contract.Invoices().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return invoices, nil
}

// EmitInvoice registers an invoice for the given finished tasks of a contract.
func (s *SelfService) EmitInvoice(ctx context.Context, id ContractID, tasks []InvoicedTask) (*Invoice, error) {
	contract, err := s.contract(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice := Invoice{
		ID:        s.idgen.New(),
		Contract:  contract.ID(),
		CreatedAt: s.clock.Now(),
		Amount:    TotalAmount(tasks),
		Tasks:     tasks,
	}
	stored, err := contract.Invoices().Register(ctx, invoice)
	if err != nil {
		return nil, fmt.Errorf("registering invoice: %w", err)
	}

	s.logger.Info("invoice emitted", "invoice", stored.ID, "contract", id.String(), "amount", stored.Amount.String())
	return stored, nil
}

// ContributorTasks returns the view of the tasks assigned to username at provider.
func (s *SelfService) ContributorTasks(ctx context.Context, username, provider string) (*ContributorTasks, error) {
	all, err := s.storage.Tasks().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	var assigned []Task
	for _, t := range all {
		if t.AssignedTo(username, provider) {
			assigned = append(assigned, t)
		}
	}
	return NewContributorTasks(username, provider, assigned, s.storage), nil
}

func (s *SelfService) activeWallet(ctx context.Context, project ProjectID) (Wallet, error) {
	wallet, err := s.storage.Wallets().OfProject(project).Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding active wallet: %w", err)
	}
	if wallet == nil {
		return nil, fmt.Errorf("active wallet of %s: %w", project, ErrNotFound)
	}
	return wallet, nil
}

// UpdateWalletCash sets the cash limit of the project's active wallet.
func (s *SelfService) UpdateWalletCash(ctx context.Context, project ProjectID, cash decimal.Decimal) (Wallet, error) {
	wallet, err := s.activeWallet(ctx, project)
	if err != nil {
		return nil, err
	}
	updated, err := wallet.UpdateCash(ctx, cash)
	if err != nil {
		return nil, fmt.Errorf("updating cash: %w", err)
	}

	s.logger.Info("wallet cash updated", "project", project.String(), "from", wallet.Cash().String(), "to", updated.Cash().String())
	return updated, nil
}

// PayInvoice pays an invoice from the active wallet of its project. A payment
// refused for lack of cash is recorded as failed.
func (s *SelfService) PayInvoice(ctx context.Context, invoiceID string) (Payment, error) {
	invoice, err := s.storage.Invoices().GetByID(ctx, invoiceID)
	if err != nil {
		return Payment{}, fmt.Errorf("finding invoice: %w", err)
	}
	if invoice == nil {
		return Payment{}, fmt.Errorf("invoice %s: %w", invoiceID, ErrNotFound)
	}
	payments, err := s.storage.Payments().OfInvoice(ctx, invoiceID)
	if err != nil {
		return Payment{}, fmt.Errorf("listing payments: %w", err)
	}
	if invoice.IsPaid(payments) {
		return Payment{}, fmt.Errorf("%w: invoice %s is already paid", ErrInvalidPayment, invoiceID)
	}

	wallet, err := s.activeWallet(ctx, invoice.Contract.Project)
	if err != nil {
		return Payment{}, err
	}
	payment, err := wallet.Pay(ctx, invoice)
	if errors.Is(err, ErrInsufficientCash) {
		failed := NewFailedPayment(invoiceID, s.clock.Now(), invoice.Amount, err.Error())
		if _, regErr := s.storage.Payments().Register(ctx, failed); regErr != nil {
			return Payment{}, fmt.Errorf("registering failed payment: %w", regErr)
		}
		s.logger.Warn("invoice payment failed", "invoice", invoiceID, "reason", err.Error())
	}
	if err != nil {
		return Payment{}, fmt.Errorf("paying invoice %s: %w", invoiceID, err)
	}

	s.logger.Info("invoice paid", "invoice", invoiceID, "transaction", payment.TransactionID, "wallet", wallet.Type())
	return payment, nil
}

// ArchiveInvoice renders the invoice document and stores it in the archive,
// encrypted when an encryptor is configured.
func (s *SelfService) ArchiveInvoice(ctx context.Context, invoiceID string) error {
	if s.archive == nil {
		return fmt.Errorf("no invoice archive configured")
	}
	invoice, err := s.storage.Invoices().GetByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("finding invoice: %w", err)
	}
	if invoice == nil {
		return fmt.Errorf("invoice %s: %w", invoiceID, ErrNotFound)
	}
	contract, err := s.storage.Contracts().FindByID(ctx, invoice.Contract)
	if err != nil {
		return fmt.Errorf("finding contract: %w", err)
	}
	payments, err := s.storage.Payments().OfInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("listing payments: %w", err)
	}

	data, err := NewInvoiceDocument(invoice, contract, payments).Marshal()
	if err != nil {
		return err
	}
	if s.encryptor != nil {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return fmt.Errorf("encrypting invoice document: %w", err)
		}
		data = buf.Bytes()
	}
	if err := s.archive.PutInvoice(ctx, invoiceID, bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("archiving invoice: %w", err)
	}

	s.logger.Info("invoice archived", "invoice", invoiceID, "size", len(data))
	return nil
}

// ReadArchivedInvoice fetches an archived invoice document. dctx is required
// when documents are encrypted.
func (s *SelfService) ReadArchivedInvoice(ctx context.Context, invoiceID string, dctx DecryptionContext) (*InvoiceDocument, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("no invoice archive configured")
	}
	var buf bytes.Buffer
	if err := s.archive.GetInvoice(ctx, invoiceID, &buf); err != nil {
		return nil, fmt.Errorf("reading archived invoice: %w", err)
	}
	data := buf.Bytes()
	if s.encryptor != nil {
		if dctx == nil {
			return nil, fmt.Errorf("archived invoices are encrypted: unlock required")
		}
		var plain bytes.Buffer
		if err := dctx.Decrypt(bytes.NewReader(data), &plain); err != nil {
			return nil, fmt.Errorf("decrypting invoice document: %w", err)
		}
		data = plain.Bytes()
	}
	return ParseInvoiceDocument(data)
}

// Encryptor returns the configured encryptor, or nil.
func (s *SelfService) Encryptor() Encryptor { return s.encryptor }
