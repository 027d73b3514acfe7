package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"selfx-go/internal/archive"
	"selfx-go/internal/config"
	"selfx-go/internal/database"
	"selfx-go/internal/encryption"
	"selfx-go/internal/provider"
	"selfx-go/internal/resources"
	"selfx-go/internal/selfx"
)

// SelfApp is the application layer between the CLI and SelfService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI arguments, and closes the storage and log on Close.
type SelfApp struct {
	cfg       *config.Config
	storage   *database.Storage
	archive   selfx.InvoiceArchive
	encryptor selfx.Encryptor
	service   *selfx.SelfService
	registry  *prometheus.Registry
	metrics   *operationMetrics
	logger    selfx.Logger
	op        *Operation
	logFile   *os.File
}

// Options tune a SelfApp beyond what the config file holds.
type Options struct {
	Verbose bool // log debug lines
}

// NewSelfApp creates a fully wired SelfApp from the given config.
// operation names the CLI command being run (e.g. "LatestCommit", "PayInvoice").
// The caller must call Close when done.
func NewSelfApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*SelfApp, error) {
	clock := selfx.RealClock{}
	op := NewOperation(operation, clock.Now())

	level := LevelInfo
	if opts.Verbose {
		level = LevelDebug
	}
	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	storage, err := database.NewStorageFromConfig(ctx, cfg.Storage, cfg.InstanceID, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage: %w", err)
	}
	if err := storage.CheckMigrations(); err != nil {
		storage.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	registry := prometheus.NewRegistry()
	fetchMetrics := resources.NewMetrics(registry)

	list := make([]selfx.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		res, err := resources.NewHTTPResourcesFromConfig(pc, fetchMetrics, logger)
		if err != nil {
			storage.Close()
			logFile.Close()
			return nil, fmt.Errorf("creating resources for %s: %w", pc.Name, err)
		}
		p, err := provider.NewProviderFromConfig(pc, res, logger)
		if err != nil {
			storage.Close()
			logFile.Close()
			return nil, fmt.Errorf("creating provider: %w", err)
		}
		list = append(list, p)
	}

	arch, err := archive.NewArchiveFromConfig(ctx, cfg.Archive)
	if err != nil {
		storage.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating invoice archive: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		storage.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	svc := selfx.NewSelfService(storage, list, arch, enc, logger, clock, selfx.ULIDGenerator{})
	logger.Debug("operation started", "operation", op.Name, "storage", cfg.Storage.Type, "providers", len(list))

	return &SelfApp{
		cfg:       cfg,
		storage:   storage,
		archive:   arch,
		encryptor: enc,
		service:   svc,
		registry:  registry,
		metrics:   newOperationMetrics(registry),
		logger:    logger,
		op:        op,
		logFile:   logFile,
	}, nil
}

// Service returns the underlying SelfService.
func (a *SelfApp) Service() *selfx.SelfService { return a.service }

// Encryptor returns the configured encryptor, or nil when archived invoices
// are stored in clear.
func (a *SelfApp) Encryptor() selfx.Encryptor { return a.encryptor }

// Registry returns the Prometheus registry holding the app's collectors.
func (a *SelfApp) Registry() *prometheus.Registry { return a.registry }

// Operation returns the operation this app was created for.
func (a *SelfApp) Operation() *Operation { return a.op }

// track records the outcome of a command on the app's operation.
func (a *SelfApp) track(err error) error {
	if err != nil {
		a.op.Fail(err)
	}
	return err
}

func parseProjectID(providerName, repo string) (selfx.ProjectID, error) {
	if !selfx.ValidProvider(providerName) {
		return selfx.ProjectID{}, fmt.Errorf("unknown provider %q", providerName)
	}
	if repo == "" || !strings.Contains(repo, "/") {
		return selfx.ProjectID{}, fmt.Errorf("repository must be given as owner/name, got %q", repo)
	}
	return selfx.ProjectID{RepoFullName: repo, Provider: providerName}, nil
}

func parseCents(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("amount %s: %w", s, selfx.ErrInvalidAmount)
	}
	return d, nil
}

// RegisterProject stores a project whose owner is a user of the same provider.
func (a *SelfApp) RegisterProject(ctx context.Context, providerName, repo, owner string) (selfx.Project, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return selfx.Project{}, a.track(err)
	}
	if owner == "" {
		owner, _, _ = strings.Cut(repo, "/")
	}
	project, err := a.storage.Projects().Register(ctx, selfx.Project{
		RepoFullName: id.RepoFullName,
		Provider:     id.Provider,
		Owner:        owner,
	})
	if err != nil {
		return selfx.Project{}, a.track(fmt.Errorf("registering project: %w", err))
	}
	a.logger.Info("project registered", "project", id.String(), "owner", owner)
	return project, nil
}

// Projects returns every registered project.
func (a *SelfApp) Projects(ctx context.Context) ([]selfx.Project, error) {
	projects, err := a.storage.Projects().All(ctx)
	return projects, a.track(err)
}

// Commit returns commit ref of the repository, or nil when it does not exist.
func (a *SelfApp) Commit(ctx context.Context, providerName, repo, ref string) (selfx.Commit, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return nil, a.track(err)
	}
	commit, err := a.service.Commit(ctx, id, ref)
	return commit, a.track(err)
}

// LatestCommit returns the most recent commit of the repository.
func (a *SelfApp) LatestCommit(ctx context.Context, providerName, repo string) (selfx.Commit, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return nil, a.track(err)
	}
	commit, err := a.service.LatestCommit(ctx, id)
	return commit, a.track(err)
}

// WatchCommits polls the latest commit every interval and calls fn whenever
// its sha changes, starting with the current one. It returns nil once ctx is
// done. Polling failures are logged and retried on the next tick.
func (a *SelfApp) WatchCommits(ctx context.Context, providerName, repo string, interval time.Duration, fn func(selfx.Commit) error) error {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return a.track(err)
	}
	if interval <= 0 {
		return a.track(fmt.Errorf("watch interval must be positive, got %s", interval))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		commit, err := a.service.LatestCommit(ctx, id)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			a.logger.Warn("polling latest commit failed", "project", id.String(), "error", err.Error())
		case commit.ShaRef() != last:
			last = commit.ShaRef()
			if err := fn(commit); err != nil {
				return a.track(err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *SelfApp) findContract(ctx context.Context, providerName, repo, username, role string) (selfx.ContractID, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return selfx.ContractID{}, err
	}
	r, err := selfx.ParseRole(role)
	if err != nil {
		return selfx.ContractID{}, err
	}
	return selfx.ContractID{
		Project:     id,
		Contributor: selfx.Contributor{Username: username, Provider: providerName},
		Role:        r,
	}, nil
}

// Contracts returns the contracts of a project.
func (a *SelfApp) Contracts(ctx context.Context, providerName, repo string) ([]*selfx.Contract, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return nil, a.track(err)
	}
	contracts, err := a.storage.Contracts().OfProject(ctx, id)
	if err != nil {
		return nil, a.track(fmt.Errorf("listing contracts: %w", err))
	}
	return contracts, nil
}

// RegisterContract binds username to the project. rate is in USD cents.
func (a *SelfApp) RegisterContract(ctx context.Context, providerName, repo, username, rate, role string) (*selfx.Contract, error) {
	cid, err := a.findContract(ctx, providerName, repo, username, role)
	if err != nil {
		return nil, a.track(err)
	}
	cents, err := parseCents(rate)
	if err != nil {
		return nil, a.track(err)
	}
	contract, err := a.service.RegisterContract(ctx, cid.Project, username, cents, cid.Role)
	return contract, a.track(err)
}

// ContractInvoices returns the invoices of a contract.
func (a *SelfApp) ContractInvoices(ctx context.Context, providerName, repo, username, role string) ([]selfx.Invoice, error) {
	cid, err := a.findContract(ctx, providerName, repo, username, role)
	if err != nil {
		return nil, a.track(err)
	}
	invoices, err := a.service.ContractInvoices(ctx, cid)
	return invoices, a.track(err)
}

// EmitInvoice bills a contract for finished tasks given as "issue:minutes".
// Each task is valued at the contract's hourly rate, rounded to whole cents.
func (a *SelfApp) EmitInvoice(ctx context.Context, providerName, repo, username, role string, tasks []string) (*selfx.Invoice, error) {
	cid, err := a.findContract(ctx, providerName, repo, username, role)
	if err != nil {
		return nil, a.track(err)
	}
	if len(tasks) == 0 {
		return nil, a.track(fmt.Errorf("at least one task is required"))
	}
	contract, err := a.storage.Contracts().FindByID(ctx, cid)
	if err != nil {
		return nil, a.track(fmt.Errorf("finding contract: %w", err))
	}
	if contract == nil {
		return nil, a.track(fmt.Errorf("contract %s: %w", cid, selfx.ErrNotFound))
	}

	invoiced := make([]selfx.InvoicedTask, 0, len(tasks))
	for _, t := range tasks {
		issue, minutes, ok := strings.Cut(t, ":")
		if !ok || issue == "" {
			return nil, a.track(fmt.Errorf("task %q must be given as issue:minutes", t))
		}
		m, err := strconv.Atoi(minutes)
		if err != nil || m <= 0 {
			return nil, a.track(fmt.Errorf("task %q: invalid estimation %q", t, minutes))
		}
		value := contract.HourlyRate().Mul(decimal.NewFromInt(int64(m))).Div(decimal.NewFromInt(60)).Round(0)
		invoiced = append(invoiced, selfx.InvoicedTask{IssueID: issue, Estimation: m, Value: value})
	}

	invoice, err := a.service.EmitInvoice(ctx, cid, invoiced)
	return invoice, a.track(err)
}

// ContributorTasks returns the tasks assigned to username at the provider.
func (a *SelfApp) ContributorTasks(ctx context.Context, username, providerName string) (*selfx.ContributorTasks, error) {
	if !selfx.ValidProvider(providerName) {
		return nil, a.track(fmt.Errorf("unknown provider %q", providerName))
	}
	tasks, err := a.service.ContributorTasks(ctx, username, providerName)
	return tasks, a.track(err)
}

// RegisterTask turns an issue of the project into an unassigned task.
func (a *SelfApp) RegisterTask(ctx context.Context, providerName, repo, issueID, role string, estimation int) (selfx.Task, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return selfx.Task{}, a.track(err)
	}
	r, err := selfx.ParseRole(role)
	if err != nil {
		return selfx.Task{}, a.track(err)
	}
	if issueID == "" || estimation <= 0 {
		return selfx.Task{}, a.track(fmt.Errorf("task needs an issue id and a positive estimation"))
	}
	task, err := a.storage.Tasks().Register(ctx, selfx.Issue{
		ID:           issueID,
		RepoFullName: id.RepoFullName,
		Provider:     id.Provider,
		Role:         r,
		Estimation:   estimation,
	})
	if err != nil {
		return selfx.Task{}, a.track(fmt.Errorf("registering task: %w", err))
	}
	a.logger.Info("task registered", "project", id.String(), "issue", issueID)
	return task, nil
}

// AssignTask gives a task to username with a deadline days from now.
func (a *SelfApp) AssignTask(ctx context.Context, providerName, repo, issueID, username string, days int) (selfx.Task, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return selfx.Task{}, a.track(err)
	}
	if days <= 0 {
		return selfx.Task{}, a.track(fmt.Errorf("deadline must be at least one day, got %d", days))
	}
	contributor, err := a.storage.Contributors().Register(ctx, username, providerName)
	if err != nil {
		return selfx.Task{}, a.track(fmt.Errorf("registering contributor: %w", err))
	}
	deadline := time.Now().AddDate(0, 0, days)
	task, err := a.storage.Tasks().Assign(ctx, selfx.TaskKey{IssueID: issueID, Project: id}, contributor, deadline)
	if err != nil {
		return selfx.Task{}, a.track(fmt.Errorf("assigning task: %w", err))
	}
	a.logger.Info("task assigned", "project", id.String(), "issue", issueID, "assignee", contributor.String())
	return task, nil
}

// RegisterWallet stores a wallet for the project and makes it the active one.
func (a *SelfApp) RegisterWallet(ctx context.Context, providerName, repo, walletType, cash, identifier string) (selfx.Wallet, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return nil, a.track(err)
	}
	amount, err := parseCents(cash)
	if err != nil {
		return nil, a.track(err)
	}
	project, err := a.storage.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, a.track(fmt.Errorf("finding project: %w", err))
	}
	if project == nil {
		return nil, a.track(fmt.Errorf("project %s: %w", id, selfx.ErrNotFound))
	}
	wallets := a.storage.Wallets().OfProject(id)
	wallet, err := wallets.Register(ctx, *project, walletType, amount, identifier)
	if err != nil {
		return nil, a.track(fmt.Errorf("registering wallet: %w", err))
	}
	active, err := wallets.Activate(ctx, wallet)
	if err != nil {
		return nil, a.track(fmt.Errorf("activating wallet: %w", err))
	}
	a.logger.Info("wallet registered", "project", id.String(), "type", walletType)
	return active, nil
}

// UpdateWalletCash sets the cash limit, in USD cents, of the project's active wallet.
func (a *SelfApp) UpdateWalletCash(ctx context.Context, providerName, repo, cash string) (selfx.Wallet, error) {
	id, err := parseProjectID(providerName, repo)
	if err != nil {
		return nil, a.track(err)
	}
	amount, err := parseCents(cash)
	if err != nil {
		return nil, a.track(err)
	}
	wallet, err := a.service.UpdateWalletCash(ctx, id, amount)
	return wallet, a.track(err)
}

func (a *SelfApp) PayInvoice(ctx context.Context, invoiceID string) (selfx.Payment, error) {
	payment, err := a.service.PayInvoice(ctx, invoiceID)
	return payment, a.track(err)
}

func (a *SelfApp) ArchiveInvoice(ctx context.Context, invoiceID string) error {
	return a.track(a.service.ArchiveInvoice(ctx, invoiceID))
}

// ShowInvoice reads an archived invoice document. passphrase unlocks the
// private key when documents are encrypted and is ignored otherwise.
func (a *SelfApp) ShowInvoice(ctx context.Context, invoiceID, passphrase string) (*selfx.InvoiceDocument, error) {
	var dctx selfx.DecryptionContext
	if a.encryptor != nil {
		var err error
		dctx, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return nil, a.track(fmt.Errorf("unlocking private key: %w", err))
		}
	}
	doc, err := a.service.ReadArchivedInvoice(ctx, invoiceID, dctx)
	return doc, a.track(err)
}

// ValidateArchive checks that the configured invoice archive is usable.
func (a *SelfApp) ValidateArchive(ctx context.Context) error {
	if a.archive == nil {
		return a.track(fmt.Errorf("no invoice archive configured"))
	}
	return a.track(a.archive.ValidateSetup(ctx))
}

// Migrate applies pending schema migrations and verifies the result.
func (a *SelfApp) Migrate() error {
	if err := a.storage.Migrate(); err != nil {
		return a.track(fmt.Errorf("migrating database: %w", err))
	}
	return a.track(a.storage.CheckMigrations())
}

// Close finishes the operation and closes the storage and log file.
func (a *SelfApp) Close() error {
	var firstErr error

	elapsed := a.op.Finish(time.Now())
	a.metrics.observe(a.op, elapsed)
	a.logger.Info("operation finished", "operation", a.op.Name, "status", a.op.Status, "elapsed", elapsed.Round(time.Millisecond).String())

	if err := a.storage.Close(); err != nil {
		firstErr = fmt.Errorf("closing storage: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
