package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"selfx-go/internal/config"
	"selfx-go/internal/selfx"
)

const repo = "amihaiemil/docker-java-api"

// newTestApp wires a SelfApp over in-memory storage and archive, with the
// github provider pointed at handler.
func newTestApp(t *testing.T, handler http.Handler) (*SelfApp, *config.Config) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		InstanceID: "test-instance",
		LogDir:     filepath.Join(t.TempDir(), "log"),
		Storage:    config.StorageConfig{Type: "memory"},
		Providers:  []config.ProviderConfig{{Name: "github", BaseURL: srv.URL, Token: "t0ken"}},
		Archive:    config.ArchiveConfig{Type: "memory"},
		Encryption: config.EncryptionConfig{Type: "test"},
	}
	a, err := NewSelfApp(context.Background(), cfg, "Test", Options{})
	if err != nil {
		t.Fatalf("NewSelfApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, cfg
}

func githubCommits(t *testing.T, sha func() string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0ken" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/repos/"+repo+"/commits" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"sha": sha(), "author": map[string]string{"login": "amihaiemil"}},
		})
	})
}

func TestSelfApp_LatestCommit(t *testing.T) {
	a, _ := newTestApp(t, githubCommits(t, func() string { return "abc123" }))
	ctx := context.Background()

	commit, err := a.LatestCommit(ctx, "github", repo)
	if err != nil {
		t.Fatalf("LatestCommit() error = %v", err)
	}
	if commit.ShaRef() != "abc123" || commit.Author() != "amihaiemil" {
		t.Errorf("commit = %s by %s", commit.ShaRef(), commit.Author())
	}

	if _, err := a.LatestCommit(ctx, "gitlab", repo); err == nil {
		t.Error("LatestCommit() on an unconfigured provider should return error")
	}
	if _, err := a.LatestCommit(ctx, "sourceforge", repo); err == nil {
		t.Error("LatestCommit() on an unknown provider should return error")
	}
	if _, err := a.LatestCommit(ctx, "github", "no-slash"); err == nil {
		t.Error("LatestCommit() with a malformed repo should return error")
	}
	if a.Operation().Status != "error" {
		t.Errorf("operation status = %q, want error", a.Operation().Status)
	}

	rec := httptest.NewRecorder()
	a.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `selfx_provider_requests_total{method="GET",provider="github",status="200"} 1`) {
		t.Errorf("metrics output missing provider request counter:\n%s", rec.Body.String())
	}
}

func TestSelfApp_WatchCommits(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestApp(t, githubCommits(t, func() string {
		if calls.Add(1) < 3 {
			return "first"
		}
		return "second"
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen []string
	err := a.WatchCommits(ctx, "github", repo, 10*time.Millisecond, func(c selfx.Commit) error {
		seen = append(seen, c.ShaRef())
		if len(seen) == 2 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WatchCommits() error = %v", err)
	}
	if strings.Join(seen, ",") != "first,second" {
		t.Errorf("seen = %v, want [first second]", seen)
	}

	if err := a.WatchCommits(ctx, "github", repo, 0, nil); err == nil {
		t.Error("WatchCommits() with zero interval should return error")
	}
}

func TestSelfApp_InvoiceLifecycle(t *testing.T) {
	a, _ := newTestApp(t, http.NotFoundHandler())
	ctx := context.Background()

	if _, err := a.RegisterContract(ctx, "github", repo, "mihai", "2500", "DEV"); !errors.Is(err, selfx.ErrNotFound) {
		t.Fatalf("RegisterContract() without project error = %v, want ErrNotFound", err)
	}

	project, err := a.RegisterProject(ctx, "github", repo, "")
	if err != nil {
		t.Fatalf("RegisterProject() error = %v", err)
	}
	if project.Owner != "amihaiemil" {
		t.Errorf("Owner = %q, want owner derived from repo", project.Owner)
	}

	if _, err := a.RegisterContract(ctx, "github", repo, "mihai", "-1", "DEV"); err == nil {
		t.Error("RegisterContract() with negative rate should return error")
	}
	if _, err := a.RegisterContract(ctx, "github", repo, "mihai", "2500", "BOSS"); err == nil {
		t.Error("RegisterContract() with unknown role should return error")
	}
	if _, err := a.RegisterContract(ctx, "github", repo, "mihai", "2500", "DEV"); err != nil {
		t.Fatalf("RegisterContract() error = %v", err)
	}

	contracts, err := a.Contracts(ctx, "github", repo)
	if err != nil || len(contracts) != 1 {
		t.Fatalf("Contracts() = %d contracts, err %v; want 1", len(contracts), err)
	}

	if _, err := a.EmitInvoice(ctx, "github", repo, "mihai", "DEV", []string{"42"}); err == nil {
		t.Error("EmitInvoice() with malformed task should return error")
	}
	invoice, err := a.EmitInvoice(ctx, "github", repo, "mihai", "DEV", []string{"42:90"})
	if err != nil {
		t.Fatalf("EmitInvoice() error = %v", err)
	}
	if invoice.Amount.String() != "3750" {
		t.Errorf("Amount = %s, want 3750", invoice.Amount)
	}

	invoices, err := a.ContractInvoices(ctx, "github", repo, "mihai", "DEV")
	if err != nil || len(invoices) != 1 {
		t.Fatalf("ContractInvoices() = %d invoices, err %v; want 1", len(invoices), err)
	}

	if _, err := a.RegisterWallet(ctx, "github", repo, selfx.WalletFake, "10000", "fake-1"); err != nil {
		t.Fatalf("RegisterWallet() error = %v", err)
	}
	wallet, err := a.UpdateWalletCash(ctx, "github", repo, "12000")
	if err != nil {
		t.Fatalf("UpdateWalletCash() error = %v", err)
	}
	if wallet.Cash().String() != "12000" {
		t.Errorf("Cash() = %s, want 12000", wallet.Cash())
	}

	payment, err := a.PayInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("PayInvoice() error = %v", err)
	}
	if payment.TransactionID == "" {
		t.Error("payment has no transaction id")
	}

	if err := a.ValidateArchive(ctx); err != nil {
		t.Fatalf("ValidateArchive() error = %v", err)
	}
	if err := a.ArchiveInvoice(ctx, invoice.ID); err != nil {
		t.Fatalf("ArchiveInvoice() error = %v", err)
	}
	doc, err := a.ShowInvoice(ctx, invoice.ID, "")
	if err != nil {
		t.Fatalf("ShowInvoice() error = %v", err)
	}
	if doc.ID != invoice.ID || !doc.Paid || doc.Amount != "3750" {
		t.Errorf("document = %+v", doc)
	}
}

func TestSelfApp_Close(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := &config.Config{
		InstanceID: "close",
		LogDir:     t.TempDir(),
		Storage:    config.StorageConfig{Type: "memory"},
		Encryption: config.EncryptionConfig{Type: "none"},
	}
	a, err := NewSelfApp(context.Background(), cfg, "Migrate", Options{Verbose: true})
	if err != nil {
		t.Fatalf("NewSelfApp() error = %v", err)
	}
	if err := a.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := a.ValidateArchive(context.Background()); err == nil {
		t.Error("ValidateArchive() without archive should return error")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, "selfx.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "operation finished\toperation=Migrate\tstatus=error") {
		t.Errorf("log = %q", data)
	}
}

func TestNewSelfApp_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "unknown storage", cfg: config.Config{Storage: config.StorageConfig{Type: "oracle"}}},
		{name: "unknown provider", cfg: config.Config{Storage: config.StorageConfig{Type: "memory"}, Providers: []config.ProviderConfig{{Name: "sourceforge"}}}},
		{name: "unknown archive", cfg: config.Config{Storage: config.StorageConfig{Type: "memory"}, Archive: config.ArchiveConfig{Type: "tape"}}},
		{name: "unknown encryption", cfg: config.Config{Storage: config.StorageConfig{Type: "memory"}, Encryption: config.EncryptionConfig{Type: "rot13"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.LogDir = t.TempDir()
			if a, err := NewSelfApp(context.Background(), &cfg, "Test", Options{}); err == nil {
				a.Close()
				t.Error("NewSelfApp() should return error")
			}
		})
	}
}

func TestSelfApp_Tasks(t *testing.T) {
	a, _ := newTestApp(t, http.NotFoundHandler())
	ctx := context.Background()

	if _, err := a.RegisterProject(ctx, "github", repo, "amihaiemil"); err != nil {
		t.Fatalf("RegisterProject() error = %v", err)
	}
	if _, err := a.RegisterTask(ctx, "github", repo, "42", "DEV", 0); err == nil {
		t.Error("RegisterTask() without estimation should return error")
	}
	if _, err := a.RegisterTask(ctx, "github", repo, "42", "DEV", 60); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	if _, err := a.RegisterTask(ctx, "github", repo, "43", "REV", 30); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}

	task, err := a.AssignTask(ctx, "github", repo, "42", "mihai", 10)
	if err != nil {
		t.Fatalf("AssignTask() error = %v", err)
	}
	if !task.AssignedTo("mihai", "github") {
		t.Errorf("Assignee = %v, want github:mihai", task.Assignee)
	}
	if _, err := a.AssignTask(ctx, "github", repo, "42", "vlad", 10); err == nil {
		t.Error("AssignTask() on an assigned task should return error")
	}

	tasks, err := a.ContributorTasks(ctx, "mihai", "github")
	if err != nil {
		t.Fatalf("ContributorTasks() error = %v", err)
	}
	if tasks.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tasks.Len())
	}
}
