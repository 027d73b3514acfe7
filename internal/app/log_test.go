package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSelfxHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "info message",
			level:   slog.LevelInfo,
			message: "invoice paid",
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z\tinvoice paid\n",
		},
		{
			name:    "warn level",
			level:   slog.LevelWarn,
			message: "commits list is not sorted newest first",
			want:    "2024-06-15T14:30:45Z\tWARN\t20240615T143045Z\tcommits list is not sorted newest first\n",
		},
		{
			name:    "with record attrs",
			level:   slog.LevelInfo,
			message: "contract registered",
			attrs:   []slog.Attr{slog.String("contract", "github:a/b/mihai/DEV"), slog.Int("rate", 2500)},
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z\tcontract registered\tcontract=github:a/b/mihai/DEV\trate=2500\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &selfxHandler{w: &buf, opID: "20240615T143045Z"}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestSelfxHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &selfxHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("provider", "gitlab")}).(*selfxHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "fetched", 0)
	r.AddAttrs(slog.String("uri", "https://gitlab.com/api/v4"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"a=1", "provider=gitlab", "uri=https://gitlab.com/api/v4"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %s", got, want)
		}
	}
}

func TestSelfxHandler_Enabled(t *testing.T) {
	ctx := context.Background()

	all := &selfxHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !all.Enabled(ctx, level) {
			t.Errorf("Enabled(%v) without a level = false, want true", level)
		}
	}

	info := &selfxHandler{level: LevelInfo}
	if info.Enabled(ctx, slog.LevelDebug) {
		t.Error("Enabled(DEBUG) at INFO = true, want false")
	}
	if !info.Enabled(ctx, slog.LevelWarn) {
		t.Error("Enabled(WARN) at INFO = false, want true")
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(dir, "test-op", LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible", "k", "v")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "selfx.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	got := string(data)
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line written at INFO level: %q", got)
	}
	if !strings.Contains(got, "\ttest-op\tvisible\tk=v\n") {
		t.Errorf("log file = %q", got)
	}
}
