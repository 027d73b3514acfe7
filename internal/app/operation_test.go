package app

import (
	"errors"
	"testing"
	"time"
)

func TestOperation(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 5, 0, time.FixedZone("EET", 2*3600))
	op := NewOperation("PayInvoice", start)

	if op.ID != "20240301T070005Z" {
		t.Errorf("ID = %q, want UTC timestamp", op.ID)
	}
	if op.Status != "success" {
		t.Errorf("Status = %q, want success", op.Status)
	}

	first := errors.New("insufficient cash")
	op.Fail(first)
	op.Fail(errors.New("later"))
	if op.Status != "error" || op.Err != first {
		t.Errorf("after Fail: status %q err %v, want error / first error", op.Status, op.Err)
	}

	if got := op.Finish(start.Add(1500 * time.Millisecond)); got != 1500*time.Millisecond {
		t.Errorf("Finish() = %v, want 1.5s", got)
	}
}
