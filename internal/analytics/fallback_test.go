package analytics

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
)

type failingRecorder struct{ err error }

func (f *failingRecorder) RecordExchange(context.Context, Exchange) (string, error) {
	return "", f.err
}
func (f *failingRecorder) Snapshot(context.Context) (*Snapshot, error) {
	return nil, f.err
}

func TestFallback_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := NewMemory()
	backup := NewMemory()
	f := NewFallback(primary, backup, log.New(io.Discard, "", 0))

	id, err := f.RecordExchange(context.Background(), Exchange{UserMessage: "hello"})
	if err != nil {
		t.Fatalf("RecordExchange: %v", err)
	}
	if id == "" {
		t.Fatal("expected a session id")
	}

	snap, err := primary.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Summary.TotalSessions != 1 {
		t.Fatal("exchange did not land in the primary recorder")
	}
	backupSnap, _ := backup.Snapshot(context.Background())
	if backupSnap.Summary.TotalSessions != 0 {
		t.Fatal("exchange leaked into the backup recorder")
	}
}

func TestFallback_DegradesToBackup(t *testing.T) {
	backup := NewMemory()
	f := NewFallback(&failingRecorder{err: errors.New("connection refused")}, backup, log.New(io.Discard, "", 0))

	if _, err := f.RecordExchange(context.Background(), Exchange{UserMessage: "hello"}); err != nil {
		t.Fatalf("RecordExchange should fall back, got %v", err)
	}
	snap, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot should fall back, got %v", err)
	}
	if snap.Summary.TotalSessions != 1 {
		t.Fatal("exchange did not land in the backup recorder")
	}
}

func TestFallback_NilPrimary(t *testing.T) {
	backup := NewMemory()
	f := NewFallback(nil, backup, log.New(io.Discard, "", 0))
	if _, err := f.RecordExchange(context.Background(), Exchange{UserMessage: "hi"}); err != nil {
		t.Fatalf("RecordExchange: %v", err)
	}
}
