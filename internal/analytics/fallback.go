package analytics

import (
	"context"
	"log"
)

// Fallback tries the primary recorder first and degrades to the backup when
// the primary fails, logging a warning. Analytics is best-effort: callers
// keep serving even with the primary store down.
type Fallback struct {
	Primary Recorder
	Backup  Recorder
	Logger  *log.Logger
}

func NewFallback(primary, backup Recorder, logger *log.Logger) *Fallback {
	if logger == nil {
		logger = log.New(log.Writer(), "[ANALYTICS] ", log.LstdFlags)
	}
	return &Fallback{Primary: primary, Backup: backup, Logger: logger}
}

func (f *Fallback) RecordExchange(ctx context.Context, ex Exchange) (string, error) {
	if f.Primary != nil {
		id, err := f.Primary.RecordExchange(ctx, ex)
		if err == nil {
			return id, nil
		}
		f.Logger.Printf("primary recorder failed, falling back: %v", err)
	}
	return f.Backup.RecordExchange(ctx, ex)
}

func (f *Fallback) Snapshot(ctx context.Context) (*Snapshot, error) {
	if f.Primary != nil {
		snap, err := f.Primary.Snapshot(ctx)
		if err == nil {
			return snap, nil
		}
		f.Logger.Printf("primary snapshot failed, falling back: %v", err)
	}
	return f.Backup.Snapshot(ctx)
}
