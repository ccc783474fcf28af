package memos

import (
	"context"
	"log/slog"
	"time"
)

// Syncer runs one reconciliation pass.
type Syncer interface {
	Sync(ctx context.Context) (Result, error)
}

// Worker runs reconciliation passes on a fixed interval until stopped.
type Worker struct {
	syncer Syncer
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to 30s.
func NewWorker(syncer Syncer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Worker{
		syncer: syncer,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run syncs until ctx is cancelled. The first pass runs immediately.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := w.syncer.Sync(ctx)
		if err != nil {
			w.logger.Error("sync pass failed", "error", err)
		} else if res.Ran() {
			w.logger.Info("sync pass complete", "inserted", res.Inserted, "memos", len(res.Memos))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}
