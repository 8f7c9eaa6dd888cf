package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/homenest/estate/metrics"
)

// TaskRunner runs best-effort side effects after the triggering request has
// done its work. Tasks never report back to the caller; failures and panics are
// logged and counted.
type TaskRunner struct {
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewTaskRunner creates a runner whose tasks each get timeout to finish.
func NewTaskRunner(log *zap.Logger, timeout time.Duration) *TaskRunner {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &TaskRunner{log: log, timeout: timeout}
}

// Go starts fn on its own goroutine with a fresh context, detached from any
// request context.
func (r *TaskRunner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				metrics.RecordBackgroundTask(name, "panic")
				r.log.Error("background task panicked", zap.String("task", name), zap.String("panic", fmt.Sprint(p)))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			metrics.RecordBackgroundTask(name, "error")
			r.log.Error("background task failed",
				zap.String("task", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return
		}
		metrics.RecordBackgroundTask(name, "ok")
		r.log.Debug("background task done", zap.String("task", name), zap.Duration("elapsed", time.Since(start)))
	}()
}

// Wait blocks until all started tasks finished or ctx is done.
func (r *TaskRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SnapshotStorage schedules a storage history update as a side effect.
func (r *TaskRunner) SnapshotStorage(tracker *StorageHistoryTracker, reason string) {
	if tracker == nil {
		return
	}
	r.Go("storage_snapshot", func(ctx context.Context) error {
		rec, err := tracker.UpdateStorageHistory(ctx)
		if err != nil {
			return fmt.Errorf("after %s: %w", reason, err)
		}
		r.log.Info("storage history updated",
			zap.String("reason", reason),
			zap.String("month", rec.RecordMonth),
			zap.Int64("total_files", rec.TotalFiles),
			zap.Float64("total_size_mb", rec.TotalSizeMB))
		return nil
	})
}
