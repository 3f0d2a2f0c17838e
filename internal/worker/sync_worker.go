package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"teamfee/internal/amqp"
	"teamfee/internal/core"
	"teamfee/internal/kv"
	"teamfee/internal/log"
	"teamfee/internal/metrics"
	"teamfee/internal/repository"
	"teamfee/internal/sheets"
)

// Consumer delivers change messages to a handler until ctx is done.
type Consumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeMessage) error) error
}

// SyncWorker keeps the summary sheet in step with the persisted state.
type SyncWorker struct {
	store     kv.Store
	writer    sheets.SummaryWriter
	globalFee float64
	metrics   *metrics.Manager
	logger    *log.Logger
	now       func() time.Time

	mu sync.Mutex
	// lastSync is when the last successful sync started reading state.
	// Changes stamped at or before it are already on the sheet.
	lastSync time.Time
}

// Option configures a SyncWorker.
type Option func(*SyncWorker)

func WithMetrics(m *metrics.Manager) Option {
	return func(w *SyncWorker) { w.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(w *SyncWorker) { w.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *SyncWorker) { w.now = now }
}

// NewSyncWorker builds a worker reading from store. defaultGlobalFee applies
// when no global fee has been persisted yet.
func NewSyncWorker(store kv.Store, writer sheets.SummaryWriter, defaultGlobalFee float64, opts ...Option) *SyncWorker {
	w := &SyncWorker{
		store:     store,
		writer:    writer,
		globalFee: defaultGlobalFee,
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleChange syncs the summary unless the change is already covered by
// the last completed sync.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastSync.IsZero() && !msg.Timestamp.After(w.lastSync) {
		w.logger.DebugContext(ctx, "Change already synced, skipping",
			log.FieldCollection, msg.Collection,
			log.FieldRevision, msg.Revision)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing change message",
		log.FieldCollection, msg.Collection,
		log.FieldOperation, msg.Operation,
		log.FieldRevision, msg.Revision)
	return w.syncLocked(ctx)
}

// Resync writes the current summary regardless of pending messages.
func (w *SyncWorker) Resync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked(ctx)
}

// LastSync returns the start time of the last successful sync.
func (w *SyncWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}

func (w *SyncWorker) syncLocked(ctx context.Context) error {
	start := w.now()

	state, err := repository.ReadState(ctx, w.store, w.globalFee)
	if err != nil {
		w.metrics.RecordSync(err, start)
		return fmt.Errorf("read state: %w", err)
	}
	summary := core.Summarize(state.People, state.Teams, state.GlobalFee)
	w.metrics.ObserveSummary(summary)

	if err := w.writer.WriteSummary(ctx, summary, start); err != nil {
		w.metrics.RecordSync(err, start)
		return fmt.Errorf("write summary: %w", err)
	}
	w.metrics.RecordSync(nil, start)
	w.lastSync = start

	w.logger.InfoContext(ctx, "Summary synced",
		"people", summary.PeopleCount,
		"total", core.FormatAmount(summary.Total))
	return nil
}

// PeriodicResync resyncs every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (w *SyncWorker) PeriodicResync(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Resync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic resync failed", log.FieldError, err)
			}
		}
	}
}

// Run performs an initial sync, then consumes changes and resyncs
// periodically until ctx is cancelled or the consumer fails.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.Resync(ctx); err != nil {
		w.logger.WarnContext(ctx, "Startup sync failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.ConsumeChanges(gctx, w.HandleChange)
	})
	g.Go(func() error {
		return w.PeriodicResync(gctx, interval)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
