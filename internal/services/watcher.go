package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"expensepool/internal/amqp"
	"expensepool/internal/log"
)

// ChangeSource delivers change events about poolID until ctx is done.
type ChangeSource interface {
	ConsumePoolChanges(ctx context.Context, poolID string, handler func(*amqp.PoolChangeMessage) error) error
}

// ChangeWatcher runs onChange for every change event that concerns one pool.
type ChangeWatcher struct {
	source   ChangeSource
	poolID   string
	onChange func(ctx context.Context, msg *amqp.PoolChangeMessage) error

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	err     error
}

func NewChangeWatcher(source ChangeSource, poolID string, onChange func(context.Context, *amqp.PoolChangeMessage) error) *ChangeWatcher {
	return &ChangeWatcher{
		source:   source,
		poolID:   poolID,
		onChange: onChange,
	}
}

// Start begins consuming. Returns an error if already running.
func (w *ChangeWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("change watcher is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.err = nil

	go w.run(ctx)

	slog.InfoContext(ctx, "Change watcher started",
		log.FieldComponent, log.ComponentAMQP, log.FieldPoolID, w.poolID)
	return nil
}

func (w *ChangeWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	err := w.source.ConsumePoolChanges(ctx, w.poolID, func(msg *amqp.PoolChangeMessage) error {
		if !msg.Concerns(w.poolID) {
			return nil
		}
		return w.onChange(ctx, msg)
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	w.mu.Lock()
	w.err = err
	w.running = false
	w.mu.Unlock()
}

// Stop cancels consumption and waits for it to finish or for ctx to expire.
// It returns the consumer's error, if any.
func (w *ChangeWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		slog.InfoContext(ctx, "Change watcher stopped gracefully", log.FieldComponent, log.ComponentAMQP)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Change watcher stop timed out", log.FieldComponent, log.ComponentAMQP)
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancel = nil
	return w.err
}

// Done is closed when consumption ends for any reason.
func (w *ChangeWatcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}

// IsRunning returns whether the watcher is currently consuming
func (w *ChangeWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
