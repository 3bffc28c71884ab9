package notify

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/catalog/internal/model"
)

// DefaultConcurrency bounds how many hooks run at once.
const DefaultConcurrency = 4

// Hook receives committed entity views.
type Hook interface {
	// Name identifies the hook in log lines.
	Name() string
	EntityCommitted(ctx context.Context, v *model.EntityView) error
}

// Dispatcher fans committed views out to hooks. Each hook sees the views of
// one transaction in write order; distinct hooks run concurrently.
type Dispatcher struct {
	hooks  []Hook
	logger *slog.Logger
	limit  int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the logger used for hook failures.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithConcurrency caps the number of hooks running at once.
// Values below 1 are ignored.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// NewDispatcher creates a Dispatcher over hooks.
func NewDispatcher(hooks []Hook, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		hooks:  hooks,
		logger: slog.Default(),
		limit:  DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify delivers views to every hook and waits for them to finish.
// Hook errors and panics are logged at Warn and swallowed.
func (d *Dispatcher) Notify(ctx context.Context, views []*model.EntityView) {
	if len(d.hooks) == 0 || len(views) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(d.limit)
	for _, h := range d.hooks {
		g.Go(func() error {
			d.deliver(ctx, h, views)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, h Hook, views []*model.EntityView) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("hook panicked", "hook", h.Name(), "panic", r)
		}
	}()
	for _, v := range views {
		if err := h.EntityCommitted(ctx, v); err != nil {
			d.logger.Warn("hook failed",
				"hook", h.Name(),
				"bbid", v.BBID,
				"revision", v.RevisionID,
				"error", err,
			)
		}
	}
}
