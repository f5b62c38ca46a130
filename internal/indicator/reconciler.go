package indicator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shelepuginivan/systemd-status/internal/systemd"
)

// DefaultInterval is the pause between the end of one poll and the start of
// the next.
const DefaultInterval = 60 * time.Second

// Querier lists failed units. It is implemented by [systemd.Manager].
type Querier interface {
	ListFailedUnits(ctx context.Context) ([]systemd.Unit, error)
}

// Config is the runtime config of [Reconciler].
type Config struct {
	// Pause between polls. Zero means [DefaultInterval].
	Interval time.Duration
}

// Reconciler polls the service manager and folds the results into [State].
type Reconciler struct {
	cfg     Config
	state   *State
	querier Querier
	logger  *slog.Logger
}

// NewReconciler returns a [Reconciler] that updates state with results of
// querier. If logger is nil, [slog.Default] is used.
func NewReconciler(state *State, querier Querier, logger *slog.Logger, cfg Config) (*Reconciler, error) {
	if state == nil {
		return nil, errors.New("reconciler: state required")
	}
	if querier == nil {
		return nil, errors.New("reconciler: querier required")
	}
	if cfg.Interval < 0 {
		return nil, errors.New("reconciler: interval must be >= 0")
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		cfg:     cfg,
		state:   state,
		querier: querier,
		logger:  logger,
	}, nil
}

// Run polls immediately and then once per interval, counted from the end of
// the previous poll. Poll errors never stop the loop. Run returns when ctx is
// done.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		r.Tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.Interval):
		}
	}
}

// Tick performs one poll and applies exactly one transition to the state:
// a successful poll replaces the failed units and clears the stale flag, a
// failed poll only sets the stale flag.
//
// A poll interrupted by cancellation of ctx leaves the state untouched.
func (r *Reconciler) Tick(ctx context.Context) {
	before := r.state.Snapshot().Signal()

	units, err := r.querier.ListFailedUnits(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.logger.Debug("Poll interrupted", "error", err)
			return
		}

		r.logger.Warn("Failed to list units", "error", err)
		r.state.MarkStale()
	} else {
		r.state.ApplySnapshot(units)
	}

	snapshot := r.state.Snapshot()
	if after := snapshot.Signal(); after != before {
		r.logger.Info("Indicator state changed", "from", before, "to", after, "failed", len(snapshot.FailedUnits))
	}
}
