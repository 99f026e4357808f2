package merging

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// IndexManager creates the dedupe key unique index
type IndexManager interface {
	CreateDedupeIndex(ctx context.Context) error
}

// SweepRunner runs one duplicate sweep
type SweepRunner interface {
	Sweep(ctx context.Context) (*models.SweepResult, error)
}

// Guardian keeps the dedupe key unique index in place. When duplicates block
// index creation it sweeps once and retries; if the index still cannot be
// built it degrades with a warning instead of failing the caller.
type Guardian struct {
	logger   ectologger.Logger
	contacts IndexManager
	sweeper  SweepRunner
}

// NewGuardian creates a new uniqueness guardian
func NewGuardian(logger ectologger.Logger, contacts IndexManager, sweeper SweepRunner) *Guardian {
	return &Guardian{
		logger:   logger,
		contacts: contacts,
		sweeper:  sweeper,
	}
}

// EnsureIndex attempts to (re)create the partial unique index on dedupe_key.
// Never returns an error; a missing index weakens matching but must not block
// imports or startup.
func (g *Guardian) EnsureIndex(ctx context.Context) *models.IndexState {
	ctx, span := tracing.StartSpan(ctx, "merging.Guardian.EnsureIndex")
	defer span.End()

	state := &models.IndexState{}

	err := g.contacts.CreateDedupeIndex(ctx)
	if err == nil {
		state.Present = true
		metrics.SetIndexDegraded(false)
		return state
	}

	g.logger.WithContext(ctx).WithError(err).Info("Dedupe index creation blocked, sweeping duplicates")
	state.SweepRan = true

	if _, sweepErr := g.sweeper.Sweep(ctx); sweepErr != nil {
		g.logger.WithContext(ctx).WithError(sweepErr).Warn("Duplicate sweep failed while restoring dedupe index")
		state.Degraded = true
		state.LastError = sweepErr.Error()
		metrics.SetIndexDegraded(true)
		return state
	}

	if err = g.contacts.CreateDedupeIndex(ctx); err != nil {
		g.logger.WithContext(ctx).WithError(err).Warn("Dedupe index still cannot be created, continuing without it")
		state.Degraded = true
		state.LastError = err.Error()
		metrics.SetIndexDegraded(true)
		return state
	}

	state.Present = true
	metrics.SetIndexDegraded(false)
	return state
}
