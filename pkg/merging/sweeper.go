// Package merging removes duplicate contacts and keeps the dedupe key index
// healthy. The sweep is the only operation that may observe duplicate keys.
package merging

import (
	"context"
	"database/sql"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/contact"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/identity"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ContactStore is the subset of the contact repository the sweeper needs
type ContactStore interface {
	DB() database.DB
	ListAll(ctx context.Context) ([]models.Contact, error)
	UpdateDedupeKey(ctx context.Context, id int64, key string) error
	FindDuplicateGroups(ctx context.Context) ([]contact.DuplicateGroup, error)
	Delete(ctx context.Context, id int64) error
	CreateDedupeIndex(ctx context.Context) error
	DropDedupeIndex(ctx context.Context) error
}

// Reassigner re-points a child table from one contact to another
type Reassigner interface {
	Reassign(ctx context.Context, fromContactID, toContactID int64) (int64, error)
}

// Snapshotter writes a storage backup after a sweep
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

// Emitter publishes merge events after a sweep commits
type Emitter interface {
	EmitContactsMerged(ctx context.Context, winnerID int64, loserIDs []int64, dedupeKey string) error
}

// Sweeper merges contacts sharing a dedupe key. Sweeps are serialized; the
// index is down while one runs, so two must never overlap.
type Sweeper struct {
	mu          sync.Mutex
	logger      ectologger.Logger
	contacts    ContactStore
	notes       Reassigner
	statuses    Reassigner
	saleLines   Reassigner
	emitter     Emitter
	snapshotter Snapshotter
}

// NewSweeper creates a new duplicate sweeper. emitter and snapshotter may be nil.
func NewSweeper(
	logger ectologger.Logger,
	contacts ContactStore,
	notes Reassigner,
	statuses Reassigner,
	saleLines Reassigner,
	emitter Emitter,
	snapshotter Snapshotter,
) *Sweeper {
	return &Sweeper{
		logger:      logger,
		contacts:    contacts,
		notes:       notes,
		statuses:    statuses,
		saleLines:   saleLines,
		emitter:     emitter,
		snapshotter: snapshotter,
	}
}

type mergedGroup struct {
	winnerID  int64
	loserIDs  []int64
	dedupeKey string
}

// Sweep recomputes every dedupe key, merges each group of contacts sharing a
// non-empty key into its oldest member, and restores the unique index. A
// second sweep immediately after the first removes zero contacts.
func (s *Sweeper) Sweep(ctx context.Context) (*models.SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "merging.Sweeper.Sweep")
	defer span.End()

	result := &models.SweepResult{}

	ctxTx, tx, err := s.contacts.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctxTx)

	// Duplicates must be representable while keys are recomputed and groups
	// collapsed, so the index comes down first.
	if err = s.contacts.DropDedupeIndex(ctxTx); err != nil {
		return nil, err
	}

	recomputed, err := s.recomputeKeys(ctxTx)
	if err != nil {
		return nil, err
	}
	result.KeysRecomputed = recomputed

	groups, err := s.contacts.FindDuplicateGroups(ctxTx)
	if err != nil {
		return nil, err
	}

	var merged []mergedGroup
	for _, group := range groups {
		m, err := s.mergeGroup(ctxTx, group, result)
		if err != nil {
			return nil, err
		}
		merged = append(merged, m)
	}
	result.GroupsMerged = len(merged)

	if err = s.contacts.CreateDedupeIndex(ctxTx); err != nil {
		// Should not happen after a merge pass. Leave the index absent
		// rather than fail the sweep; the guardian reports the degradation.
		s.logger.WithContext(ctxTx).WithError(err).Warn("Failed to restore dedupe index after sweep")
	} else {
		result.IndexRestored = true
	}

	if err = tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	metrics.RecordSweep(result.ContactsDeleted)
	s.afterCommit(ctx, merged, result)

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"keys_recomputed":  result.KeysRecomputed,
		"groups_merged":    result.GroupsMerged,
		"contacts_deleted": result.ContactsDeleted,
	}).Info("Duplicate sweep completed")

	return result, nil
}

// recomputeKeys refreshes the stored key of every contact from its current
// field values. Handles contacts created before keys existed or whose fields
// changed since the key was last set.
func (s *Sweeper) recomputeKeys(ctx context.Context) (int, error) {
	contacts, err := s.contacts.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	recomputed := 0
	for _, c := range contacts {
		key := identity.ComputeDedupeKey(c.FirstName, c.LastName, c.Company, c.Email, c.ProfileURL)
		if key == c.DedupeKey {
			continue
		}
		if err = s.contacts.UpdateDedupeKey(ctx, c.ID, key); err != nil {
			return 0, err
		}
		recomputed++
	}
	return recomputed, nil
}

// mergeGroup collapses one duplicate group into its lowest-id member. Children
// are re-owned, never deleted; only loser contact rows are removed, and only
// after all their children have moved.
func (s *Sweeper) mergeGroup(ctx context.Context, group contact.DuplicateGroup, result *models.SweepResult) (mergedGroup, error) {
	winnerID := group.IDs[0]
	m := mergedGroup{winnerID: winnerID, dedupeKey: group.DedupeKey}

	for _, loserID := range group.IDs[1:] {
		notes, err := s.notes.Reassign(ctx, loserID, winnerID)
		if err != nil {
			return m, err
		}
		statuses, err := s.statuses.Reassign(ctx, loserID, winnerID)
		if err != nil {
			return m, err
		}
		saleLines, err := s.saleLines.Reassign(ctx, loserID, winnerID)
		if err != nil {
			return m, err
		}

		if err = s.contacts.Delete(ctx, loserID); err != nil {
			return m, err
		}

		result.NotesReowned += int(notes)
		result.StatusesReowned += int(statuses)
		result.SaleLinesReowned += int(saleLines)
		result.ContactsDeleted++
		m.loserIDs = append(m.loserIDs, loserID)
	}

	return m, nil
}

func (s *Sweeper) afterCommit(ctx context.Context, merged []mergedGroup, result *models.SweepResult) {
	if s.emitter != nil {
		for _, m := range merged {
			if err := s.emitter.EmitContactsMerged(ctx, m.winnerID, m.loserIDs, m.dedupeKey); err != nil {
				s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit merge event")
			}
		}
	}

	if s.snapshotter != nil {
		path, err := s.snapshotter.Snapshot(ctx)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to write backup snapshot after sweep")
			return
		}
		result.SnapshotPath = path
	}
}
