package statuschange

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles status change persistence. Every pipeline transition is
// appended here before the contact's status field is overwritten.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new status change repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends a status transition for a contact
func (r *Repository) Create(ctx context.Context, change *models.StatusChange) (*models.StatusChange, error) {
	ctx, span := tracing.StartSpan(ctx, "statuschange.Repository.Create")
	defer span.End()

	change.ChangedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("status_changes")
	sb.Cols("contact_id", "old_status", "new_status", "changed_at")
	sb.Values(change.ContactID, change.OldStatus, change.NewStatus, change.ChangedAt)

	query, args := sb.Build()
	query += " RETURNING id"

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&change.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create status change")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create status change")
	}
	return change, nil
}

// ListByContact returns a contact's status history, newest first
func (r *Repository) ListByContact(ctx context.Context, contactID int64) ([]models.StatusChange, error) {
	ctx, span := tracing.StartSpan(ctx, "statuschange.Repository.ListByContact")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "contact_id", "old_status", "new_status", "changed_at")
	sb.From("status_changes")
	sb.Where(sb.Equal("contact_id", contactID))
	sb.OrderBy("changed_at").Desc()

	query, args := sb.Build()
	var changes []models.StatusChange
	if err := r.db.SelectContext(ctx, &changes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list status changes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list status changes")
	}
	return changes, nil
}

// Reassign re-points every status change on fromContactID to toContactID and
// returns the number of rows moved
func (r *Repository) Reassign(ctx context.Context, fromContactID, toContactID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "statuschange.Repository.Reassign")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("status_changes")
	sb.Set(sb.Assign("contact_id", toContactID))
	sb.Where(sb.Equal("contact_id", fromContactID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign status changes")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign status changes")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
