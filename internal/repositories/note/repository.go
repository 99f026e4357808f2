package note

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

// Repository handles note persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new note repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a note for a contact
func (r *Repository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	ctx, span := tracing.StartSpan(ctx, "note.Repository.Create")
	defer span.End()

	note.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("notes")
	sb.Cols("contact_id", "body", "created_at")
	sb.Values(note.ContactID, note.Body, note.CreatedAt)

	query, args := sb.Build()
	query += " RETURNING id"

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&note.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create note")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create note")
	}
	return note, nil
}

// ExistsWithBody reports whether the contact already carries a note with an
// identical body. Repeated imports of the same export file must not stack
// duplicate notes.
func (r *Repository) ExistsWithBody(ctx context.Context, contactID int64, body string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "note.Repository.ExistsWithBody")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("notes")
	sb.Where(
		sb.Equal("contact_id", contactID),
		sb.Equal("body", body),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check note existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check note existence")
	}
	return count > 0, nil
}

// ListByContact returns a contact's notes, newest first
func (r *Repository) ListByContact(ctx context.Context, contactID int64) ([]models.Note, error) {
	ctx, span := tracing.StartSpan(ctx, "note.Repository.ListByContact")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "contact_id", "body", "created_at")
	sb.From("notes")
	sb.Where(sb.Equal("contact_id", contactID))
	sb.OrderBy("created_at").Desc()

	query, args := sb.Build()
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list notes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list notes")
	}
	return notes, nil
}

// Reassign re-points every note on fromContactID to toContactID and returns
// the number of rows moved
func (r *Repository) Reassign(ctx context.Context, fromContactID, toContactID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "note.Repository.Reassign")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("notes")
	sb.Set(sb.Assign("contact_id", toContactID))
	sb.Where(sb.Equal("contact_id", fromContactID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign notes")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign notes")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
