package saleline

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

// Repository handles sale line persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new sale line repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a sale line for a contact
func (r *Repository) Create(ctx context.Context, line *models.SaleLine) (*models.SaleLine, error) {
	ctx, span := tracing.StartSpan(ctx, "saleline.Repository.Create")
	defer span.End()

	line.CreatedAt = time.Now().UTC()
	if line.Currency == "" {
		line.Currency = "EUR"
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("sale_lines")
	sb.Cols("contact_id", "product", "quantity", "unit_price_minor", "currency", "sale_date", "created_at")
	sb.Values(line.ContactID, line.Product, line.Quantity, line.UnitPriceMinor, line.Currency, line.SaleDate, line.CreatedAt)

	query, args := sb.Build()
	query += " RETURNING id"

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&line.ID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create sale line")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create sale line")
	}
	return line, nil
}

// ListByContact returns a contact's sale lines, oldest first
func (r *Repository) ListByContact(ctx context.Context, contactID int64) ([]models.SaleLine, error) {
	ctx, span := tracing.StartSpan(ctx, "saleline.Repository.ListByContact")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "contact_id", "product", "quantity", "unit_price_minor", "currency", "sale_date", "created_at")
	sb.From("sale_lines")
	sb.Where(sb.Equal("contact_id", contactID))
	sb.OrderBy("created_at").Asc()

	query, args := sb.Build()
	var lines []models.SaleLine
	if err := r.db.SelectContext(ctx, &lines, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sale lines")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sale lines")
	}
	return lines, nil
}

// Reassign re-points every sale line on fromContactID to toContactID and
// returns the number of rows moved
func (r *Repository) Reassign(ctx context.Context, fromContactID, toContactID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "saleline.Repository.Reassign")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("sale_lines")
	sb.Set(sb.Assign("contact_id", toContactID))
	sb.Where(sb.Equal("contact_id", fromContactID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign sale lines")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign sale lines")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
