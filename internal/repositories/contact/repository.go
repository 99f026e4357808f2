package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// DedupeIndexName is the partial unique index over contacts.dedupe_key.
// Rows with an empty key are exempt so unkeyable records can coexist.
const DedupeIndexName = "idx_contacts_dedupe_key"

var contactColumns = []string{
	"id", "scan_datetime", "first_name", "last_name", "job_title", "company",
	"street", "street2", "zip_code", "city", "state", "country", "phone",
	"email", "website", "category", "status", "owner", "last_touch", "gender",
	"application", "product_interest", "photo", "profile_url", "dedupe_key",
	"created_at", "updated_at",
}

// Repository handles contact persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying database handle for transactional operations.
func (r *Repository) DB() database.DB {
	return r.db
}

// Create inserts a new contact and returns it with its assigned id
func (r *Repository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Create")
	defer span.End()

	contact.CreatedAt = time.Now().UTC()
	contact.UpdatedAt = contact.CreatedAt
	if contact.Status == "" {
		contact.Status = models.StatusNew
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contacts")
	sb.Cols(contactColumns[1:]...)
	sb.Values(
		contact.ScanDatetime, contact.FirstName, contact.LastName, contact.JobTitle,
		contact.Company, contact.Street, contact.Street2, contact.ZipCode,
		contact.City, contact.State, contact.Country, contact.Phone,
		contact.Email, contact.Website, contact.Category, contact.Status,
		contact.Owner, contact.LastTouch, contact.Gender, contact.Application,
		contact.ProductInterest, contact.Photo, contact.ProfileURL,
		contact.DedupeKey, contact.CreatedAt, contact.UpdatedAt,
	)

	query, args := sb.Build()
	query += " RETURNING id"

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&contact.ID); err != nil {
		if isUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "contact with this dedupe key already exists")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": contact.ID}).Info("Created contact")
	return contact, nil
}

// Get retrieves a contact by ID
func (r *Repository) Get(ctx context.Context, id int64) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %d not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact")
	}

	return &contact, nil
}

// FindByEmail looks up a contact by its normalized email. A miss is not an
// error; it returns nil so callers can fall through to weaker lookups.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByEmail")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where(sb.Equal("email", email))
	sb.OrderBy("id").Asc()
	sb.Limit(1)

	return r.findOne(ctx, sb, "email")
}

// FindByProfileURL looks up a contact by profile URL, case-insensitively
func (r *Repository) FindByProfileURL(ctx context.Context, profileURL string) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByProfileURL")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where("LOWER(profile_url) = LOWER(" + sb.Var(profileURL) + ")")
	sb.OrderBy("id").Asc()
	sb.Limit(1)

	return r.findOne(ctx, sb, "profile url")
}

// FindByDedupeKey looks up a contact by its dedupe key
func (r *Repository) FindByDedupeKey(ctx context.Context, key string) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByDedupeKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where(sb.Equal("dedupe_key", key))
	sb.OrderBy("id").Asc()
	sb.Limit(1)

	return r.findOne(ctx, sb, "dedupe key")
}

func (r *Repository) findOne(ctx context.Context, sb *sqlbuilder.SelectBuilder, by string) (*models.Contact, error) {
	query, args := sb.Build()
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to find contact by %s", by)
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find contact")
	}
	return &contact, nil
}

// Update overwrites every mutable field on the contact row
func (r *Repository) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Update")
	defer span.End()

	contact.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contacts")
	sb.Set(
		sb.Assign("scan_datetime", contact.ScanDatetime),
		sb.Assign("first_name", contact.FirstName),
		sb.Assign("last_name", contact.LastName),
		sb.Assign("job_title", contact.JobTitle),
		sb.Assign("company", contact.Company),
		sb.Assign("street", contact.Street),
		sb.Assign("street2", contact.Street2),
		sb.Assign("zip_code", contact.ZipCode),
		sb.Assign("city", contact.City),
		sb.Assign("state", contact.State),
		sb.Assign("country", contact.Country),
		sb.Assign("phone", contact.Phone),
		sb.Assign("email", contact.Email),
		sb.Assign("website", contact.Website),
		sb.Assign("category", contact.Category),
		sb.Assign("status", contact.Status),
		sb.Assign("owner", contact.Owner),
		sb.Assign("last_touch", contact.LastTouch),
		sb.Assign("gender", contact.Gender),
		sb.Assign("application", contact.Application),
		sb.Assign("product_interest", contact.ProductInterest),
		sb.Assign("photo", contact.Photo),
		sb.Assign("profile_url", contact.ProfileURL),
		sb.Assign("dedupe_key", contact.DedupeKey),
		sb.Assign("updated_at", contact.UpdatedAt),
	)
	sb.Where(sb.Equal("id", contact.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "contact with this dedupe key already exists")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contact")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %d not found", contact.ID))
	}

	return contact, nil
}

// UpdateDedupeKey stores a freshly computed key without touching other fields
func (r *Repository) UpdateDedupeKey(ctx context.Context, id int64, key string) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.UpdateDedupeKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contacts")
	sb.Set(sb.Assign("dedupe_key", key))
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update dedupe key")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update dedupe key")
	}
	return nil
}

// List returns a page of contacts ordered by id
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.Contact, int, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}

	countQuery := "SELECT COUNT(*) FROM contacts"
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count contacts")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count contacts")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.OrderBy("id").Asc()
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list contacts")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}

	return contacts, total, nil
}

// ListAll streams every contact ordered by id. Used by the sweep to recompute
// keys and by the backup writer.
func (r *Repository) ListAll(ctx context.Context) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.OrderBy("id").Asc()

	query, args := sb.Build()
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list all contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}
	return contacts, nil
}

// DuplicateGroup is a set of contact ids sharing one non-empty dedupe key,
// ordered so the first member is the oldest record.
type DuplicateGroup struct {
	DedupeKey string        `db:"dedupe_key"`
	IDs       pq.Int64Array `db:"ids"`
}

// FindDuplicateGroups returns every dedupe key claimed by more than one contact
func (r *Repository) FindDuplicateGroups(ctx context.Context) ([]DuplicateGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindDuplicateGroups")
	defer span.End()

	query := `
		SELECT dedupe_key, array_agg(id ORDER BY id) AS ids
		FROM contacts
		WHERE dedupe_key <> ''
		GROUP BY dedupe_key
		HAVING COUNT(*) > 1
		ORDER BY dedupe_key`

	var groups []DuplicateGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find duplicate groups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find duplicate groups")
	}
	return groups, nil
}

// Delete removes a contact row. Children must be re-owned first; the schema
// cascades deletes, so anything still pointing at this row goes with it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("contacts")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete contact")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %d not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted contact")
	return nil
}

// CreateDedupeIndex creates the partial unique index on dedupe_key. Fails if
// duplicate non-empty keys currently exist.
func (r *Repository) CreateDedupeIndex(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.CreateDedupeIndex")
	defer span.End()

	query := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON contacts (dedupe_key) WHERE dedupe_key <> ''",
		DedupeIndexName,
	)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Failed to create dedupe index")
		return err
	}
	return nil
}

// DropDedupeIndex removes the partial unique index so duplicates become
// representable during a sweep
func (r *Repository) DropDedupeIndex(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.DropDedupeIndex")
	defer span.End()

	query := fmt.Sprintf("DROP INDEX IF EXISTS %s", DedupeIndexName)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to drop dedupe index")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to drop dedupe index")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
