// Package pipeline runs the per-row contact upsert: normalize, key, match,
// write, note. One transaction per row so a bad row never poisons its batch.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/identity"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ContactStore is the subset of the contact repository the pipeline needs
type ContactStore interface {
	DB() database.DB
	Create(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) (*models.Contact, error)
}

// NoteStore persists notes with duplicate-body suppression
type NoteStore interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	ExistsWithBody(ctx context.Context, contactID int64, body string) (bool, error)
}

// StatusChangeStore appends pipeline transitions
type StatusChangeStore interface {
	Create(ctx context.Context, change *models.StatusChange) (*models.StatusChange, error)
}

// Matcher locates the stored contact a row should merge into
type Matcher interface {
	FindExistingContact(ctx context.Context, key identity.Key) (*models.Contact, error)
}

// Emitter publishes contact lifecycle events after a row commits
type Emitter interface {
	EmitContactCreated(ctx context.Context, contact *models.Contact) error
	EmitContactUpdated(ctx context.Context, contact *models.Contact) error
}

// Snapshotter writes a storage backup after a batch completes
type Snapshotter interface {
	Snapshot(ctx context.Context) (string, error)
}

// Engine implements the upsert pipeline
type Engine struct {
	logger      ectologger.Logger
	contacts    ContactStore
	notes       NoteStore
	statuses    StatusChangeStore
	matcher     Matcher
	emitter     Emitter
	snapshotter Snapshotter
}

// NewEngine creates a new upsert engine. emitter and snapshotter may be nil.
func NewEngine(
	logger ectologger.Logger,
	contacts ContactStore,
	notes NoteStore,
	statuses StatusChangeStore,
	matcher Matcher,
	emitter Emitter,
	snapshotter Snapshotter,
) *Engine {
	return &Engine{
		logger:      logger,
		contacts:    contacts,
		notes:       notes,
		statuses:    statuses,
		matcher:     matcher,
		emitter:     emitter,
		snapshotter: snapshotter,
	}
}

// Upsert processes one row inside its own transaction and returns the id of
// the contact it landed on
func (e *Engine) Upsert(ctx context.Context, req models.UpsertContactRequest) (*models.UpsertContactResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.Upsert")
	defer span.End()

	key := identity.Compute(req.FirstName, req.LastName, req.Company, req.Email, req.ProfileURL)
	status := models.Status(normalizers.Status(req.Status))

	ctxTx, tx, err := e.contacts.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		metrics.RecordUpsert("error")
		return nil, err
	}
	defer tx.Rollback(ctxTx)

	existing, err := e.matcher.FindExistingContact(ctxTx, key)
	if err != nil {
		metrics.RecordUpsert("error")
		return nil, err
	}

	var contact *models.Contact
	created := existing == nil

	if existing != nil {
		// The previous status goes into the audit trail before the row's
		// values overwrite the record.
		if status != "" && status != existing.Status {
			_, err = e.statuses.Create(ctxTx, &models.StatusChange{
				ContactID: existing.ID,
				OldStatus: existing.Status,
				NewStatus: status,
			})
			if err != nil {
				metrics.RecordUpsert("error")
				return nil, err
			}
		}

		applyRow(existing, req, key, status)
		contact, err = e.contacts.Update(ctxTx, existing)
	} else {
		fresh := &models.Contact{Status: models.StatusNew}
		applyRow(fresh, req, key, status)
		contact, err = e.contacts.Create(ctxTx, fresh)
	}
	if err != nil {
		metrics.RecordUpsert("error")
		return nil, err
	}

	if err = e.attachNote(ctxTx, contact.ID, req.Note); err != nil {
		metrics.RecordUpsert("error")
		return nil, err
	}

	if err = tx.Commit(ctxTx); err != nil {
		metrics.RecordUpsert("error")
		return nil, err
	}

	e.afterCommit(ctx, contact, created)

	return &models.UpsertContactResponse{
		ContactID: contact.ID,
		Created:   created,
		DedupeKey: key.DedupeKey,
	}, nil
}

// ImportBatch processes rows sequentially, one transaction each. A failed row
// is reported and skipped; committed rows stay committed.
func (e *Engine) ImportBatch(ctx context.Context, rows []models.UpsertContactRequest) *models.BatchResult {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Engine.ImportBatch")
	defer span.End()

	metrics.RecordImportBatch(len(rows))
	result := &models.BatchResult{Processed: len(rows)}

	for i, row := range rows {
		resp, err := e.Upsert(ctx, row)
		if err != nil {
			result.Errors = append(result.Errors, models.RowError{
				Row:   i + 1,
				Error: fmt.Sprintf("%s (%s %s <%s>)", err.Error(), row.FirstName, row.LastName, row.Email),
			})
			continue
		}
		if resp.Created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"processed": result.Processed,
		"created":   result.Created,
		"updated":   result.Updated,
		"failed":    len(result.Errors),
	}).Info("Import batch completed")

	if e.snapshotter != nil {
		if _, err := e.snapshotter.Snapshot(ctx); err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("Failed to write backup snapshot after batch")
		}
	}

	return result
}

func (e *Engine) attachNote(ctx context.Context, contactID int64, raw string) error {
	body := SanitizeNote(raw)
	if body == "" {
		return nil
	}

	exists, err := e.notes.ExistsWithBody(ctx, contactID, body)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = e.notes.Create(ctx, &models.Note{ContactID: contactID, Body: body})
	return err
}

func (e *Engine) afterCommit(ctx context.Context, contact *models.Contact, created bool) {
	if created {
		metrics.RecordUpsert("created")
	} else {
		metrics.RecordUpsert("updated")
	}

	if e.emitter == nil {
		return
	}
	var err error
	if created {
		err = e.emitter.EmitContactCreated(ctx, contact)
	} else {
		err = e.emitter.EmitContactUpdated(ctx, contact)
	}
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("Failed to emit contact event")
	}
}

// applyRow overwrites the contact's fields with the row's values. Imports are
// authoritative for re-imported fields; identity fields are stored normalized
// so exact-match lookups hold across sessions.
func applyRow(contact *models.Contact, req models.UpsertContactRequest, key identity.Key, status models.Status) {
	contact.ScanDatetime = req.ScanDatetime
	contact.FirstName = req.FirstName
	contact.LastName = req.LastName
	contact.JobTitle = req.JobTitle
	contact.Company = req.Company
	contact.Street = req.Street
	contact.Street2 = req.Street2
	contact.ZipCode = req.ZipCode
	contact.City = req.City
	contact.State = req.State
	contact.Country = req.Country
	contact.Phone = req.Phone
	contact.Email = key.Email
	contact.Website = req.Website
	contact.Category = req.Category
	contact.Owner = req.Owner
	contact.LastTouch = req.LastTouch
	contact.Gender = req.Gender
	contact.Application = req.Application
	contact.ProductInterest = req.ProductInterest
	contact.Photo = req.Photo
	contact.ProfileURL = key.ProfileURL
	contact.DedupeKey = key.DedupeKey
	if status != "" {
		contact.Status = status
	}
}
