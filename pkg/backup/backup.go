// Package backup writes CSV snapshots of the contact table after mutating
// batch operations.
package backup

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var header = []string{
	"id", "scan_datetime", "first_name", "last_name", "job_title", "company",
	"street", "street2", "zip_code", "city", "state", "country", "phone",
	"email", "website", "category", "status", "owner", "last_touch", "gender",
	"application", "product_interest", "photo", "profile_url", "dedupe_key",
	"created_at", "updated_at",
}

// ContactLister provides the full contact table for a snapshot
type ContactLister interface {
	ListAll(ctx context.Context) ([]models.Contact, error)
}

// Writer writes timestamped CSV snapshots to a directory
type Writer struct {
	dir      string
	contacts ContactLister
	logger   ectologger.Logger
}

// NewWriter creates a snapshot writer rooted at dir
func NewWriter(dir string, contacts ContactLister, logger ectologger.Logger) *Writer {
	return &Writer{
		dir:      dir,
		contacts: contacts,
		logger:   logger,
	}
}

// Snapshot dumps every contact to a new timestamped CSV file and returns its path
func (w *Writer) Snapshot(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "backup.Writer.Snapshot")
	defer span.End()

	contacts, err := w.contacts.ListAll(ctx)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("contacts_backup_%s.csv", time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(w.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err = cw.Write(header); err != nil {
		return "", err
	}

	for _, c := range contacts {
		record := []string{
			strconv.FormatInt(c.ID, 10),
			c.ScanDatetime, c.FirstName, c.LastName, c.JobTitle, c.Company,
			c.Street, c.Street2, c.ZipCode, c.City, c.State, c.Country, c.Phone,
			c.Email, c.Website, c.Category, string(c.Status), c.Owner,
			c.LastTouch, c.Gender, c.Application, c.ProductInterest, c.Photo,
			c.ProfileURL, c.DedupeKey,
			c.CreatedAt.UTC().Format(time.RFC3339),
			c.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err = cw.Write(record); err != nil {
			return "", err
		}
	}

	cw.Flush()
	if err = cw.Error(); err != nil {
		return "", err
	}

	w.logger.WithContext(ctx).WithFields(map[string]any{
		"path":     path,
		"contacts": len(contacts),
	}).Info("Wrote contact snapshot")

	return path, nil
}
