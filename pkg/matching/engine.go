// Package matching finds the stored contact a candidate row should merge into
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/identity"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ContactFinder is the subset of the contact repository the matcher needs.
// Each lookup returns nil on a miss rather than an error.
type ContactFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Contact, error)
	FindByProfileURL(ctx context.Context, profileURL string) (*models.Contact, error)
	FindByDedupeKey(ctx context.Context, key string) (*models.Contact, error)
}

// Engine implements contact matching logic
type Engine struct {
	logger   ectologger.Logger
	contacts ContactFinder
}

// NewEngine creates a new match engine
func NewEngine(logger ectologger.Logger, contacts ContactFinder) *Engine {
	return &Engine{
		logger:   logger,
		contacts: contacts,
	}
}

// FindExistingContact looks up the contact a candidate should merge into.
// Email wins over profile URL, which wins over the dedupe key; the stronger
// identifiers stay reliable even when the computed keys of two rows differ.
// Returns nil when nothing matches.
func (e *Engine) FindExistingContact(ctx context.Context, key identity.Key) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.FindExistingContact")
	defer span.End()

	if key.Email != "" {
		contact, err := e.contacts.FindByEmail(ctx, key.Email)
		if err != nil {
			return nil, err
		}
		if contact != nil {
			return contact, nil
		}
	}

	if key.ProfileURL != "" {
		contact, err := e.contacts.FindByProfileURL(ctx, key.ProfileURL)
		if err != nil {
			return nil, err
		}
		if contact != nil {
			return contact, nil
		}
	}

	if key.DedupeKey != "" {
		contact, err := e.contacts.FindByDedupeKey(ctx, key.DedupeKey)
		if err != nil {
			return nil, err
		}
		if contact != nil {
			return contact, nil
		}
	}

	return nil, nil
}
