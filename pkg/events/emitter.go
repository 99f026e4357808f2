// Package events handles event emission for contact lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes contact lifecycle events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitContactCreated emits a contact created event
func (e *Emitter) EmitContactCreated(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContactCreated")
	defer span.End()

	return e.emit(ctx, "contact.created", contact, nil)
}

// EmitContactUpdated emits a contact updated event
func (e *Emitter) EmitContactUpdated(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContactUpdated")
	defer span.End()

	return e.emit(ctx, "contact.updated", contact, nil)
}

// EmitContactsMerged emits a merge event for one duplicate group
func (e *Emitter) EmitContactsMerged(ctx context.Context, winnerID int64, loserIDs []int64, dedupeKey string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitContactsMerged")
	defer span.End()

	event := &kafka.ContactEvent{
		EventType: "contact.merged",
		ContactID: winnerID,
		DedupeKey: dedupeKey,
		MergedIDs: loserIDs,
	}
	if err := e.producer.PublishContactEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit contact.merged event")
		return err
	}
	return nil
}

func (e *Emitter) emit(ctx context.Context, eventType string, contact *models.Contact, mergedIDs []int64) error {
	data, _ := json.Marshal(map[string]any{
		"schema_version": SchemaVersion,
		"contact":        contact,
	})

	event := &kafka.ContactEvent{
		EventType: eventType,
		ContactID: contact.ID,
		DedupeKey: contact.DedupeKey,
		Data:      data,
		MergedIDs: mergedIDs,
	}

	if err := e.producer.PublishContactEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}
	return nil
}
