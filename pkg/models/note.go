package models

import (
	"time"
)

// Note is a free-text annotation on a contact. Notes survive merges; when a
// duplicate contact is removed its notes are re-owned by the surviving record.
type Note struct {
	ID        int64     `json:"id" db:"id"`
	ContactID int64     `json:"contact_id" db:"contact_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateNoteRequest is the request for adding a note to a contact
type CreateNoteRequest struct {
	Body string `json:"body" validate:"required"`
}

// StatusChange records a pipeline transition. The previous status is captured
// before any update overwrites it.
type StatusChange struct {
	ID        int64     `json:"id" db:"id"`
	ContactID int64     `json:"contact_id" db:"contact_id"`
	OldStatus Status    `json:"old_status" db:"old_status"`
	NewStatus Status    `json:"new_status" db:"new_status"`
	ChangedAt time.Time `json:"changed_at" db:"changed_at"`
}
