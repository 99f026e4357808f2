package models

import (
	"time"
)

// Status is a contact's position in the sales pipeline
type Status string

const (
	StatusNew        Status = "New"
	StatusContacted  Status = "Contacted"
	StatusMeeting    Status = "Meeting"
	StatusQuoted     Status = "Quoted"
	StatusWon        Status = "Won"
	StatusLost       Status = "Lost"
	StatusNurture    Status = "Nurture"
	StatusPending    Status = "Pending"
	StatusOnHold     Status = "On hold"
	StatusIrrelevant Status = "Irrelevant"
)

// Pipeline lists the valid statuses in pipeline order
var Pipeline = []Status{
	StatusNew,
	StatusContacted,
	StatusMeeting,
	StatusQuoted,
	StatusWon,
	StatusLost,
	StatusNurture,
	StatusPending,
	StatusOnHold,
	StatusIrrelevant,
}

// IsValidStatus returns true if s is one of the pipeline statuses
func IsValidStatus(s Status) bool {
	for _, p := range Pipeline {
		if p == s {
			return true
		}
	}
	return false
}

// Contact is a lead record. Identity fields (email, profile_url, name+company)
// feed the dedupe key; the remaining fields are carried as scanned.
// Field order matches schema: id, scan_datetime, first_name, last_name, ...
type Contact struct {
	ID              int64     `json:"id" db:"id"`
	ScanDatetime    string    `json:"scan_datetime,omitempty" db:"scan_datetime"`
	FirstName       string    `json:"first_name,omitempty" db:"first_name"`
	LastName        string    `json:"last_name,omitempty" db:"last_name"`
	JobTitle        string    `json:"job_title,omitempty" db:"job_title"`
	Company         string    `json:"company,omitempty" db:"company"`
	Street          string    `json:"street,omitempty" db:"street"`
	Street2         string    `json:"street2,omitempty" db:"street2"`
	ZipCode         string    `json:"zip_code,omitempty" db:"zip_code"`
	City            string    `json:"city,omitempty" db:"city"`
	State           string    `json:"state,omitempty" db:"state"`
	Country         string    `json:"country,omitempty" db:"country"`
	Phone           string    `json:"phone,omitempty" db:"phone"`
	Email           string    `json:"email,omitempty" db:"email"`
	Website         string    `json:"website,omitempty" db:"website"`
	Category        string    `json:"category,omitempty" db:"category"`
	Status          Status    `json:"status" db:"status"`
	Owner           string    `json:"owner,omitempty" db:"owner"`
	LastTouch       string    `json:"last_touch,omitempty" db:"last_touch"`
	Gender          string    `json:"gender,omitempty" db:"gender"`
	Application     string    `json:"application,omitempty" db:"application"`
	ProductInterest string    `json:"product_interest,omitempty" db:"product_interest"`
	Photo           string    `json:"photo,omitempty" db:"photo"`
	ProfileURL      string    `json:"profile_url,omitempty" db:"profile_url"`
	DedupeKey       string    `json:"dedupe_key" db:"dedupe_key"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertContactRequest carries one inbound row through the upsert pipeline.
// All fields are optional; rows with no usable identity are still inserted,
// they just never auto-match anything.
type UpsertContactRequest struct {
	ScanDatetime    string `json:"scan_datetime,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	JobTitle        string `json:"job_title,omitempty"`
	Company         string `json:"company,omitempty"`
	Street          string `json:"street,omitempty"`
	Street2         string `json:"street2,omitempty"`
	ZipCode         string `json:"zip_code,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	Country         string `json:"country,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	Website         string `json:"website,omitempty"`
	Category        string `json:"category,omitempty"`
	Status          string `json:"status,omitempty"`
	Owner           string `json:"owner,omitempty"`
	LastTouch       string `json:"last_touch,omitempty"`
	Gender          string `json:"gender,omitempty"`
	Application     string `json:"application,omitempty"`
	ProductInterest string `json:"product_interest,omitempty"`
	Photo           string `json:"photo,omitempty"`
	ProfileURL      string `json:"profile_url,omitempty"`
	Note            string `json:"note,omitempty"`
}

// UpsertContactResponse reports the outcome of a single row upsert
type UpsertContactResponse struct {
	ContactID int64  `json:"contact_id"`
	Created   bool   `json:"created"`
	DedupeKey string `json:"dedupe_key"`
}

// ContactListResponse is the response for listing contacts
type ContactListResponse struct {
	Items      []Contact `json:"items"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
}
