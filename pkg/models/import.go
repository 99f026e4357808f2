package models

// RowError records why one row of a batch was rejected
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BatchResult summarizes an import batch. Every row is accounted for:
// created + updated + len(errors) equals the number of rows processed.
type BatchResult struct {
	Processed int        `json:"processed"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Errors    []RowError `json:"errors,omitempty"`
}

// SweepResult summarizes a duplicate sweep run
type SweepResult struct {
	KeysRecomputed   int    `json:"keys_recomputed"`
	GroupsMerged     int    `json:"groups_merged"`
	ContactsDeleted  int    `json:"contacts_deleted"`
	NotesReowned     int    `json:"notes_reowned"`
	StatusesReowned  int    `json:"statuses_reowned"`
	SaleLinesReowned int    `json:"sale_lines_reowned"`
	IndexRestored    bool   `json:"index_restored"`
	SnapshotPath     string `json:"snapshot_path,omitempty"`
}

// IndexState reports the dedupe index after an ensure attempt
type IndexState struct {
	Present   bool   `json:"present"`
	SweepRan  bool   `json:"sweep_ran"`
	Degraded  bool   `json:"degraded"`
	LastError string `json:"last_error,omitempty"`
}
