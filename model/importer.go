package model

// SourceResult aggregates one adapter invocation: the tracks harvested this
// run plus the non-fatal errors swallowed along the way. It lives only for the
// duration of a run; the orchestrator derives ImportStats from it and drops it.
type SourceResult struct {
	Source string        `json:"source"`
	Tracks []TrackRecord `json:"tracks"`
	Errors []string      `json:"errors"`
}

// AddError records a non-fatal, human-readable failure for this source.
func (r *SourceResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// ImportStats is the per-source run summary. Derived, logged, never persisted.
type ImportStats struct {
	Source     string `json:"source"`
	Fetched    int    `json:"fetched"`
	New        int    `json:"new"`
	Duplicates int    `json:"duplicates"`
	Errors     int    `json:"errors"`
}

// CursorDoc is one row of import_cursors: the externally persisted progress
// marker for a single source. Payload is opaque to everything except the
// owning adapter.
type CursorDoc struct {
	Source    string `gorm:"primaryKey;size:100" json:"source"`
	Payload   string `gorm:"type:text" json:"payload"`
	UpdatedAt int64  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName pins the cursor table name.
func (CursorDoc) TableName() string {
	return "import_cursors"
}
