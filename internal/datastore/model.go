// model.go defines the persisted data model for captures, inventory
// and the spreadsheet projection.
package datastore

import "time"

// AnalysisStatus is the lifecycle state of a capture's analysis run.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

// Terminal reports whether no further transition is defined out of
// this status.
func (s AnalysisStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// legalTransitions enumerates the only allowed status changes:
// pending → processing → {completed, failed}.
var legalTransitions = map[AnalysisStatus][]AnalysisStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

func transitionAllowed(from, to AnalysisStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Capture represents one uploaded or captured image and the state of
// its analysis. The raw payload is owned by the ingest path; the
// pipeline reads it and mutates only the analysis columns.
type Capture struct {
	ID        string `gorm:"primaryKey;size:36"`
	ProjectID string `gorm:"size:36;not null;index:idx_captures_project"`
	UserID    string `gorm:"size:64;index:idx_captures_owner"`
	OrgID     string `gorm:"size:64;index:idx_captures_owner"`

	MimeType string `gorm:"size:64"`
	Payload  []byte `gorm:"type:blob"`

	AnalysisStatus  AnalysisStatus `gorm:"size:16;not null;default:pending;index:idx_captures_status"`
	AnalysisSummary string         `gorm:"type:text"`
	ItemCount       int
	TotalBoxCount   int
	ErrorMessage    string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InventoryItem is one enriched detected item, written once per
// successful pipeline run and never merged across captures. The box
// recommendation is flattened into the row; BoxType is empty for
// furniture-class items.
type InventoryItem struct {
	ID        uint   `gorm:"primaryKey"`
	CaptureID string `gorm:"size:36;not null;index:idx_items_capture"`
	ProjectID string `gorm:"size:36;not null;index:idx_items_project"`
	UserID    string `gorm:"size:64;index:idx_items_owner"`
	OrgID     string `gorm:"size:64;index:idx_items_owner"`

	Name         string `gorm:"size:255;not null"`
	Description  string `gorm:"type:text"`
	Category     string `gorm:"size:64"`
	Quantity     int
	Location     string `gorm:"size:64"`
	Volume       float64
	Weight       float64
	Fragile      bool
	HandlingNote string `gorm:"type:text"`

	BoxType       string `gorm:"size:32"`
	BoxQuantity   int
	BoxDimensions string `gorm:"size:64"`

	CreatedAt time.Time
}

// SpreadsheetProjection is the per-project, per-owner tabular view of
// inventory. One projection exists per (project, owner scope); its
// rows live in SpreadsheetRow and are only ever appended.
type SpreadsheetProjection struct {
	ID        uint   `gorm:"primaryKey"`
	ProjectID string `gorm:"size:36;not null;uniqueIndex:idx_projection_scope"`
	UserID    string `gorm:"size:64;uniqueIndex:idx_projection_scope"`
	OrgID     string `gorm:"size:64;uniqueIndex:idx_projection_scope"`

	// Columns is the JSON-encoded header row, written with defaults
	// when the projection is first created.
	Columns string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultColumns is the header schema written when a projection is
// created on first append.
const DefaultColumns = `["Location","Item","Volume (cu ft)","Weight (lbs)"]`

// SpreadsheetRow is one appended projection row mirroring a subset of
// InventoryItem fields for tabular display.
type SpreadsheetRow struct {
	ID           uint   `gorm:"primaryKey"`
	ProjectionID uint   `gorm:"not null;index:idx_rows_projection"`
	CaptureID    string `gorm:"size:36;index:idx_rows_capture"`

	Location string `gorm:"size:64"`
	Name     string `gorm:"size:255"`
	Volume   float64
	Weight   float64

	CreatedAt time.Time
}

// Project holds the pipeline-relevant slice of a project: identity,
// ownership and the last-updated timestamp the fan-out touches.
type Project struct {
	ID     string `gorm:"primaryKey;size:36"`
	Name   string `gorm:"size:255"`
	UserID string `gorm:"size:64;index:idx_projects_owner"`
	OrgID  string `gorm:"size:64;index:idx_projects_owner"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
