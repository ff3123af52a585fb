// Package datastore persists captures, inventory items and the
// spreadsheet projection behind a single interface with SQLite and
// MySQL implementations. Every read and write is narrowed by the
// caller's ownership scope.
package datastore

import (
	"context"

	"gorm.io/gorm"

	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/scope"
)

// StatusDetails carries the analysis columns written together with a
// status transition.
type StatusDetails struct {
	Summary       string
	ItemCount     int
	TotalBoxCount int
	ErrorMessage  string
}

// Interface is the contract the pipeline depends on.
type Interface interface {
	Open() error
	Close() error

	CreateProject(ctx context.Context, project *Project) error
	TouchProject(ctx context.Context, projectID string, sc scope.Scope) error

	CreateCapture(ctx context.Context, capture *Capture) error
	GetCapture(ctx context.Context, captureID string, sc scope.Scope) (*Capture, error)
	UpdateCaptureStatus(ctx context.Context, captureID string, status AnalysisStatus, details StatusDetails) error

	InsertInventoryItems(ctx context.Context, items []InventoryItem) (int, error)
	ListInventoryItems(ctx context.Context, projectID string, sc scope.Scope) ([]InventoryItem, error)
	CountInventoryItems(ctx context.Context, projectID string, sc scope.Scope) (int64, error)

	AppendSpreadsheetRows(ctx context.Context, projectID string, sc scope.Scope, rows []SpreadsheetRow) error
	CountSpreadsheetRows(ctx context.Context, projectID string, sc scope.Scope) (int64, error)
}

// DataStore implements the store operations shared by all backends.
type DataStore struct {
	DB *gorm.DB
}

// New returns the store matching the enabled output backend.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// CreateProject inserts a project row.
func (ds *DataStore) CreateProject(ctx context.Context, project *Project) error {
	if err := ds.DB.WithContext(ctx).Create(project).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_project").
			Build()
	}
	return nil
}

// TouchProject bumps the project's last-updated timestamp.
func (ds *DataStore) TouchProject(ctx context.Context, projectID string, sc scope.Scope) error {
	tx := sc.Filter(ds.DB.WithContext(ctx).Model(&Project{}).Where("id = ?", projectID))
	result := tx.Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if result.Error != nil {
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "touch_project").
			Build()
	}
	if result.RowsAffected == 0 {
		return errors.Newf("project %s not found in scope", projectID).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("operation", "touch_project").
			Build()
	}
	return nil
}

// CreateCapture inserts a capture row. New captures start in pending
// unless the caller set a status explicitly.
func (ds *DataStore) CreateCapture(ctx context.Context, capture *Capture) error {
	if capture.AnalysisStatus == "" {
		capture.AnalysisStatus = StatusPending
	}
	if err := ds.DB.WithContext(ctx).Create(capture).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_capture").
			Build()
	}
	return nil
}

// GetCapture fetches one capture visible to the given scope.
func (ds *DataStore) GetCapture(ctx context.Context, captureID string, sc scope.Scope) (*Capture, error) {
	var capture Capture
	tx := sc.Filter(ds.DB.WithContext(ctx).Where("id = ?", captureID))
	if err := tx.First(&capture).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("capture %s not found in scope", captureID).
				Component("datastore").
				Category(errors.CategoryNotFound).
				Context("operation", "get_capture").
				Build()
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_capture").
			Build()
	}
	return &capture, nil
}

// UpdateCaptureStatus moves a capture along the analysis lifecycle and
// records the accompanying details. Only pending→processing and
// processing→{completed,failed} are accepted; anything else is
// rejected without modifying the row.
func (ds *DataStore) UpdateCaptureStatus(ctx context.Context, captureID string, status AnalysisStatus, details StatusDetails) error {
	return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var capture Capture
		if err := tx.Where("id = ?", captureID).First(&capture).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Newf("capture %s not found", captureID).
					Component("datastore").
					Category(errors.CategoryNotFound).
					Context("operation", "update_capture_status").
					Build()
			}
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "update_capture_status").
				Build()
		}

		if !transitionAllowed(capture.AnalysisStatus, status) {
			return errors.Newf("illegal status transition %s → %s", capture.AnalysisStatus, status).
				Component("datastore").
				Category(errors.CategoryState).
				Context("operation", "update_capture_status").
				Context("capture_id", captureID).
				Build()
		}

		updates := map[string]any{
			"analysis_status":  status,
			"analysis_summary": details.Summary,
			"item_count":       details.ItemCount,
			"total_box_count":  details.TotalBoxCount,
			"error_message":    details.ErrorMessage,
		}
		if err := tx.Model(&Capture{}).Where("id = ?", captureID).Updates(updates).Error; err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "update_capture_status").
				Build()
		}
		return nil
	})
}

// InsertInventoryItems writes all items in one transaction and returns
// the number written. All-or-nothing: a failure leaves no items behind.
func (ds *DataStore) InsertInventoryItems(ctx context.Context, items []InventoryItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "insert_inventory_items").
			Context("item_count", len(items)).
			Build()
	}
	return len(items), nil
}

// ListInventoryItems returns a project's items visible to the scope,
// oldest first.
func (ds *DataStore) ListInventoryItems(ctx context.Context, projectID string, sc scope.Scope) ([]InventoryItem, error) {
	var items []InventoryItem
	tx := sc.Filter(ds.DB.WithContext(ctx).Where("project_id = ?", projectID))
	if err := tx.Order("id").Find(&items).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list_inventory_items").
			Build()
	}
	return items, nil
}

// CountInventoryItems counts a project's items visible to the scope.
func (ds *DataStore) CountInventoryItems(ctx context.Context, projectID string, sc scope.Scope) (int64, error) {
	var count int64
	tx := sc.Filter(ds.DB.WithContext(ctx).Model(&InventoryItem{}).Where("project_id = ?", projectID))
	if err := tx.Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_inventory_items").
			Build()
	}
	return count, nil
}

// AppendSpreadsheetRows finds or creates the projection for the
// (project, scope) pair and appends the rows. Rows are inserted, never
// rewritten, so concurrent appends from different runs interleave
// safely.
func (ds *DataStore) AppendSpreadsheetRows(ctx context.Context, projectID string, sc scope.Scope, rows []SpreadsheetRow) error {
	if len(rows) == 0 {
		return nil
	}
	userID, orgID := sc.Owner()
	return ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var projection SpreadsheetProjection
		err := tx.Where("project_id = ? AND user_id = ? AND org_id = ?",
			projectID, userID, orgID).First(&projection).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			projection = SpreadsheetProjection{
				ProjectID: projectID,
				UserID:    userID,
				OrgID:     orgID,
				Columns:   DefaultColumns,
			}
			if err := tx.Create(&projection).Error; err != nil {
				return errors.New(err).
					Component("datastore").
					Category(errors.CategorySpreadsheet).
					Context("operation", "create_projection").
					Build()
			}
		case err != nil:
			return errors.New(err).
				Component("datastore").
				Category(errors.CategorySpreadsheet).
				Context("operation", "find_projection").
				Build()
		}

		for i := range rows {
			rows[i].ProjectionID = projection.ID
		}
		if err := tx.Create(&rows).Error; err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategorySpreadsheet).
				Context("operation", "append_rows").
				Context("row_count", len(rows)).
				Build()
		}

		return tx.Model(&projection).Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
	})
}

// CountSpreadsheetRows counts appended rows for the (project, scope)
// projection. A missing projection counts as zero.
func (ds *DataStore) CountSpreadsheetRows(ctx context.Context, projectID string, sc scope.Scope) (int64, error) {
	userID, orgID := sc.Owner()
	var projection SpreadsheetProjection
	err := ds.DB.WithContext(ctx).Where("project_id = ? AND user_id = ? AND org_id = ?",
		projectID, userID, orgID).First(&projection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategorySpreadsheet).
			Context("operation", "count_rows").
			Build()
	}

	var count int64
	if err := ds.DB.WithContext(ctx).Model(&SpreadsheetRow{}).
		Where("projection_id = ?", projection.ID).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategorySpreadsheet).
			Context("operation", "count_rows").
			Build()
	}
	return count, nil
}
