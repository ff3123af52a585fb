// Package analysis orchestrates one capture's journey from raw image
// to enriched inventory: vision analysis, deterministic enrichment,
// multi-store fan-out and status propagation. The orchestrator is the
// sole writer of a capture's analysis status.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/boxlens/boxlens-go/internal/broadcast"
	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/datastore"
	"github.com/boxlens/boxlens-go/internal/enrich"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/logging"
	"github.com/boxlens/boxlens-go/internal/notifier"
	"github.com/boxlens/boxlens-go/internal/observability"
	"github.com/boxlens/boxlens-go/internal/scope"
	"github.com/boxlens/boxlens-go/internal/vision"
)

// Result summarizes one successful pipeline run.
type Result struct {
	ItemsProcessed     int  `json:"items_processed"`
	TotalBoxes         int  `json:"total_boxes"`
	SpreadsheetUpdated bool `json:"spreadsheet_updated"`
}

// Pipeline runs capture analysis end to end. Safe for concurrent use;
// concurrency across runs is bounded by Pipeline.MaxConcurrent.
type Pipeline struct {
	settings    *conf.Settings
	store       datastore.Interface
	analyzer    vision.Analyzer
	broadcaster *broadcast.Broadcaster
	notifier    *notifier.Notifier
	metrics     *observability.Metrics
	sem         *semaphore.Weighted
	logger      *slog.Logger
}

// New assembles a pipeline. The metrics argument may be nil.
func New(settings *conf.Settings, store datastore.Interface, analyzer vision.Analyzer,
	broadcaster *broadcast.Broadcaster, pushNotifier *notifier.Notifier,
	metrics *observability.Metrics) *Pipeline {

	maxConcurrent := settings.Pipeline.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pipeline{
		settings:    settings,
		store:       store,
		analyzer:    analyzer,
		broadcaster: broadcaster,
		notifier:    pushNotifier,
		metrics:     metrics,
		sem:         semaphore.NewWeighted(maxConcurrent),
		logger:      logging.ForService("analysis"),
	}
}

// Run analyzes one capture synchronously. An unknown capture aborts
// before any status mutation; every other failure mode lands the
// capture in a terminal status.
func (p *Pipeline) Run(ctx context.Context, captureID, projectID string, sc scope.Scope) (Result, error) {
	if err := sc.Validate(); err != nil {
		return Result{}, err
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Result{}, errors.New(err).
			Component("analysis").
			Category(errors.CategoryCancellation).
			Context("operation", "acquire_slot").
			Build()
	}
	defer p.sem.Release(1)

	start := time.Now()
	if p.metrics != nil {
		p.metrics.Pipeline.RecordRunStarted()
	}

	capture, err := p.store.GetCapture(ctx, captureID, sc)
	if err != nil {
		// No status mutation for a capture we cannot see.
		return Result{}, err
	}

	if err := p.store.UpdateCaptureStatus(ctx, captureID, datastore.StatusProcessing, datastore.StatusDetails{}); err != nil {
		return Result{}, err
	}
	p.broadcaster.UpdateStatus(broadcast.CaptureStatus{
		CaptureID: captureID,
		ProjectID: projectID,
		Status:    string(datastore.StatusProcessing),
	})

	analysis, err := p.analyzer.Analyze(ctx, capture.Payload, capture.MimeType)
	if err != nil {
		return Result{}, p.fail(ctx, captureID, projectID, start, err)
	}

	items := make([]enrich.Item, 0, len(analysis.Items))
	for _, detected := range analysis.Items {
		items = append(items, enrich.Enrich(detected))
	}
	totalBoxes := enrich.TotalBoxes(items)

	outcome := p.fanOut(ctx, capture, sc, projectID, items)
	if outcome.inventoryErr != nil {
		return Result{}, p.fail(ctx, captureID, projectID, start, outcome.inventoryErr)
	}

	details := datastore.StatusDetails{
		Summary:       analysis.Summary,
		ItemCount:     len(items),
		TotalBoxCount: totalBoxes,
	}
	if err := p.store.UpdateCaptureStatus(ctx, captureID, datastore.StatusCompleted, details); err != nil {
		return Result{}, err
	}

	status := broadcast.CaptureStatus{
		CaptureID:     captureID,
		ProjectID:     projectID,
		Summary:       analysis.Summary,
		ItemCount:     len(items),
		TotalBoxCount: totalBoxes,
	}
	p.broadcaster.Completed(status)
	p.notifier.NotifyCompleted(status)

	if p.metrics != nil {
		p.metrics.Pipeline.RecordRunFinished(string(datastore.StatusCompleted), time.Since(start).Seconds())
		p.metrics.Pipeline.RecordItemsEnriched(len(items), totalBoxes)
	}
	p.logger.Info("analysis completed",
		"capture_id", captureID,
		"project_id", projectID,
		"items", len(items),
		"boxes", totalBoxes,
		"spreadsheet_updated", outcome.spreadsheetUpdated,
		"duration", time.Since(start))

	return Result{
		ItemsProcessed:     len(items),
		TotalBoxes:         totalBoxes,
		SpreadsheetUpdated: outcome.spreadsheetUpdated,
	}, nil
}

// RunAsync schedules a run on its own goroutine, detached from the
// caller's request context.
func (p *Pipeline) RunAsync(captureID, projectID string, sc scope.Scope) {
	go func() {
		if _, err := p.Run(context.Background(), captureID, projectID, sc); err != nil {
			p.logger.Error("analysis run failed",
				"capture_id", captureID,
				"project_id", projectID,
				"error", err)
		}
	}()
}

// fanOutOutcome carries the per-step results of the persistence
// fan-out. Only the inventory error propagates.
type fanOutOutcome struct {
	inventoryErr       error
	spreadsheetUpdated bool
}

// fanOut writes the enriched items into every downstream store. Every
// step is attempted regardless of prior failures; only the inventory
// insert is fatal, the rest are logged and tolerated.
func (p *Pipeline) fanOut(ctx context.Context, capture *datastore.Capture, sc scope.Scope, projectID string, items []enrich.Item) fanOutOutcome {
	var outcome fanOutOutcome

	inventory := make([]datastore.InventoryItem, 0, len(items))
	rows := make([]datastore.SpreadsheetRow, 0, len(items))
	for i := range items {
		inventory = append(inventory, toInventoryItem(&items[i], capture, projectID))
		rows = append(rows, datastore.SpreadsheetRow{
			CaptureID: capture.ID,
			Location:  items[i].Location,
			Name:      items[i].Name,
			Volume:    items[i].Volume,
			Weight:    items[i].Weight,
		})
	}

	if _, err := p.store.InsertInventoryItems(ctx, inventory); err != nil {
		outcome.inventoryErr = err
	}

	if err := p.store.AppendSpreadsheetRows(ctx, projectID, sc, rows); err != nil {
		p.logger.Error("spreadsheet append failed, continuing",
			"capture_id", capture.ID,
			"project_id", projectID,
			"error", err)
		if p.metrics != nil {
			p.metrics.Pipeline.RecordFanOutError("spreadsheet")
		}
	} else {
		outcome.spreadsheetUpdated = len(rows) > 0
	}

	if err := p.store.TouchProject(ctx, projectID, sc); err != nil {
		p.logger.Error("project touch failed, continuing",
			"capture_id", capture.ID,
			"project_id", projectID,
			"error", err)
		if p.metrics != nil {
			p.metrics.Pipeline.RecordFanOutError("project_touch")
		}
	}

	return outcome
}

// fail lands the capture in failed state and propagates the original
// error. A failure while recording the failure is logged, not
// returned, so the root cause survives.
func (p *Pipeline) fail(ctx context.Context, captureID, projectID string, start time.Time, cause error) error {
	details := datastore.StatusDetails{ErrorMessage: cause.Error()}
	if err := p.store.UpdateCaptureStatus(ctx, captureID, datastore.StatusFailed, details); err != nil {
		p.logger.Error("failed to record failure status",
			"capture_id", captureID,
			"error", err)
	}

	status := broadcast.CaptureStatus{
		CaptureID:    captureID,
		ProjectID:    projectID,
		ErrorMessage: cause.Error(),
	}
	p.broadcaster.Error(status, cause.Error())
	p.notifier.NotifyFailed(status)

	if p.metrics != nil {
		p.metrics.Pipeline.RecordRunFinished(string(datastore.StatusFailed), time.Since(start).Seconds())
	}
	p.logger.Error("analysis failed",
		"capture_id", captureID,
		"project_id", projectID,
		"error", cause)
	return cause
}

func toInventoryItem(item *enrich.Item, capture *datastore.Capture, projectID string) datastore.InventoryItem {
	row := datastore.InventoryItem{
		CaptureID:    capture.ID,
		ProjectID:    projectID,
		UserID:       capture.UserID,
		OrgID:        capture.OrgID,
		Name:         item.Name,
		Description:  item.Description,
		Category:     item.Category,
		Quantity:     item.Quantity,
		Location:     item.Location,
		Volume:       item.Volume,
		Weight:       item.Weight,
		Fragile:      item.Fragile,
		HandlingNote: item.HandlingNote,
	}
	if item.Box != nil {
		row.BoxType = item.Box.BoxType
		row.BoxQuantity = item.Box.Quantity
		row.BoxDimensions = item.Box.Dimensions
	}
	return row
}
