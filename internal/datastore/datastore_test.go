package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/logging"
	"github.com/boxlens/boxlens-go/internal/scope"
)

func TestMain(m *testing.M) {
	logging.Init()
	os.Exit(m.Run())
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "boxlens-test.db")

	store := &SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func seedCapture(t *testing.T, store *SQLiteStore, projectID string, sc scope.Scope) *Capture {
	t.Helper()

	userID, orgID := sc.Owner()
	capture := &Capture{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		OrgID:     orgID,
		MimeType:  "image/jpeg",
		Payload:   []byte{0xff, 0xd8},
	}
	require.NoError(t, store.CreateCapture(context.Background(), capture))
	return capture
}

func TestGetCaptureScopeIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	personal := scope.Personal("user-1")
	org := scope.Organization("org-1")

	personalCapture := seedCapture(t, store, "proj-1", personal)
	orgCapture := seedCapture(t, store, "proj-1", org)

	got, err := store.GetCapture(ctx, personalCapture.ID, personal)
	require.NoError(t, err)
	assert.Equal(t, personalCapture.ID, got.ID)
	assert.Equal(t, StatusPending, got.AnalysisStatus)

	// The org scope must not see the personal capture and vice versa.
	_, err = store.GetCapture(ctx, personalCapture.ID, org)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))

	_, err = store.GetCapture(ctx, orgCapture.ID, personal)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))

	// Another user in personal scope sees nothing either.
	_, err = store.GetCapture(ctx, personalCapture.ID, scope.Personal("user-2"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestGetCaptureUnknownID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCapture(context.Background(), uuid.NewString(), scope.Personal("user-1"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestUpdateCaptureStatusLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sc := scope.Personal("user-1")
	capture := seedCapture(t, store, "proj-1", sc)

	require.NoError(t, store.UpdateCaptureStatus(ctx, capture.ID, StatusProcessing, StatusDetails{}))

	details := StatusDetails{Summary: "a living room", ItemCount: 4, TotalBoxCount: 6}
	require.NoError(t, store.UpdateCaptureStatus(ctx, capture.ID, StatusCompleted, details))

	got, err := store.GetCapture(ctx, capture.ID, sc)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.AnalysisStatus)
	assert.Equal(t, "a living room", got.AnalysisSummary)
	assert.Equal(t, 4, got.ItemCount)
	assert.Equal(t, 6, got.TotalBoxCount)
	assert.Empty(t, got.ErrorMessage)
}

func TestUpdateCaptureStatusRejectsIllegalTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sc := scope.Personal("user-1")

	cases := []struct {
		name string
		from AnalysisStatus
		to   AnalysisStatus
	}{
		{"pending to completed", StatusPending, StatusCompleted},
		{"pending to failed", StatusPending, StatusFailed},
		{"completed to processing", StatusCompleted, StatusProcessing},
		{"completed to failed", StatusCompleted, StatusFailed},
		{"failed to completed", StatusFailed, StatusCompleted},
		{"failed to processing", StatusFailed, StatusProcessing},
		{"processing to pending", StatusProcessing, StatusPending},
		{"processing to processing", StatusProcessing, StatusProcessing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			capture := seedCapture(t, store, "proj-1", sc)
			// Walk the capture to the starting state through legal steps.
			if tc.from != StatusPending {
				require.NoError(t, store.UpdateCaptureStatus(ctx, capture.ID, StatusProcessing, StatusDetails{}))
				if tc.from.Terminal() {
					require.NoError(t, store.UpdateCaptureStatus(ctx, capture.ID, tc.from, StatusDetails{}))
				}
			}

			err := store.UpdateCaptureStatus(ctx, capture.ID, tc.to, StatusDetails{ErrorMessage: "should not land"})
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryState))

			// The rejected transition must not have modified the row.
			got, err := store.GetCapture(ctx, capture.ID, sc)
			require.NoError(t, err)
			assert.Equal(t, tc.from, got.AnalysisStatus)
			assert.Empty(t, got.ErrorMessage)
		})
	}
}

func TestUpdateCaptureStatusUnknownCapture(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateCaptureStatus(context.Background(), uuid.NewString(), StatusProcessing, StatusDetails{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestInsertAndCountInventoryItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sc := scope.Personal("user-1")
	capture := seedCapture(t, store, "proj-1", sc)

	items := []InventoryItem{
		{CaptureID: capture.ID, ProjectID: "proj-1", UserID: "user-1", Name: "Sofa", Category: "furniture", Quantity: 1, Volume: 15, Weight: 120},
		{CaptureID: capture.ID, ProjectID: "proj-1", UserID: "user-1", Name: "Plate Set", Category: "kitchenware", Quantity: 1, Volume: 2, Weight: 18,
			BoxType: "Dish Pack", BoxQuantity: 1, BoxDimensions: `18" x 18" x 28"`},
	}

	written, err := store.InsertInventoryItems(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	count, err := store.CountInventoryItems(ctx, "proj-1", sc)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// Foreign scopes see nothing.
	count, err = store.CountInventoryItems(ctx, "proj-1", scope.Organization("org-1"))
	require.NoError(t, err)
	assert.Zero(t, count)

	listed, err := store.ListInventoryItems(ctx, "proj-1", sc)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Sofa", listed[0].Name)
	assert.Empty(t, listed[0].BoxType)
	assert.Equal(t, "Dish Pack", listed[1].BoxType)
}

func TestInsertInventoryItemsEmpty(t *testing.T) {
	store := newTestStore(t)

	written, err := store.InsertInventoryItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestAppendSpreadsheetRowsCreatesProjection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sc := scope.Personal("user-1")

	rows := []SpreadsheetRow{
		{CaptureID: "cap-1", Location: "Kitchen", Name: "Plate Set", Volume: 2, Weight: 18},
		{CaptureID: "cap-1", Location: "Living Room", Name: "Television", Volume: 3.5, Weight: 40},
	}
	require.NoError(t, store.AppendSpreadsheetRows(ctx, "proj-1", sc, rows))

	count, err := store.CountSpreadsheetRows(ctx, "proj-1", sc)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	var projection SpreadsheetProjection
	require.NoError(t, store.DB.Where("project_id = ?", "proj-1").First(&projection).Error)
	assert.Equal(t, DefaultColumns, projection.Columns)
	assert.Equal(t, "user-1", projection.UserID)
	assert.Empty(t, projection.OrgID)

	// A second append reuses the projection.
	require.NoError(t, store.AppendSpreadsheetRows(ctx, "proj-1", sc,
		[]SpreadsheetRow{{CaptureID: "cap-2", Location: "Other", Name: "Lamp", Volume: 1, Weight: 7}}))

	var projections int64
	require.NoError(t, store.DB.Model(&SpreadsheetProjection{}).Count(&projections).Error)
	assert.EqualValues(t, 1, projections)

	count, err = store.CountSpreadsheetRows(ctx, "proj-1", sc)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestSpreadsheetProjectionsAreScopeSeparated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	personal := scope.Personal("user-1")
	org := scope.Organization("org-1")

	require.NoError(t, store.AppendSpreadsheetRows(ctx, "proj-1", personal,
		[]SpreadsheetRow{{Name: "Chair", Location: "Other", Volume: 3, Weight: 24}}))
	require.NoError(t, store.AppendSpreadsheetRows(ctx, "proj-1", org,
		[]SpreadsheetRow{{Name: "Desk", Location: "Other", Volume: 15, Weight: 120}}))

	personalCount, err := store.CountSpreadsheetRows(ctx, "proj-1", personal)
	require.NoError(t, err)
	assert.EqualValues(t, 1, personalCount)

	orgCount, err := store.CountSpreadsheetRows(ctx, "proj-1", org)
	require.NoError(t, err)
	assert.EqualValues(t, 1, orgCount)

	var projections int64
	require.NoError(t, store.DB.Model(&SpreadsheetProjection{}).Count(&projections).Error)
	assert.EqualValues(t, 2, projections)
}

func TestCountSpreadsheetRowsMissingProjection(t *testing.T) {
	store := newTestStore(t)

	count, err := store.CountSpreadsheetRows(context.Background(), "proj-none", scope.Personal("user-1"))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTouchProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sc := scope.Personal("user-1")

	project := &Project{ID: "proj-1", Name: "Move to Maple St", UserID: "user-1"}
	require.NoError(t, store.CreateProject(ctx, project))

	require.NoError(t, store.TouchProject(ctx, "proj-1", sc))

	// Foreign scope cannot touch it.
	err := store.TouchProject(ctx, "proj-1", scope.Organization("org-1"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))

	err = store.TouchProject(ctx, "proj-missing", sc)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

// Two concurrent captures with 3 and 5 items must grow the project's
// inventory and spreadsheet by exactly 8 rows each, regardless of
// completion order.
func TestConcurrentFanOutCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sc := scope.Personal("user-1")

	captureA := seedCapture(t, store, "proj-1", sc)
	captureB := seedCapture(t, store, "proj-1", sc)

	writeItems := func(captureID string, n int) error {
		items := make([]InventoryItem, 0, n)
		rows := make([]SpreadsheetRow, 0, n)
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("Item %s-%d", captureID[:8], i)
			items = append(items, InventoryItem{
				CaptureID: captureID, ProjectID: "proj-1", UserID: "user-1",
				Name: name, Category: "other", Quantity: 1, Volume: 1, Weight: 7,
			})
			rows = append(rows, SpreadsheetRow{
				CaptureID: captureID, Location: "Other", Name: name, Volume: 1, Weight: 7,
			})
		}
		if _, err := store.InsertInventoryItems(ctx, items); err != nil {
			return err
		}
		return store.AppendSpreadsheetRows(ctx, "proj-1", sc, rows)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = writeItems(captureA.ID, 3)
	}()
	go func() {
		defer wg.Done()
		errs[1] = writeItems(captureB.ID, 5)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	itemCount, err := store.CountInventoryItems(ctx, "proj-1", sc)
	require.NoError(t, err)
	assert.EqualValues(t, 8, itemCount)

	rowCount, err := store.CountSpreadsheetRows(ctx, "proj-1", sc)
	require.NoError(t, err)
	assert.EqualValues(t, 8, rowCount)
}

func TestNewSelectsBackend(t *testing.T) {
	sqliteSettings := &conf.Settings{}
	sqliteSettings.Output.SQLite.Enabled = true
	_, ok := New(sqliteSettings).(*SQLiteStore)
	assert.True(t, ok)

	mysqlSettings := &conf.Settings{}
	mysqlSettings.Output.MySQL.Enabled = true
	_, ok = New(mysqlSettings).(*MySQLStore)
	assert.True(t, ok)

	assert.Nil(t, New(&conf.Settings{}))
}
