// Package api exposes the analysis pipeline over HTTP: an async
// trigger per capture, a live SSE status stream per project and a
// polling fallback for clients that cannot hold a stream open.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/boxlens/boxlens-go/internal/analysis"
	"github.com/boxlens/boxlens-go/internal/broadcast"
	"github.com/boxlens/boxlens-go/internal/buildinfo"
	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/datastore"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/logging"
	"github.com/boxlens/boxlens-go/internal/observability"
	"github.com/boxlens/boxlens-go/internal/scope"
)

// Ownership scope headers. Authentication itself lives in front of
// this service; by the time a request arrives these carry the
// already-authenticated identity.
const (
	headerUserID = "X-BoxLens-User"
	headerOrgID  = "X-BoxLens-Org"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo        *echo.Echo
	Group       *echo.Group
	DS          datastore.Interface
	Settings    *conf.Settings
	Pipeline    *analysis.Pipeline
	Broadcaster *broadcast.Broadcaster

	apiLogger *slog.Logger
	metrics   *observability.Metrics
	startTime time.Time
}

// New creates the controller and registers all routes on a fresh echo
// instance. The caller starts and stops the server.
func New(settings *conf.Settings, ds datastore.Interface, pipeline *analysis.Pipeline,
	broadcaster *broadcast.Broadcaster, metrics *observability.Metrics) *Controller {

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:        e,
		DS:          ds,
		Settings:    settings,
		Pipeline:    pipeline,
		Broadcaster: broadcaster,
		apiLogger:   logging.ForService("api"),
		metrics:     metrics,
		startTime:   time.Now(),
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.POST("/captures/:id/analyze", c.AnalyzeCapture)
	c.Group.GET("/projects/:id/analysis/status", c.GetAnalysisStatus)
	c.Group.GET("/projects/:id/inventory", c.ListInventory)
	c.Group.GET("/health", c.Health)
	c.initStreamRoutes()

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// Start runs the HTTP server on the configured port, blocking until
// shutdown.
func (c *Controller) Start() error {
	return c.Echo.Start(":" + c.Settings.WebServer.Port)
}

// Shutdown stops the HTTP server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

// scopeFromRequest derives the ownership scope from the identity
// headers. Exactly one of the two headers must be present.
func scopeFromRequest(ctx echo.Context) (scope.Scope, error) {
	userID := ctx.Request().Header.Get(headerUserID)
	orgID := ctx.Request().Header.Get(headerOrgID)

	switch {
	case userID != "" && orgID != "":
		return scope.Scope{}, errors.Newf("request carries both user and organization identity").
			Component("api").
			Category(errors.CategoryScope).
			Build()
	case orgID != "":
		return scope.Organization(orgID), nil
	case userID != "":
		return scope.Personal(userID), nil
	default:
		return scope.Scope{}, errors.Newf("request carries no ownership identity").
			Component("api").
			Category(errors.CategoryScope).
			Build()
	}
}

// httpStatusFor maps error categories onto HTTP status codes.
func httpStatusFor(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryScope),
		errors.IsCategory(err, errors.CategoryValidation),
		errors.IsCategory(err, errors.CategoryImageValidation):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (c *Controller) jsonError(ctx echo.Context, err error) error {
	status := httpStatusFor(err)
	if status >= http.StatusInternalServerError {
		c.apiLogger.Error("request failed",
			"path", ctx.Path(),
			"error", err)
	}
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

// AnalyzeCapture schedules the analysis of one capture and returns
// immediately. Progress is observable on the project's stream or poll
// endpoint.
func (c *Controller) AnalyzeCapture(ctx echo.Context) error {
	captureID := ctx.Param("id")

	sc, err := scopeFromRequest(ctx)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	// Resolve the capture now so an unknown ID fails the request
	// instead of a background run.
	capture, err := c.DS.GetCapture(ctx.Request().Context(), captureID, sc)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	c.Pipeline.RunAsync(captureID, capture.ProjectID, sc)

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"capture_id": captureID,
		"project_id": capture.ProjectID,
		"status":     string(datastore.StatusProcessing),
	})
}

// GetAnalysisStatus returns the in-flight snapshot for one project,
// the polling fallback to the SSE stream.
func (c *Controller) GetAnalysisStatus(ctx echo.Context) error {
	projectID := ctx.Param("id")

	if _, err := scopeFromRequest(ctx); err != nil {
		return c.jsonError(ctx, err)
	}

	captures := c.Broadcaster.InFlight(projectID)
	inFlight := 0
	for i := range captures {
		if !captures[i].Terminal() {
			inFlight++
		}
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"project_id":      projectID,
		"in_flight_count": inFlight,
		"captures":        captures,
	})
}

// ListInventory returns a project's persisted inventory items.
func (c *Controller) ListInventory(ctx echo.Context) error {
	projectID := ctx.Param("id")

	sc, err := scopeFromRequest(ctx)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	items, err := c.DS.ListInventoryItems(ctx.Request().Context(), projectID, sc)
	if err != nil {
		return c.jsonError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"project_id": projectID,
		"items":      items,
	})
}

// Health reports liveness and uptime.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
		"uptime":  time.Since(c.startTime).String(),
	})
}
