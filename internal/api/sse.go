package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SSE connection configuration.
const (
	maxSSEConnectionDuration = 30 * time.Minute
	heartbeatInterval        = 30 * time.Second
	rateLimitWindow          = 1 * time.Minute
	rateLimitPerWindow       = 10
	rateLimitBurst           = 15
)

func (c *Controller) initStreamRoutes() {
	rateLimiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rateLimitPerWindow,
				Burst:     rateLimitBurst,
				ExpiresIn: rateLimitWindow,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "too many stream connection attempts, please wait before retrying",
			})
		},
	}

	c.Group.GET("/projects/:id/analysis/stream", c.StreamAnalysisStatus,
		middleware.RateLimiterWithConfig(rateLimiterConfig))
}

// StreamAnalysisStatus holds an SSE connection open and relays the
// project's status events. The first event is always "connected" with
// the current in-flight snapshot; heartbeats keep intermediaries from
// reaping idle connections.
func (c *Controller) StreamAnalysisStatus(ctx echo.Context) error {
	projectID := ctx.Param("id")

	if _, err := scopeFromRequest(ctx); err != nil {
		return c.jsonError(ctx, err)
	}

	setSSEHeaders(ctx)

	events, subCtx := c.Broadcaster.Subscribe(projectID)
	defer c.Broadcaster.Unsubscribe(events)

	if c.metrics != nil {
		c.metrics.Broadcast.SubscriberConnected()
		defer c.metrics.Broadcast.SubscriberDisconnected()
	}
	c.apiLogger.Debug("stream opened",
		"project_id", projectID,
		"remote", ctx.RealIP())
	defer c.apiLogger.Debug("stream closed", "project_id", projectID)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	deadline := time.After(maxSSEConnectionDuration)

	for {
		select {
		case event := <-events:
			if err := c.sendSSEMessage(ctx, string(event.Kind), event); err != nil {
				return nil
			}
			if c.metrics != nil {
				c.metrics.Broadcast.RecordEventSent(string(event.Kind))
			}

		case <-heartbeat.C:
			if err := c.sendSSEComment(ctx, "heartbeat"); err != nil {
				return nil
			}

		case <-deadline:
			// Clients reconnect; bounding the connection prevents
			// resource leaks from abandoned streams.
			return nil

		case <-ctx.Request().Context().Done():
			return nil

		case <-subCtx.Done():
			return nil
		}
	}
}

func setSSEHeaders(ctx echo.Context) {
	header := ctx.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
}

// sendSSEMessage writes one named event frame and flushes it.
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE data: %w", err)
	}

	if conn, ok := ctx.Response().Writer.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}

	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}
	ctx.Response().Flush()
	return nil
}

// sendSSEComment writes a comment frame, used as a keep-alive.
func (c *Controller) sendSSEComment(ctx echo.Context, comment string) error {
	if _, err := fmt.Fprintf(ctx.Response(), ": %s\n\n", comment); err != nil {
		return err
	}
	ctx.Response().Flush()
	return nil
}
