// Package telemetry reports enhanced errors to Sentry when the user
// has opted in. Events are scrubbed of user and host identifiers
// before leaving the process.
package telemetry

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/boxlens/boxlens-go/internal/buildinfo"
	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/logging"
)

const flushTimeout = 2 * time.Second

// Init initializes the Sentry SDK and registers the error-package
// reporter. A disabled config is a successful no-op.
func Init(settings *conf.SentrySettings) error {
	if settings == nil || !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		Release:          buildinfo.Release(),
		// Never send the hostname with events.
		ServerName: "",
		BeforeSend: scrubEvent,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	errors.SetTelemetryReporter(&sentryReporter{
		logger: logging.ForService("telemetry"),
	})
	return nil
}

// scrubEvent strips identifying fields before an event is sent.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if k != "error_type" && k != "component" && k != "category" {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}

// Flush drains buffered events, typically during shutdown.
func Flush() {
	sentry.Flush(flushTimeout)
}

// sentryReporter forwards enhanced errors to Sentry.
type sentryReporter struct {
	logger *slog.Logger
}

// IsEnabled implements errors.TelemetryReporter.
func (r *sentryReporter) IsEnabled() bool { return true }

// ReportError implements errors.TelemetryReporter.
func (r *sentryReporter) ReportError(ee *errors.EnhancedError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		for key, value := range ee.GetContext() {
			scope.SetExtra(key, value)
		}
		sentry.CaptureException(ee)
	})

	r.logger.Debug("error reported to telemetry",
		"component", ee.GetComponent(),
		"category", ee.GetCategory())
}
