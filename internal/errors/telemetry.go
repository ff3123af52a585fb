// Package errors - telemetry reporting hook (optional)
package errors

import (
	"sync"
	"sync/atomic"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(ee *EnhancedError)
	IsEnabled() bool
}

var (
	// hasActiveReporting gates the expensive component/category detection
	// in Build; it is false until a reporter is registered.
	hasActiveReporting atomic.Bool

	telemetryReporter   TelemetryReporter
	telemetryReporterMu sync.RWMutex
)

// SetTelemetryReporter registers the reporter used by Build.
// Passing nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryReporterMu.Lock()
	defer telemetryReporterMu.Unlock()

	telemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// reportToTelemetry forwards the error to the registered reporter, if any.
// Errors are reported at most once.
func reportToTelemetry(ee *EnhancedError) {
	telemetryReporterMu.RLock()
	reporter := telemetryReporter
	telemetryReporterMu.RUnlock()

	if reporter == nil || !reporter.IsEnabled() || ee.IsReported() {
		return
	}

	reporter.ReportError(ee)
	ee.MarkReported()
}
