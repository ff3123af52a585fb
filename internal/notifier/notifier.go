// Package notifier forwards terminal pipeline events to an external
// notification gateway (any shoutrrr-supported service). Delivery is
// strictly best-effort: a push failure is logged and never affects the
// stored outcome of a run.
package notifier

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/boxlens/boxlens-go/internal/broadcast"
	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/errors"
	"github.com/boxlens/boxlens-go/internal/logging"
)

const sendTimeout = 10 * time.Second

// Notifier pushes completed and failed analysis events to a shoutrrr
// URL. The zero-value Notifier (or one built from disabled settings)
// is a no-op.
type Notifier struct {
	sender *router.ServiceRouter
	logger *slog.Logger
}

// New builds a notifier from push settings. Disabled settings yield a
// working no-op notifier; an invalid URL is an error.
func New(settings *conf.PushSettings) (*Notifier, error) {
	n := &Notifier{logger: logging.ForService("notifier")}
	if settings == nil || !settings.Enabled {
		return n, nil
	}
	if settings.URL == "" {
		return nil, errors.Newf("push is enabled but no URL is configured").
			Component("notifier").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(settings.URL)
	if err != nil {
		return nil, errors.New(err).
			Component("notifier").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_sender").
			Build()
	}
	sender.Timeout = sendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))
	n.sender = sender
	return n, nil
}

// Enabled reports whether pushes will actually be sent.
func (n *Notifier) Enabled() bool { return n.sender != nil }

// NotifyCompleted pushes a summary of a successful run.
func (n *Notifier) NotifyCompleted(status broadcast.CaptureStatus) {
	message := fmt.Sprintf("Analysis completed: %d items, %d boxes recommended",
		status.ItemCount, status.TotalBoxCount)
	if status.Summary != "" {
		message += " — " + status.Summary
	}
	n.push("Capture analysis completed", message, status)
}

// NotifyFailed pushes the failure message of an unsuccessful run.
func (n *Notifier) NotifyFailed(status broadcast.CaptureStatus) {
	message := status.ErrorMessage
	if message == "" {
		message = "analysis failed"
	}
	n.push("Capture analysis failed", message, status)
}

func (n *Notifier) push(title, message string, status broadcast.CaptureStatus) {
	if n.sender == nil {
		return
	}

	params := stypes.Params{}
	params.SetTitle(title)

	for _, err := range n.sender.Send(message, &params) {
		if err != nil {
			n.logger.Error("push notification failed",
				"capture_id", status.CaptureID,
				"project_id", status.ProjectID,
				"error", err)
			return
		}
	}
}
