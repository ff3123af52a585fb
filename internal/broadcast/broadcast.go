// Package broadcast distributes capture status events to live
// subscribers on per-project channels and maintains the pollable
// in-flight snapshot for clients that cannot hold a stream open.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/boxlens/boxlens-go/internal/conf"
	"github.com/boxlens/boxlens-go/internal/logging"
)

// EventKind discriminates status events on the wire.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventStatusUpdate EventKind = "status-update"
	EventCompleted    EventKind = "completed"
	EventError        EventKind = "error"
)

// CaptureStatus is the broadcastable state of one capture's analysis.
type CaptureStatus struct {
	CaptureID     string    `json:"capture_id"`
	ProjectID     string    `json:"project_id"`
	Status        string    `json:"status"`
	Summary       string    `json:"summary,omitempty"`
	ItemCount     int       `json:"item_count"`
	TotalBoxCount int       `json:"total_box_count"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Terminal reports whether the status will not change again.
func (c *CaptureStatus) Terminal() bool {
	return c.Status == "completed" || c.Status == "failed"
}

// StatusEvent is one message on a project's subscription channel.
// Not persisted anywhere; a dropped event is recovered by polling.
type StatusEvent struct {
	Kind      EventKind       `json:"kind"`
	ProjectID string          `json:"project_id"`
	Captures  []CaptureStatus `json:"captures,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// clone copies the event so a subscriber can never observe later
// mutation of the captures slice.
func (e *StatusEvent) clone() StatusEvent {
	cloned := *e
	if e.Captures != nil {
		cloned.Captures = make([]CaptureStatus, len(e.Captures))
		copy(cloned.Captures, e.Captures)
	}
	return cloned
}

// subscriber is one live listener on a project channel.
type subscriber struct {
	projectID string
	ch        chan StatusEvent
	ctx       context.Context
	cancel    context.CancelFunc
}

// Broadcaster fans status events out to subscribers and keeps the
// poll snapshot. Safe for concurrent use.
type Broadcaster struct {
	settings *conf.BroadcastSettings
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	subscribers map[string][]*subscriber

	// snapshot holds one entry per known capture, keyed
	// "projectID/captureID". In-flight entries never expire; terminal
	// entries linger for SnapshotTTL so pollers observe the transition.
	snapshot *cache.Cache
}

// New creates a broadcaster from the given settings.
func New(settings *conf.BroadcastSettings) *Broadcaster {
	ctx, cancel := context.WithCancel(context.Background())
	ttl := time.Duration(settings.SnapshotTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Broadcaster{
		settings:    settings,
		logger:      logging.ForService("broadcast"),
		ctx:         ctx,
		cancel:      cancel,
		subscribers: map[string][]*subscriber{},
		snapshot:    cache.New(ttl, 2*ttl),
	}
}

func (b *Broadcaster) channelBuffer() int {
	if b.settings.ChannelBuffer > 0 {
		return b.settings.ChannelBuffer
	}
	return 16
}

// Subscribe registers a listener for one project's status events. The
// returned context is cancelled on Unsubscribe or Shutdown; the
// channel is never closed by the broadcaster. The first event on the
// channel is a connected event carrying the current in-flight
// snapshot.
func (b *Broadcaster) Subscribe(projectID string) (<-chan StatusEvent, context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithCancel(b.ctx)
	sub := &subscriber{
		projectID: projectID,
		ch:        make(chan StatusEvent, b.channelBuffer()),
		ctx:       ctx,
		cancel:    cancel,
	}
	b.subscribers[projectID] = append(b.subscribers[projectID], sub)

	// Buffered channel with at least one free slot, safe to send here.
	sub.ch <- StatusEvent{
		Kind:      EventConnected,
		ProjectID: projectID,
		Captures:  b.inFlightLocked(projectID),
		Timestamp: time.Now(),
	}

	if b.settings.Debug {
		b.logger.Debug("subscriber added",
			"project_id", projectID,
			"project_subscribers", len(b.subscribers[projectID]))
	}

	return sub.ch, ctx
}

// Unsubscribe removes a listener. The subscriber's context is
// cancelled; the channel is left open for draining.
func (b *Broadcaster) Unsubscribe(ch <-chan StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for projectID, subs := range b.subscribers {
		for i, sub := range subs {
			if sub.ch == ch {
				sub.cancel()
				b.subscribers[projectID] = append(subs[:i], subs[i+1:]...)
				if len(b.subscribers[projectID]) == 0 {
					delete(b.subscribers, projectID)
				}
				return
			}
		}
	}
}

// UpdateStatus records a capture's new state in the snapshot and
// broadcasts a status-update event to the project's subscribers.
func (b *Broadcaster) UpdateStatus(status CaptureStatus) {
	status.UpdatedAt = time.Now()
	b.store(status)
	b.broadcast(StatusEvent{
		Kind:      EventStatusUpdate,
		ProjectID: status.ProjectID,
		Captures:  []CaptureStatus{status},
		Timestamp: status.UpdatedAt,
	})
}

// Completed records the terminal success and broadcasts a completed
// event carrying the run's summary and counts.
func (b *Broadcaster) Completed(status CaptureStatus) {
	status.Status = "completed"
	status.UpdatedAt = time.Now()
	b.store(status)
	b.broadcast(StatusEvent{
		Kind:      EventCompleted,
		ProjectID: status.ProjectID,
		Captures:  []CaptureStatus{status},
		Timestamp: status.UpdatedAt,
	})
}

// Error records the terminal failure and broadcasts an error event.
// The subscription channel stays open.
func (b *Broadcaster) Error(status CaptureStatus, message string) {
	status.Status = "failed"
	status.ErrorMessage = message
	status.UpdatedAt = time.Now()
	b.store(status)
	b.broadcast(StatusEvent{
		Kind:      EventError,
		ProjectID: status.ProjectID,
		Captures:  []CaptureStatus{status},
		Message:   message,
		Timestamp: status.UpdatedAt,
	})
}

// InFlight returns the current snapshot for one project, ordered by
// capture ID for stable output.
func (b *Broadcaster) InFlight(projectID string) []CaptureStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.inFlightLocked(projectID)
}

// Shutdown cancels every subscriber context. Channels are not closed;
// readers exit via their contexts.
func (b *Broadcaster) Shutdown() {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = map[string][]*subscriber{}
}

func snapshotKey(projectID, captureID string) string {
	return projectID + "/" + captureID
}

// store writes the status into the snapshot. Terminal entries take
// the default TTL so pollers see the transition before eviction;
// in-flight entries stay until they resolve.
func (b *Broadcaster) store(status CaptureStatus) {
	key := snapshotKey(status.ProjectID, status.CaptureID)
	if status.Terminal() {
		b.snapshot.SetDefault(key, status)
	} else {
		b.snapshot.Set(key, status, cache.NoExpiration)
	}
}

func (b *Broadcaster) inFlightLocked(projectID string) []CaptureStatus {
	prefix := projectID + "/"
	var statuses []CaptureStatus
	for key, item := range b.snapshot.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if status, ok := item.Object.(CaptureStatus); ok {
			statuses = append(statuses, status)
		}
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].CaptureID < statuses[j].CaptureID
	})
	return statuses
}

// broadcast delivers the event to every live subscriber of its
// project. Sends never block: a subscriber with a full channel skips
// the event and recovers by polling.
func (b *Broadcaster) broadcast(event StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[event.ProjectID]
	if len(subs) == 0 {
		return
	}

	active := make([]*subscriber, 0, len(subs))
	var sent, dropped, cancelled int
	for _, sub := range subs {
		select {
		case <-sub.ctx.Done():
			cancelled++
			continue
		default:
		}
		active = append(active, sub)

		select {
		case sub.ch <- event.clone():
			sent++
		default:
			dropped++
			if b.settings.Debug {
				b.logger.Debug("subscriber channel full, dropping event",
					"project_id", event.ProjectID,
					"kind", event.Kind)
			}
		}
	}
	if len(active) == 0 {
		delete(b.subscribers, event.ProjectID)
	} else {
		b.subscribers[event.ProjectID] = active
	}

	if b.settings.Debug && (dropped > 0 || cancelled > 0) {
		b.logger.Debug("broadcast completed",
			"project_id", event.ProjectID,
			"kind", event.Kind,
			"sent", sent,
			"dropped", dropped,
			"cancelled", cancelled)
	}
}

// String implements fmt.Stringer for log output.
func (b *Broadcaster) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fmt.Sprintf("broadcaster(projects=%d)", len(b.subscribers))
}
