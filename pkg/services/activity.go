package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dukex/idpflow/pkg/eventbus"
	"github.com/dukex/idpflow/pkg/events"
)

const (
	// DefaultActivityLimit is how many entries a pipeline feed keeps.
	DefaultActivityLimit = 50

	activityExpiration = 24 * time.Hour
	activityCleanup    = time.Hour
)

type ActivityLevel string

const (
	LevelInfo    ActivityLevel = "info"
	LevelSuccess ActivityLevel = "success"
	LevelError   ActivityLevel = "error"
)

// ActivityEntry is one notification shown for a pipeline.
type ActivityEntry struct {
	EventID   string           `json:"event_id"`
	Type      events.EventType `json:"type"`
	RunID     string           `json:"run_id"`
	NodeID    string           `json:"node_id,omitempty"`
	Level     ActivityLevel    `json:"level"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// Activity turns run events into per-pipeline notification feeds. Feeds of
// pipelines without events for a day are dropped.
type Activity struct {
	mu     sync.Mutex
	feeds  *gocache.Cache
	limit  int
	logger *slog.Logger
}

func NewActivity(logger *slog.Logger) *Activity {
	return &Activity{
		feeds:  gocache.New(activityExpiration, activityCleanup),
		limit:  DefaultActivityLimit,
		logger: logger.With("module", "activity"),
	}
}

// Register subscribes the feed to the run events on sub.
func (a *Activity) Register(sub eventbus.EventSubscriber) error {
	for _, eventType := range []events.EventType{
		events.RunStartedEvent,
		events.RunCompletedEvent,
		events.RunFailedEvent,
		events.RunCancelledEvent,
		events.NodeFailedEvent,
	} {
		if err := sub.Handle(eventType, a.Record); err != nil {
			return err
		}
	}

	return nil
}

// Record adds the notification for event to its pipeline feed. Events that
// carry no notification are ignored.
func (a *Activity) Record(ctx context.Context, event any) error {
	entry, pipelineID, ok := a.entry(event)
	if !ok {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var feed []ActivityEntry
	if cached, found := a.feeds.Get(pipelineID); found {
		feed = cached.([]ActivityEntry)
	}

	feed = slices.Clone(feed)
	at, _ := slices.BinarySearchFunc(feed, entry, func(e, target ActivityEntry) int {
		if e.Timestamp.After(target.Timestamp) {
			return 1
		}

		return -1
	})
	feed = slices.Insert(feed, at, entry)
	if len(feed) > a.limit {
		feed = feed[len(feed)-a.limit:]
	}

	a.feeds.SetDefault(pipelineID, feed)

	a.logger.DebugContext(ctx, "activity recorded", "pipeline_id", pipelineID, "event_type", entry.Type)

	return nil
}

// Feed returns the notifications of a pipeline, oldest first.
func (a *Activity) Feed(pipelineID string) []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	cached, found := a.feeds.Get(pipelineID)
	if !found {
		return []ActivityEntry{}
	}

	return slices.Clone(cached.([]ActivityEntry))
}

func (a *Activity) entry(event any) (ActivityEntry, string, bool) {
	switch e := event.(type) {
	case *events.RunStarted:
		if e.TestRun {
			return newEntry(e.BaseEvent, LevelInfo, "Testing node..."), e.PipelineID, true
		}

		return newEntry(e.BaseEvent, LevelInfo, "Starting pipeline execution..."), e.PipelineID, true
	case *events.RunCompleted:
		if e.TestRun {
			return newEntry(e.BaseEvent, LevelSuccess, "Node test passed"), e.PipelineID, true
		}

		return newEntry(e.BaseEvent, LevelSuccess, "Pipeline execution finished"), e.PipelineID, true
	case *events.RunFailed:
		entry := newEntry(e.BaseEvent, LevelError, "Pipeline failed at node: "+e.FailedNodeLabel)
		if e.TestRun {
			entry.Message = "Node test failed: " + e.FailedNodeLabel
		}

		entry.NodeID = e.FailedNodeID

		return entry, e.PipelineID, true
	case *events.RunCancelled:
		if e.TestRun {
			return newEntry(e.BaseEvent, LevelInfo, "Node test cancelled"), e.PipelineID, true
		}

		return newEntry(e.BaseEvent, LevelInfo, "Pipeline execution cancelled"), e.PipelineID, true
	case *events.NodeFailed:
		entry := newEntry(e.BaseEvent, LevelError, e.Label+": "+e.Error)
		entry.NodeID = e.NodeID

		return entry, e.PipelineID, true
	case events.RunStarted:
		return a.entry(&e)
	case events.RunCompleted:
		return a.entry(&e)
	case events.RunFailed:
		return a.entry(&e)
	case events.RunCancelled:
		return a.entry(&e)
	case events.NodeFailed:
		return a.entry(&e)
	default:
		return ActivityEntry{}, "", false
	}
}

func newEntry(base events.BaseEvent, level ActivityLevel, message string) ActivityEntry {
	return ActivityEntry{
		EventID:   base.ID,
		Type:      base.Type,
		RunID:     base.RunID,
		Level:     level,
		Message:   message,
		Timestamp: base.Timestamp,
	}
}
