package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/idpflow/pkg/eventbus"
	"github.com/dukex/idpflow/pkg/events"
	"github.com/dukex/idpflow/pkg/testutil"
)

func baseEvent(eventType events.EventType, pipelineID, runID string) events.BaseEvent {
	return events.BaseEvent{
		ID:         fmt.Sprintf("%s-%s", runID, eventType),
		Type:       eventType,
		Timestamp:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		PipelineID: pipelineID,
		RunID:      runID,
	}
}

func TestActivity_RunNotifications(t *testing.T) {
	t.Parallel()

	a := NewActivity(testutil.Logger())
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, &events.RunStarted{BaseEvent: baseEvent(events.RunStartedEvent, "p1", "r1")}))
	require.NoError(t, a.Record(ctx, &events.NodeRunning{}))
	require.NoError(t, a.Record(ctx, &events.NodeFailed{
		NodeEvent: events.NodeEvent{
			BaseEvent: baseEvent(events.NodeFailedEvent, "p1", "r1"),
			NodeID:    "dndnode_1",
			Label:     "Slack Notification",
		},
		Error: "Connection timeout: Failed to reach external service.",
	}))
	require.NoError(t, a.Record(ctx, &events.RunFailed{
		BaseEvent:       baseEvent(events.RunFailedEvent, "p1", "r1"),
		FailedNodeID:    "dndnode_1",
		FailedNodeLabel: "Slack Notification",
	}))
	require.NoError(t, a.Record(ctx, events.RunStarted{BaseEvent: baseEvent(events.RunStartedEvent, "p1", "r2")}))
	require.NoError(t, a.Record(ctx, &events.RunCompleted{BaseEvent: baseEvent(events.RunCompletedEvent, "p1", "r2")}))

	feed := a.Feed("p1")
	require.Len(t, feed, 5)

	messages := make([]string, 0, len(feed))
	for _, entry := range feed {
		messages = append(messages, entry.Message)
	}

	assert.Equal(t, []string{
		"Starting pipeline execution...",
		"Slack Notification: Connection timeout: Failed to reach external service.",
		"Pipeline failed at node: Slack Notification",
		"Starting pipeline execution...",
		"Pipeline execution finished",
	}, messages)

	assert.Equal(t, LevelError, feed[2].Level)
	assert.Equal(t, "dndnode_1", feed[2].NodeID)
	assert.Equal(t, LevelSuccess, feed[4].Level)
	assert.Equal(t, "r2", feed[4].RunID)

	assert.Empty(t, a.Feed("p2"))
}

func testRunEvent(eventType events.EventType, pipelineID, runID string) events.BaseEvent {
	b := baseEvent(eventType, pipelineID, runID)
	b.TestRun = true

	return b
}

func TestActivity_TestRuns(t *testing.T) {
	t.Parallel()

	a := NewActivity(testutil.Logger())
	ctx := context.Background()

	require.NoError(t, a.Record(ctx, &events.RunStarted{BaseEvent: testRunEvent(events.RunStartedEvent, "p1", "t1")}))
	require.NoError(t, a.Record(ctx, &events.RunCompleted{BaseEvent: testRunEvent(events.RunCompletedEvent, "p1", "t1")}))
	require.NoError(t, a.Record(ctx, &events.RunStarted{BaseEvent: testRunEvent(events.RunStartedEvent, "p1", "t2")}))
	require.NoError(t, a.Record(ctx, &events.RunFailed{
		BaseEvent:       testRunEvent(events.RunFailedEvent, "p1", "t2"),
		FailedNodeLabel: "Gmail",
	}))
	require.NoError(t, a.Record(ctx, &events.RunCancelled{BaseEvent: testRunEvent(events.RunCancelledEvent, "p1", "t3")}))

	feed := a.Feed("p1")
	require.Len(t, feed, 5)
	assert.Equal(t, "Testing node...", feed[0].Message)
	assert.Equal(t, "Node test passed", feed[1].Message)
	assert.Equal(t, "Node test failed: Gmail", feed[3].Message)
	assert.Equal(t, "Node test cancelled", feed[4].Message)
}

func TestActivity_TestRunOutcomeBeforeStart(t *testing.T) {
	t.Parallel()

	a := NewActivity(testutil.Logger())
	ctx := context.Background()

	completed := testRunEvent(events.RunCompletedEvent, "p1", "t1")
	completed.Timestamp = completed.Timestamp.Add(time.Second)

	require.NoError(t, a.Record(ctx, &events.RunCompleted{BaseEvent: completed}))
	require.NoError(t, a.Record(ctx, &events.RunStarted{BaseEvent: testRunEvent(events.RunStartedEvent, "p1", "t1")}))

	feed := a.Feed("p1")
	require.Len(t, feed, 2)
	assert.Equal(t, "Testing node...", feed[0].Message)
	assert.Equal(t, "Node test passed", feed[1].Message)
}

func TestActivity_Limit(t *testing.T) {
	t.Parallel()

	a := NewActivity(testutil.Logger())
	a.limit = 3

	for i := range 5 {
		runID := fmt.Sprintf("r%d", i)
		require.NoError(t, a.Record(context.Background(), &events.RunCancelled{
			BaseEvent: baseEvent(events.RunCancelledEvent, "p1", runID),
		}))
	}

	feed := a.Feed("p1")
	require.Len(t, feed, 3)
	assert.Equal(t, "r2", feed[0].RunID)
	assert.Equal(t, "r4", feed[2].RunID)
	assert.Equal(t, "Pipeline execution cancelled", feed[2].Message)
}

type recordingSubscriber struct {
	handlers map[events.EventType]eventbus.EventHandler
}

func (s *recordingSubscriber) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	s.handlers[eventType] = handler

	return nil
}

func (s *recordingSubscriber) Subscribe(context.Context) error {
	return nil
}

func TestActivity_Register(t *testing.T) {
	t.Parallel()

	a := NewActivity(testutil.Logger())
	sub := &recordingSubscriber{handlers: map[events.EventType]eventbus.EventHandler{}}

	require.NoError(t, a.Register(sub))

	assert.Len(t, sub.handlers, 5)
	assert.Contains(t, sub.handlers, events.NodeFailedEvent)
	assert.NotContains(t, sub.handlers, events.NodeRunningEvent)

	handler := sub.handlers[events.RunStartedEvent]
	require.NoError(t, handler(context.Background(), &events.RunStarted{BaseEvent: baseEvent(events.RunStartedEvent, "p9", "r1")}))
	assert.Len(t, a.Feed("p9"), 1)
}

func TestActivity_OrdersByEventTime(t *testing.T) {
	t.Parallel()

	a := NewActivity(testutil.Logger())
	ctx := context.Background()

	started := baseEvent(events.RunStartedEvent, "p1", "r1")
	finished := baseEvent(events.RunCompletedEvent, "p1", "r1")
	finished.Timestamp = started.Timestamp.Add(3 * time.Second)

	require.NoError(t, a.Record(ctx, &events.RunCompleted{BaseEvent: finished}))
	require.NoError(t, a.Record(ctx, &events.RunStarted{BaseEvent: started}))

	feed := a.Feed("p1")
	require.Len(t, feed, 2)
	assert.Equal(t, "Starting pipeline execution...", feed[0].Message)
	assert.Equal(t, "Pipeline execution finished", feed[1].Message)
}
