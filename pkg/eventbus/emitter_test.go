package eventbus_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/lensflow/lensflow/pkg/eventbus"
	"github.com/lensflow/lensflow/pkg/events"
	"github.com/lensflow/lensflow/pkg/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func startedEvent(pipelineID string) events.PipelineRunStarted {
	return events.PipelineRunStarted{
		BaseEvent: events.NewBaseEvent(events.PipelineRunStartedEvent, pipelineID),
		JobID:     "job-1",
	}
}

func TestEmitter_PublishesQueuedEvents(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "p1", mock.Anything).Return(nil)

	emitter := eventbus.NewEmitter(testLogger(), bus)

	emitter.Emit("p1", startedEvent("p1"))
	emitter.Emit("p1", startedEvent("p1"))

	// Close flushes the buffer before returning.
	emitter.Close()

	bus.AssertNumberOfCalls(t, "Publish", 2)
}

func TestEmitter_EmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}

	emitter := eventbus.NewEmitter(testLogger(), bus)
	emitter.Close()

	require.NotPanics(t, func() {
		emitter.Emit("p1", startedEvent("p1"))
	})

	bus.AssertNotCalled(t, "Publish")
}

func TestEmitter_PublisherFailureDoesNotPropagate(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable"))

	emitter := eventbus.NewEmitter(testLogger(), bus)

	require.NotPanics(t, func() {
		emitter.Emit("p1", startedEvent("p1"))
		emitter.Close()
	})

	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestEmitter_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}

	emitter := eventbus.NewEmitter(testLogger(), bus)

	done := make(chan struct{})

	go func() {
		emitter.Close()
		emitter.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}
