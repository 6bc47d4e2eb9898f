package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

const defaultEmitterBuffer = 1024

// Emitter decouples lifecycle event emission from delivery. Emit never
// blocks and never returns an error: events are handed to a buffered channel
// drained by a single goroutine, and dropped (with a log line) when the
// buffer is full or the emitter is closed. Executors and workers must keep
// running when the event sink is slow or unavailable.
type Emitter struct {
	logger    *slog.Logger
	publisher EventPublisher

	mu     sync.Mutex
	buffer chan emission
	closed bool
	wg     sync.WaitGroup
}

type emission struct {
	key   string
	event Event
}

func NewEmitter(logger *slog.Logger, publisher EventPublisher) *Emitter {
	emitter := &Emitter{
		logger:    logger.With("module", "emitter"),
		publisher: publisher,
		buffer:    make(chan emission, defaultEmitterBuffer),
	}

	emitter.wg.Add(1)

	go emitter.drain()

	return emitter
}

// Emit queues an event for publication and returns immediately.
func (e *Emitter) Emit(key string, event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	select {
	case e.buffer <- emission{key: key, event: event}:
	default:
		e.logger.Warn("Event buffer full, dropping event", "event_type", event.GetType(), "key", key)
	}
}

func (e *Emitter) drain() {
	defer e.wg.Done()

	for em := range e.buffer {
		err := e.publisher.Publish(context.Background(), em.key, em.event)
		if err != nil {
			e.logger.Error("Failed to publish event", "event_type", em.event.GetType(), "error", err)
		}
	}
}

// Close stops accepting events and waits for buffered events to flush.
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()

		return
	}

	e.closed = true
	close(e.buffer)
	e.mu.Unlock()

	e.wg.Wait()
}
