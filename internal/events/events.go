package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"loyalty-wallet-bridge/internal/tracing"
)

// EventType represents the type of event.
type EventType string

const (
	// EventPassCreated is emitted after a save link has been signed
	EventPassCreated EventType = "pass.created"
	// EventBalanceChanged is emitted for every verified Voucherify webhook
	EventBalanceChanged EventType = "balance.changed"
)

// Event represents an event in the system.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// PassCreatedData contains data for pass created events.
type PassCreatedData struct {
	CustomerID string
	ObjectID   string
}

// BalanceChangedData carries the verified raw webhook body. It is parsed by
// the subscriber, after the sender has been acknowledged.
type BalanceChangedData struct {
	Body []byte
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager runs event handlers in the background. Each handler gets its own
// goroutine, a context detached from the publisher's cancellation and
// bounded by the configured timeout, and a span. Failures are logged.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	timeout  time.Duration
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// NewManager creates a new event manager. A zero timeout leaves handlers unbounded.
func NewManager(timeout time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  true,
		timeout:  timeout,
		logger:   logger,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers and returns its id.
// It does not wait for the handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) string {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// inflight.Add happens under the lock so Shutdown cannot start waiting
	// between the enabled check and the Add.
	m.mu.RLock()
	defer m.mu.RUnlock()

	handlers := m.handlers[eventType]
	if !m.enabled {
		if len(handlers) > 0 {
			m.logger.Warn("Event dropped, manager is shut down",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(eventType)),
			)
		}
		return event.ID
	}

	base := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		m.inflight.Add(1)
		go m.run(base, handler, event)
	}

	return event.ID
}

func (m *Manager) run(ctx context.Context, h Handler, event Event) {
	defer m.inflight.Done()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	ctx, span := tracing.GetTracer().StartSpan(ctx, "event "+string(event.Type))
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.type", string(event.Type)),
	)

	log := m.logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			tracing.RecordFailure(span, err, "event handler panicked")
			log.Error("Event handler panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := h(ctx, event); err != nil {
		tracing.RecordFailure(span, err, "event handler failed")
		log.Error("Event handler failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	log.Debug("Event handled", zap.Duration("duration", time.Since(start)))
}

// PublishPassCreated publishes a pass created event.
func (m *Manager) PublishPassCreated(ctx context.Context, customerID, objectID string) string {
	return m.Publish(ctx, EventPassCreated, PassCreatedData{CustomerID: customerID, ObjectID: objectID})
}

// PublishBalanceChanged publishes a balance changed event.
func (m *Manager) PublishBalanceChanged(ctx context.Context, body []byte) string {
	return m.Publish(ctx, EventBalanceChanged, BalanceChangedData{Body: body})
}

// Wait blocks until every running handler has returned.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Shutdown stops accepting events and waits for running handlers until ctx
// is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("events: shutdown: %w", ctx.Err())
	}
}
