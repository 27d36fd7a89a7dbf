package api

import (
	"context"

	"github.com/nerrad567/sensor-registry/internal/audit"
	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// eventQueueSize is the buffer size for the async event dispatcher.
// Events beyond this are dropped (best-effort) to avoid back-pressure on requests.
const eventQueueSize = 256

// publishEvent fans a registry change out to every configured sink.
//
// WebSocket broadcast and metrics happen inline and never block. MQTT and
// the audit trail can block on I/O, so the event is queued for the
// dispatcher goroutine. None of this affects the HTTP response.
func (s *Server) publishEvent(ev sensor.Event) {
	s.metrics.recordEvent(ev.Type)
	s.hub.Broadcast(ev)

	if s.publisher == nil && s.auditRepo == nil {
		return
	}

	select {
	case s.eventCh <- ev:
	default:
		s.metrics.eventsDropped.Inc()
		s.logger.Warn("event queue full, dropping event",
			"event_type", ev.Type,
			"sensor_id", ev.SensorID,
		)
	}
}

// PublishEvent lets components outside the HTTP path (startup seeding)
// emit registry events through the same sinks. Unlike the request path it
// waits for queue space instead of dropping, until ctx is done.
func (s *Server) PublishEvent(ctx context.Context, ev sensor.Event) error {
	s.metrics.recordEvent(ev.Type)
	s.hub.Broadcast(ev)

	if s.publisher == nil && s.auditRepo == nil {
		return nil
	}

	select {
	case s.eventCh <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchEvents reads events from the queue and delivers them serially.
// This avoids unbounded goroutine creation and is kinder to SQLite's serial write model.
// It runs until the context is cancelled, then drains remaining events.
func (s *Server) dispatchEvents(ctx context.Context) {
	for {
		select {
		case ev := <-s.eventCh:
			s.deliver(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-s.eventCh:
					s.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// deliver sends one event to MQTT and the audit trail.
func (s *Server) deliver(ev sensor.Event) {
	if s.publisher != nil {
		if err := s.publisher.PublishEvent(ev); err != nil {
			s.metrics.publishErrors.Inc()
			s.logger.Warn("mqtt event publish failed",
				"event_type", ev.Type,
				"sensor_id", ev.SensorID,
				"error", err,
			)
		}
	}

	if s.auditRepo != nil {
		entry := auditEntryFor(ev)
		if err := s.auditRepo.Create(context.Background(), entry); err != nil {
			s.logger.Error("audit log write failed",
				"action", entry.Action,
				"sensor_id", entry.SensorID,
				"error", err,
			)
		}
	}
}

// auditEntryFor converts a registry event into an audit row.
func auditEntryFor(ev sensor.Event) *audit.Entry {
	action := audit.ActionRegister
	if ev.Type == sensor.EventDeleted {
		action = audit.ActionDelete
	}

	return &audit.Entry{
		Action:    action,
		SensorID:  ev.SensorID,
		Source:    ev.Source,
		RequestID: ev.RequestID,
		Details: map[string]any{
			"type":         ev.Sensor.Type,
			"location":     ev.Sensor.Location,
			"last_value":   ev.Sensor.LastValue,
			"status":       ev.Sensor.Status,
			"last_updated": ev.Sensor.LastUpdated,
		},
		CreatedAt: ev.Timestamp,
	}
}
