package sensor

import (
	"time"

	"github.com/google/uuid"
)

// Status values with special meaning. Any other string is accepted verbatim.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// TimestampLayout formats default last_updated values: UTC, microsecond
// precision, literal Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Sensor is a registered sensor record.
// Every field is populated once the registry has accepted it.
type Sensor struct {
	ID          int     `json:"id"`
	Type        string  `json:"type"`
	Location    string  `json:"location"`
	LastValue   float64 `json:"last_value"`
	Status      string  `json:"status"`
	LastUpdated string  `json:"last_updated"`
}

// IsOnline reports whether the sensor passes the online filter.
func (s Sensor) IsOnline() bool {
	return s.Status == StatusOnline
}

// OnlineSensor is the projection served by the online listing.
// It carries every field except status, which is implied.
type OnlineSensor struct {
	ID          int     `json:"id"`
	Type        string  `json:"type"`
	Location    string  `json:"location"`
	LastValue   float64 `json:"last_value"`
	LastUpdated string  `json:"last_updated"`
}

// OnlineView projects the sensor into its online listing shape.
func (s Sensor) OnlineView() OnlineSensor {
	return OnlineSensor{
		ID:          s.ID,
		Type:        s.Type,
		Location:    s.Location,
		LastValue:   s.LastValue,
		LastUpdated: s.LastUpdated,
	}
}

// CreateRequest is a registration request that has passed parsing.
// Status and LastUpdated are nil when the caller omitted them; the registry
// fills in defaults.
type CreateRequest struct {
	Type        string
	Location    string
	LastValue   float64
	Status      *string
	LastUpdated *string
}

// EventType identifies a registry change.
type EventType string

// Registry change events.
const (
	EventRegistered EventType = "sensor.registered"
	EventDeleted    EventType = "sensor.deleted"
)

// Event sources.
const (
	SourceAPI  = "api"
	SourceSeed = "seed"
)

// Event describes a successful registry mutation.
// It is fanned out to WebSocket clients, MQTT and the audit trail.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SensorID  int       `json:"sensor_id"`
	Sensor    Sensor    `json:"sensor"`
	Source    string    `json:"source"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event for the given sensor with a fresh ID.
func NewEvent(typ EventType, s Sensor, source, requestID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SensorID:  s.ID,
		Sensor:    s,
		Source:    source,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
}
