package sensor

import (
	"slices"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// firstID is the identifier given to the first registered sensor.
const firstID = 1

// Registry owns the ordered sensor collection and the identifier counter.
//
// Records are kept in registration order. IDs are assigned from a counter
// that only moves forward, so an ID is never handed out twice, even after
// the sensor holding it is deleted.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex // Protects records and nextID
	records []Sensor
	nextID  int
	now     func() time.Time
	logger  Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for default last_updated values.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty sensor registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records: make([]Sensor, 0),
		nextID:  firstID,
		now:     time.Now,
		logger:  noopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// ListAll returns every sensor in registration order.
// The returned slice is a non-nil copy; callers can safely modify it.
func (r *Registry) ListAll() []Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Sensor, len(r.records))
	copy(all, r.records)
	return all
}

// ListOnline returns the sensors whose status is "online", in registration order.
func (r *Registry) ListOnline() []Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := make([]Sensor, 0, len(r.records))
	for _, s := range r.records {
		if s.IsOnline() {
			online = append(online, s)
		}
	}
	return online
}

// GetByID returns the sensor with the given ID.
// Returns ErrNotFound if no sensor has that ID.
func (r *Registry) GetByID(id int) (Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.records[i], nil
	}
	return Sensor{}, ErrNotFound
}

// Register validates req, applies defaults and appends a new sensor.
//
// Missing status becomes "offline"; missing last_updated becomes the
// current UTC time. On any error nothing is added and the ID counter does
// not move.
func (r *Registry) Register(req CreateRequest) (Sensor, error) {
	if err := req.Validate(); err != nil {
		return Sensor{}, err
	}

	status := StatusOffline
	if req.Status != nil {
		status = *req.Status
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lastUpdated := r.now().UTC().Format(TimestampLayout)
	if req.LastUpdated != nil {
		lastUpdated = *req.LastUpdated
	}

	s := Sensor{
		ID:          r.nextID,
		Type:        req.Type,
		Location:    req.Location,
		LastValue:   req.LastValue,
		Status:      status,
		LastUpdated: lastUpdated,
	}
	r.records = append(r.records, s)
	r.nextID++

	r.logger.Info("sensor registered",
		"id", s.ID,
		"type", s.Type,
		"location", s.Location,
		"status", s.Status,
	)
	return s, nil
}

// Delete removes the sensor with the given ID and returns the removed record.
// The order of the remaining sensors is preserved.
// Returns ErrNotFound if no sensor has that ID; nothing changes in that case.
func (r *Registry) Delete(id int) (Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return Sensor{}, ErrNotFound
	}

	removed := r.records[i]
	r.records = slices.Delete(r.records, i, i+1)

	r.logger.Info("sensor deleted", "id", id)
	return removed, nil
}

// Count returns the number of registered sensors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// CountByStatus returns the number of sensors per status value.
func (r *Registry) CountByStatus() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, s := range r.records {
		counts[s.Status]++
	}
	return counts
}

// CountByType returns the number of sensors per sensor type.
func (r *Registry) CountByType() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, s := range r.records {
		counts[s.Type]++
	}
	return counts
}

// NextID returns the ID the next successful registration will receive.
func (r *Registry) NextID() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

// indexOf returns the position of id in records, or -1. Caller holds mu.
func (r *Registry) indexOf(id int) int {
	return slices.IndexFunc(r.records, func(s Sensor) bool {
		return s.ID == id
	})
}
