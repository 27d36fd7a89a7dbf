// Package sensor provides the in-memory Sensor Registry for sensord.
//
// The registry is the single owner of every sensor record and of the
// identifier counter. It is constructed once at process start and injected
// into the HTTP layer; nothing else mutates its state.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                       Sensor Registry                        │
//	│                                                              │
//	│  ┌──────────────────┐    ┌──────────────────┐                │
//	│  │    Validation    │    │     Registry     │                │
//	│  │ (validation.go)  │───▶│  (registry.go)   │                │
//	│  │                  │    │                  │                │
//	│  │ • JSON parsing   │    │ • Ordered records│                │
//	│  │ • Required fields│    │ • Monotonic IDs  │                │
//	│  │ • Number checks  │    │ • Single mutex   │                │
//	│  └──────────────────┘    └──────────────────┘                │
//	│           ▲                       ▲                          │
//	└───────────│───────────────────────│──────────────────────────┘
//	            │                       │
//	   POST /sensors body       seed file (seed.go)
//
// # Key Types
//
//   - Sensor: a registered record (id, type, location, last_value, status, last_updated)
//   - CreateRequest: a validated registration request
//   - Event: a registry change published to WebSocket, MQTT and the audit trail
//
// # Usage
//
//	reg := sensor.NewRegistry()
//	reg.SetLogger(log)
//
//	req, err := sensor.ParseCreateRequest(body)
//	if err != nil {
//	    return err // wraps sensor.ErrInvalidInput
//	}
//	s, err := reg.Register(req)
//
//	online := reg.ListOnline()
//	_, err = reg.Delete(s.ID) // sensor.ErrNotFound if already gone
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Every operation runs to
// completion under one mutex, so a failed operation never leaves a partial
// record behind and identifiers stay gap-free.
package sensor
