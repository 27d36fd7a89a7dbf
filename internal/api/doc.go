// Package api implements the HTTP REST API and WebSocket server for sensord.
//
// This package provides:
//   - REST endpoints to list, fetch, register and delete sensors
//   - WebSocket hub broadcasting sensor.registered / sensor.deleted events
//   - Health, status, audit and Prometheus metrics endpoints
//   - Middleware stack (request ID, logging, recovery, metrics, CORS, body limit)
//   - TLS support for production deployments
//
// # Architecture
//
// Handlers call into an injected *sensor.Registry. Every successful
// mutation becomes a sensor.Event that is broadcast to WebSocket clients
// inline and queued for a single dispatcher goroutine, which publishes it
// to MQTT and writes the audit trail.
//
// # Lifecycle
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Error Responses
//
// Every error reply has the shape {"error": "<message>"}. Registry errors are
// mapped in one place (writeSensorError): not found is 404, invalid input
// is 400.
//
// # Graceful Degradation
//
// MQTT and the audit database are optional. Without them the registry and
// WebSocket push work unchanged; /audit answers 503.
package api
