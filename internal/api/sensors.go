package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sensor-registry/internal/sensor"
)

const msgBodyTooLarge = "Request body too large"

// handleListSensors returns every sensor in registration order.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.ListAll())
}

// handleListOnlineSensors returns online sensors without their status field.
func (s *Server) handleListOnlineSensors(w http.ResponseWriter, _ *http.Request) {
	online := s.registry.ListOnline()
	views := make([]sensor.OnlineSensor, 0, len(online))
	for _, sn := range online {
		views = append(views, sn.OnlineView())
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetSensor returns one sensor by ID.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorID(r)
	if !ok {
		writeNotFound(w, sensor.MsgNotFound)
		return
	}

	sn, err := s.registry.GetByID(id)
	if err != nil {
		writeSensorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sn)
}

// handleCreateSensor validates the body and registers a new sensor.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeBadRequest(w, sensor.MsgInvalidBody)
		return
	}

	req, err := sensor.ParseCreateRequest(body)
	if err != nil {
		s.logger.Debug("sensor registration rejected",
			"error", err,
			"request_id", requestIDFrom(r.Context()),
		)
		writeSensorError(w, err)
		return
	}

	created, err := s.registry.Register(req)
	if err != nil {
		writeSensorError(w, err)
		return
	}

	s.publishEvent(sensor.NewEvent(sensor.EventRegistered, created, sensor.SourceAPI, requestIDFrom(r.Context())))
	writeJSON(w, http.StatusCreated, created)
}

// handleDeleteSensor removes a sensor by ID.
func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := sensorID(r)
	if !ok {
		writeNotFound(w, sensor.MsgNotFound)
		return
	}

	removed, err := s.registry.Delete(id)
	if err != nil {
		writeSensorError(w, err)
		return
	}

	s.publishEvent(sensor.NewEvent(sensor.EventDeleted, removed, sensor.SourceAPI, requestIDFrom(r.Context())))
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("Sensor %d deleted", id)})
}

// sensorID parses the {id} path parameter. The route pattern guarantees
// digits only; false means the value overflows int.
func sensorID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, false
	}
	return id, true
}
