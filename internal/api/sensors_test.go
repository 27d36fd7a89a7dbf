package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// register posts body and returns the created sensor, failing on non-201.
func register(t *testing.T, h http.Handler, body string) sensor.Sensor {
	t.Helper()

	w := do(t, h, http.MethodPost, "/sensors", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /sensors status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[sensor.Sensor](t, w)
}

func TestListSensors_Empty(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/sensors", "/sensors/online"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, srv.Handler(), http.MethodGet, path, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if got := strings.TrimSpace(w.Body.String()); got != "[]" {
				t.Errorf("body = %s, want []", got)
			}
		})
	}
}

func TestCreateSensor_Defaults(t *testing.T) {
	srv := testServer(t)

	created := register(t, srv.Handler(), `{"type":"temperature","location":"room1","last_value":25.5}`)

	if created.ID != 1 {
		t.Errorf("id = %d, want 1", created.ID)
	}
	if created.Status != "offline" {
		t.Errorf("status = %q, want offline", created.Status)
	}
	if created.LastValue != 25.5 || created.Type != "temperature" || created.Location != "room1" {
		t.Errorf("created = %+v", created)
	}
	if !strings.HasSuffix(created.LastUpdated, "Z") {
		t.Errorf("last_updated = %q, want UTC with Z suffix", created.LastUpdated)
	}
	if _, err := time.Parse(sensor.TimestampLayout, created.LastUpdated); err != nil {
		t.Errorf("last_updated %q does not parse: %v", created.LastUpdated, err)
	}
}

func TestCreateSensor_VerbatimFields(t *testing.T) {
	srv := testServer(t)

	created := register(t, srv.Handler(),
		`{"type":"co2","location":"Hall","last_value":400,"status":"maintenance","last_updated":"yesterday"}`)

	if created.Status != "maintenance" {
		t.Errorf("status = %q, want maintenance", created.Status)
	}
	if created.LastUpdated != "yesterday" {
		t.Errorf("last_updated = %q, want yesterday", created.LastUpdated)
	}
}

func TestCreateSensor_ResponseKeys(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv.Handler(), http.MethodPost, "/sensors", `{"type":"t","location":"l","last_value":1}`)
	got := decode[map[string]any](t, w)
	for _, key := range []string{"id", "type", "location", "last_value", "status", "last_updated"} {
		if _, ok := got[key]; !ok {
			t.Errorf("response missing %q: %v", key, got)
		}
	}
	if len(got) != 6 {
		t.Errorf("response has %d keys, want 6: %v", len(got), got)
	}
}

func TestCreateSensor_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing type", `{"location":"l","last_value":1}`, "Missing required fields"},
		{"missing location", `{"type":"t","last_value":1}`, "Missing required fields"},
		{"missing last_value", `{"type":"t","location":"l"}`, "Missing required fields"},
		{"null last_value", `{"type":"t","location":"l","last_value":null}`, "Missing required fields"},
		{"empty object", `{}`, "Missing required fields"},
		{"string last_value", `{"type":"t","location":"l","last_value":"high"}`, "last_value must be a number"},
		{"bool last_value", `{"type":"t","location":"l","last_value":true}`, "last_value must be a number"},
		{"numeric type", `{"type":5,"location":"l","last_value":1}`, "type must be a string"},
		{"not json", `not json`, "Request body must be a JSON object"},
		{"json array", `[1,2]`, "Request body must be a JSON object"},
		{"empty body", ``, "Request body must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t)
			h := srv.Handler()

			w := do(t, h, http.MethodPost, "/sensors", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			if got := decode[ErrorResponse](t, w).Error; got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}

			// A rejected registration must not consume an ID
			created := register(t, h, `{"type":"t","location":"l","last_value":1}`)
			if created.ID != 1 {
				t.Errorf("next id after rejection = %d, want 1", created.ID)
			}
		})
	}
}

func TestListSensors_OrderAcrossDeletes(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()

	for i := 0; i < 4; i++ {
		register(t, h, `{"type":"t","location":"l","last_value":`+strconv.Itoa(i)+`}`)
	}
	if w := do(t, h, http.MethodDelete, "/sensors/2", ""); w.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", w.Code)
	}
	created := register(t, h, `{"type":"t","location":"l","last_value":9}`)
	if created.ID != 5 {
		t.Errorf("id after delete = %d, want 5 (ids are never reused)", created.ID)
	}

	all := decode[[]sensor.Sensor](t, do(t, h, http.MethodGet, "/sensors", ""))
	wantIDs := []int{1, 3, 4, 5}
	if len(all) != len(wantIDs) {
		t.Fatalf("len = %d, want %d", len(all), len(wantIDs))
	}
	for i, id := range wantIDs {
		if all[i].ID != id {
			t.Errorf("all[%d].ID = %d, want %d", i, all[i].ID, id)
		}
	}
}

func TestListOnlineSensors(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()

	register(t, h, `{"type":"t","location":"a","last_value":1,"status":"online"}`)
	register(t, h, `{"type":"t","location":"b","last_value":2,"status":"online"}`)
	register(t, h, `{"type":"t","location":"c","last_value":3,"status":"offline"}`)
	register(t, h, `{"type":"t","location":"d","last_value":4,"status":"Online"}`)

	w := do(t, h, http.MethodGet, "/sensors/online", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	online := decode[[]map[string]any](t, w)
	if len(online) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(online), online)
	}
	for i, wantID := range []float64{1, 2} {
		if online[i]["id"] != wantID {
			t.Errorf("online[%d].id = %v, want %v", i, online[i]["id"], wantID)
		}
		if _, has := online[i]["status"]; has {
			t.Errorf("online[%d] should not carry status: %v", i, online[i])
		}
		if _, has := online[i]["last_updated"]; !has {
			t.Errorf("online[%d] missing last_updated", i)
		}
	}
}

func TestGetSensor(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()
	created := register(t, h, `{"type":"humidity","location":"Attic","last_value":55}`)

	w := do(t, h, http.MethodGet, "/sensors/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decode[sensor.Sensor](t, w); got != created {
		t.Errorf("GET = %+v, want %+v", got, created)
	}
}

func TestGetSensor_NotFound(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		path    string
		wantMsg string
	}{
		{"/sensors/999", "Sensor not found"},
		{"/sensors/0", "Sensor not found"},
		{"/sensors/99999999999999999999999", "Sensor not found"},
		{"/sensors/abc", "Not found"},
		{"/sensors/-1", "Not found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, srv.Handler(), http.MethodGet, tt.path, "")
			if w.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", w.Code)
			}
			if got := decode[ErrorResponse](t, w).Error; got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestDeleteSensor(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()
	register(t, h, `{"type":"t","location":"l","last_value":1}`)

	w := do(t, h, http.MethodDelete, "/sensors/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decode[MessageResponse](t, w).Message; got != "Sensor 1 deleted" {
		t.Errorf("message = %q, want %q", got, "Sensor 1 deleted")
	}

	if got := strings.TrimSpace(do(t, h, http.MethodGet, "/sensors", "").Body.String()); got != "[]" {
		t.Errorf("list after delete = %s, want []", got)
	}

	w = do(t, h, http.MethodDelete, "/sensors/1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", w.Code)
	}
	if got := decode[ErrorResponse](t, w).Error; got != "Sensor not found" {
		t.Errorf("error = %q", got)
	}
}

func TestDeleteSensor_NotFoundLeavesRegistry(t *testing.T) {
	srv := testServer(t)
	h := srv.Handler()
	register(t, h, `{"type":"t","location":"l","last_value":1}`)

	if w := do(t, h, http.MethodDelete, "/sensors/42", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if srv.registry.Count() != 1 || srv.registry.NextID() != 2 {
		t.Errorf("count/next = %d/%d, want 1/2", srv.registry.Count(), srv.registry.NextID())
	}
}

func TestSensorEvents_Published(t *testing.T) {
	pub := &fakePublisher{}
	srv := testServer(t, func(d *Deps) { d.Publisher = pub })
	h := srv.Handler()

	req, _ := http.NewRequest(http.MethodPost, "/sensors", strings.NewReader(`{"type":"t","location":"l","last_value":1}`))
	req.Header.Set("X-Request-ID", "req-create")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	do(t, h, http.MethodDelete, "/sensors/1", "")
	do(t, h, http.MethodDelete, "/sensors/1", "") // 404, no event

	// Close flushes the dispatcher queue
	srv.startBackground(t.Context())
	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	events := pub.published()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2", len(events))
	}
	if events[0].Type != sensor.EventRegistered || events[0].RequestID != "req-create" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Type != sensor.EventDeleted || events[1].SensorID != 1 {
		t.Errorf("events[1] = %+v", events[1])
	}
	if events[0].Source != sensor.SourceAPI {
		t.Errorf("source = %q, want api", events[0].Source)
	}
}

func TestSensorEvents_PublishErrorDoesNotFailRequest(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	srv := testServer(t, func(d *Deps) { d.Publisher = pub })
	srv.startBackground(t.Context())
	defer srv.Close() //nolint:errcheck // Test cleanup

	created := register(t, srv.Handler(), `{"type":"t","location":"l","last_value":1}`)
	if created.ID != 1 {
		t.Errorf("id = %d, want 1", created.ID)
	}
}
