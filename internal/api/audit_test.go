package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/nerrad567/sensor-registry/internal/audit"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/config"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/database"
	"github.com/nerrad567/sensor-registry/migrations"
)

// auditServer creates a Server backed by a migrated in-memory audit database.
func auditServer(t *testing.T) (*Server, *audit.SQLiteRepository) {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := audit.NewSQLiteRepository(db.DB)
	srv := testServer(t, func(d *Deps) {
		d.AuditRepo = repo
		d.DB = db
	})
	return srv, repo
}

func TestAudit_RecordsSuccessfulMutations(t *testing.T) {
	srv, repo := auditServer(t)
	h := srv.Handler()
	srv.startBackground(t.Context())

	register(t, h, `{"type":"temperature","location":"Lab","last_value":21}`)
	do(t, h, http.MethodPost, "/sensors", `{"type":"t"}`) // rejected, no row
	do(t, h, http.MethodDelete, "/sensors/1", "")
	do(t, h, http.MethodDelete, "/sensors/1", "") // 404, no row

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	res, err := repo.List(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("Total = %d, want 2: %+v", res.Total, res.Entries)
	}
	if res.Entries[0].Action != audit.ActionDelete || res.Entries[1].Action != audit.ActionRegister {
		t.Errorf("actions = %s,%s, want delete,register", res.Entries[0].Action, res.Entries[1].Action)
	}
	reg := res.Entries[1]
	if reg.SensorID != 1 || reg.Source != "api" || reg.RequestID == "" {
		t.Errorf("register entry = %+v", reg)
	}
	if reg.Details["location"] != "Lab" {
		t.Errorf("details = %v", reg.Details)
	}
}

func TestAudit_ListEndpoint(t *testing.T) {
	srv, repo := auditServer(t)
	ctx := context.Background()

	for _, e := range []audit.Entry{
		{Action: audit.ActionRegister, SensorID: 1, Source: "seed"},
		{Action: audit.ActionRegister, SensorID: 2, Source: "api"},
		{Action: audit.ActionDelete, SensorID: 1, Source: "api"},
	} {
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantTotal int
	}{
		{"all", "", http.StatusOK, 3},
		{"by action", "?action=delete", http.StatusOK, 1},
		{"by sensor", "?sensor_id=1", http.StatusOK, 2},
		{"paged", "?limit=1&offset=1", http.StatusOK, 3},
		{"bad limit", "?limit=ten", http.StatusBadRequest, 0},
		{"bad sensor id", "?sensor_id=x", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv.Handler(), http.MethodGet, "/audit"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if got := decode[audit.ListResult](t, w); got.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", got.Total, tt.wantTotal)
			}
		})
	}
}

func TestAudit_Disabled(t *testing.T) {
	srv := testServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/audit", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if got := decode[ErrorResponse](t, w).Error; got != "Audit trail is not enabled" {
		t.Errorf("error = %q", got)
	}
}

func TestHealth_WithDatabase(t *testing.T) {
	srv, _ := auditServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decode[HealthResponse](t, w).Checks["database"]; got != "ok" {
		t.Errorf("checks[database] = %q, want ok", got)
	}

	st := decode[SystemStatus](t, do(t, srv.Handler(), http.MethodGet, "/status", ""))
	if st.Database == nil {
		t.Error("status should include database stats")
	}
}
