package sensor

import (
	"fmt"
	"testing"
)

// setupBenchRegistry creates a registry pre-populated with n sensors,
// every third one online.
func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	r := NewRegistry()
	online := StatusOnline

	for i := 0; i < n; i++ {
		req := CreateRequest{
			Type:      "temperature",
			Location:  fmt.Sprintf("room-%04d", i),
			LastValue: float64(i),
		}
		if i%3 == 0 {
			req.Status = &online
		}
		if _, err := r.Register(req); err != nil {
			b.Fatalf("registering sensor %d: %v", i, err)
		}
	}
	return r
}

func BenchmarkRegistryGetByID(b *testing.B) {
	r := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.GetByID(50) //nolint:errcheck // benchmark
	}
}

func BenchmarkRegistryListAll(b *testing.B) {
	r := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.ListAll()
	}
}

func BenchmarkRegistryListOnline(b *testing.B) {
	r := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.ListOnline()
	}
}

func BenchmarkParseCreateRequest(b *testing.B) {
	body := []byte(`{"type":"temperature","location":"room1","last_value":25.5,"status":"online"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseCreateRequest(body); err != nil {
			b.Fatal(err)
		}
	}
}
