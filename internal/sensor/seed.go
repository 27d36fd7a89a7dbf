package sensor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of a seed file:
//
//	sensors:
//	  - type: temperature
//	    location: room1
//	    last_value: 21.5
//	    status: online
type seedFile struct {
	Sensors []map[string]any `yaml:"sensors"`
}

// LoadSeedFile reads and validates a YAML seed file.
// Entries are returned in file order. The first invalid entry aborts the
// load with its zero-based index in the error.
func LoadSeedFile(path string) ([]CreateRequest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	reqs := make([]CreateRequest, 0, len(file.Sensors))
	for i, fields := range file.Sensors {
		req, err := FromFields(fields)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// Seed registers each request in order and returns the created sensors.
// It stops at the first failure; sensors registered before it remain.
func (r *Registry) Seed(reqs []CreateRequest) ([]Sensor, error) {
	created := make([]Sensor, 0, len(reqs))
	for i, req := range reqs {
		s, err := r.Register(req)
		if err != nil {
			return created, fmt.Errorf("seeding entry %d: %w", i, err)
		}
		created = append(created, s)
	}
	return created, nil
}
