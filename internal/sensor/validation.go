package sensor

import (
	"encoding/json"
	"math"
	"strings"
)

// Field names accepted in a registration body.
const (
	FieldType        = "type"
	FieldLocation    = "location"
	FieldLastValue   = "last_value"
	FieldStatus      = "status"
	FieldLastUpdated = "last_updated"
)

// requiredFields must be present (and non-null) in every registration.
var requiredFields = []string{FieldType, FieldLocation, FieldLastValue}

// ParseCreateRequest decodes a JSON registration body and validates it.
//
// The body must be a JSON object. type, location and last_value are
// required; last_value must be a JSON number (strings and booleans are
// rejected, integers are widened to float64). status and last_updated are
// optional and kept verbatim. Unknown keys are ignored.
//
// All errors wrap ErrInvalidInput.
func ParseCreateRequest(body []byte) (CreateRequest, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return CreateRequest{}, ErrInvalidBody
	}
	return FromFields(fields)
}

// FromFields validates loosely-typed decoded fields (from JSON or YAML)
// into a CreateRequest.
func FromFields(fields map[string]any) (CreateRequest, error) {
	for _, name := range requiredFields {
		if v, ok := fields[name]; !ok || v == nil {
			return CreateRequest{}, &FieldError{Field: name, Err: ErrMissingFields}
		}
	}

	lastValue, ok := toFloat(fields[FieldLastValue])
	if !ok {
		return CreateRequest{}, &FieldError{Field: FieldLastValue, Err: ErrValueNotNumber}
	}

	typ, err := stringField(fields, FieldType)
	if err != nil {
		return CreateRequest{}, err
	}
	location, err := stringField(fields, FieldLocation)
	if err != nil {
		return CreateRequest{}, err
	}

	req := CreateRequest{
		Type:      typ,
		Location:  location,
		LastValue: lastValue,
	}

	if req.Status, err = optionalStringField(fields, FieldStatus); err != nil {
		return CreateRequest{}, err
	}
	if req.LastUpdated, err = optionalStringField(fields, FieldLastUpdated); err != nil {
		return CreateRequest{}, err
	}

	if err := req.Validate(); err != nil {
		return CreateRequest{}, err
	}
	return req, nil
}

// Validate checks a CreateRequest built directly in Go code.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Type) == "" {
		return &FieldError{Field: FieldType, Err: ErrMissingFields}
	}
	if strings.TrimSpace(r.Location) == "" {
		return &FieldError{Field: FieldLocation, Err: ErrMissingFields}
	}
	if math.IsNaN(r.LastValue) || math.IsInf(r.LastValue, 0) {
		return &FieldError{Field: FieldLastValue, Err: ErrValueNotNumber}
	}
	return nil
}

// toFloat accepts the numeric kinds produced by encoding/json and yaml.v3.
// Booleans are not numbers here.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringField(fields map[string]any, name string) (string, error) {
	s, ok := fields[name].(string)
	if !ok {
		return "", &FieldError{Field: name, Err: ErrFieldNotString}
	}
	return s, nil
}

func optionalStringField(fields map[string]any, name string) (*string, error) {
	v, ok := fields[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &FieldError{Field: name, Err: ErrFieldNotString}
	}
	return &s, nil
}
