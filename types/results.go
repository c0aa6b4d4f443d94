package types

import (
	"encoding/json"
	"errors"
)

// ErrMissingName is returned when a benchmark record has no "name" field.
var ErrMissingName = errors.New("benchmark record has no name")

// BenchmarkResultSet is the structured output written by the performance report generator.
// Only the benchmark names are consumed here; the measurements themselves are opaque.
type BenchmarkResultSet struct {
	Data []BenchmarkRecord `json:"data"`
}

// BenchmarkRecord is a single entry of the result set's "data" list.
type BenchmarkRecord struct {
	Name string
	// Named is false when "name" is present but not a string. Such a record matches no row.
	Named bool
}

// UnmarshalJSON requires the "name" key to be present.
func (r *BenchmarkRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	rawName, ok := fields["name"]
	if !ok {
		return ErrMissingName
	}
	var name any
	if err := json.Unmarshal(rawName, &name); err != nil {
		return err
	}
	r.Name, r.Named = name.(string)
	return nil
}

// NameSet returns the set of benchmark names present in the result set.
func (s *BenchmarkResultSet) NameSet() map[string]struct{} {
	names := make(map[string]struct{}, len(s.Data))
	for _, record := range s.Data {
		if !record.Named {
			continue
		}
		names[record.Name] = struct{}{}
	}
	return names
}
