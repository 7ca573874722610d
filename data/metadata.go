package data

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata maps string keys to JSON-compatible values. Numbers are kept as
// json.Number so integers survive a round trip through any backend.
type Metadata map[string]any

// Get safely retrieves a value.
func (m Metadata) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}

	value, exists := m[key]
	return value, exists
}

// Set stores value under key. The map must not be nil.
func (m Metadata) Set(key string, value any) {
	m[key] = value
}

// Merge copies every key of other into m, overwriting existing keys, and
// returns m. A nil receiver yields a fresh map.
func (m Metadata) Merge(other Metadata) Metadata {
	if m == nil {
		m = make(Metadata, len(other))
	}
	for key, value := range other {
		m[key] = cloneValue(value)
	}

	return m
}

// Clone creates a deep copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}

	clone := make(Metadata, len(m))
	for key, value := range m {
		clone[key] = cloneValue(value)
	}

	return clone
}

// Encode serializes the metadata as a JSON object.
func (m Metadata) Encode() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// DecodeMetadata parses a JSON object. Empty input yields empty metadata.
func DecodeMetadata(buf []byte) (Metadata, error) {
	buf = bytes.TrimSpace(buf)
	if len(buf) == 0 {
		return make(Metadata), nil
	}

	decoder := json.NewDecoder(bytes.NewReader(buf))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	object, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to decode metadata: expected an object, got %T: %w", value, ErrInvalid)
	}

	return Metadata(object), nil
}

// NormalizeMetadata converts any value that encodes as a JSON object, for
// example the result of decoding TOML, into JSON-compatible metadata.
// Values JSON cannot represent, such as channels, are rejected.
func NormalizeMetadata(value any) (Metadata, error) {
	buf, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize metadata: %w", err)
	}

	return DecodeMetadata(buf)
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(v))
		for key, child := range v {
			clone[key] = cloneValue(child)
		}
		return clone
	case Metadata:
		return v.Clone()
	case []any:
		clone := make([]any, len(v))
		for i, child := range v {
			clone[i] = cloneValue(child)
		}
		return clone
	default:
		return v
	}
}
