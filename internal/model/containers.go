package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContainerRecord describes one running container as reported by the backend.
type ContainerRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`

	// Ports holds the published port mappings in registration order.
	// The order matters: the first mapping is the fallback when no
	// preferred port matches.
	Ports []string `json:"ports,omitempty"`

	Workdir string `json:"workdir,omitempty"`
}

// DisplayName returns the container name, or its ID when unnamed.
func (r ContainerRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// ContainersMap maps a subdirectory key to its running container.
//
// Unlike a Go map it remembers key order: JSON documents decode in document
// order and Set appends new keys at the end. URL resolution falls back to
// "the first record that has a port", so iteration order is part of the
// observable behavior.
//
// The zero value is an empty map ready to use.
type ContainersMap struct {
	keys    []string
	records map[string]ContainerRecord
}

// NewContainersMap creates an empty ContainersMap.
func NewContainersMap() *ContainersMap {
	return &ContainersMap{}
}

// Set stores rec under key. Re-setting an existing key replaces its record
// but keeps its original position.
func (m *ContainersMap) Set(key string, rec ContainerRecord) {
	if m.records == nil {
		m.records = make(map[string]ContainerRecord)
	}
	if _, exists := m.records[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.records[key] = rec
}

// Get returns the record stored under key.
func (m *ContainersMap) Get(key string) (ContainerRecord, bool) {
	if m == nil || m.records == nil {
		return ContainerRecord{}, false
	}
	rec, ok := m.records[key]
	return rec, ok
}

// Keys returns the subdirectory keys in iteration order.
// The returned slice is a copy.
func (m *ContainersMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of records.
func (m *ContainersMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns an independent copy of m. Port slices are copied too,
// so mutating the clone never affects m.
func (m *ContainersMap) Clone() ContainersMap {
	var out ContainersMap
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		rec := m.records[k]
		rec.Ports = append([]string(nil), rec.Ports...)
		out.Set(k, rec)
	}
	return out
}

// MarshalJSON encodes the map as a JSON object, preserving key order.
func (m ContainersMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.records[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object in document order. A JSON null
// decodes to an empty map. A duplicated key keeps its first position
// and its last value.
func (m *ContainersMap) UnmarshalJSON(data []byte) error {
	*m = ContainersMap{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("containers map: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("containers map: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("containers map: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("containers map: expected string key, got %v", keyTok)
		}

		var rec ContainerRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("containers map: record %q: %w", key, err)
		}
		m.Set(key, rec)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("containers map: %w", err)
	}
	return nil
}
