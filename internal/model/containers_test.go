package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContainersMap_UnmarshalKeepsDocumentOrder verifies that keys come
// back in the order the backend wrote them, not in sorted or random order.
func TestContainersMap_UnmarshalKeepsDocumentOrder(t *testing.T) {
	raw := `{
		"zeta":  {"id": "c3", "ports": ["7777:7777"]},
		"alpha": {"id": "c1", "name": "alpha-app", "ports": ["3000:3000", "9229"]},
		"mid":   {"id": "c2"}
	}`

	var m ContainersMap
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	assert.Equal(t, 3, m.Len())

	rec, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha-app", rec.Name)
	assert.Equal(t, []string{"3000:3000", "9229"}, rec.Ports)

	rec, ok = m.Get("mid")
	require.True(t, ok)
	assert.Empty(t, rec.Ports)
	assert.Equal(t, "c2", rec.DisplayName())
}

// TestContainersMap_UnmarshalNull verifies that a null payload decodes to
// an empty map instead of failing.
func TestContainersMap_UnmarshalNull(t *testing.T) {
	var resp ContainersResponse
	require.NoError(t, json.Unmarshal([]byte(`{"containers": null}`), &resp))
	assert.Equal(t, 0, resp.Containers.Len())

	require.NoError(t, json.Unmarshal([]byte(`{}`), &resp))
	assert.Equal(t, 0, resp.Containers.Len())
}

// TestContainersMap_UnmarshalReplacesPreviousContent verifies that decoding
// into an existing map replaces it wholesale.
func TestContainersMap_UnmarshalReplacesPreviousContent(t *testing.T) {
	var m ContainersMap
	m.Set("old", ContainerRecord{ID: "x"})

	require.NoError(t, json.Unmarshal([]byte(`{"new": {"id": "y"}}`), &m))

	assert.Equal(t, []string{"new"}, m.Keys())
	_, ok := m.Get("old")
	assert.False(t, ok)
}

// TestContainersMap_UnmarshalDuplicateKey verifies the first position and
// last value of a duplicated key are kept.
func TestContainersMap_UnmarshalDuplicateKey(t *testing.T) {
	var m ContainersMap
	require.NoError(t, json.Unmarshal([]byte(`{"a":{"id":"1"},"b":{"id":"2"},"a":{"id":"3"}}`), &m))

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	rec, _ := m.Get("a")
	assert.Equal(t, "3", rec.ID)
}

// TestContainersMap_UnmarshalRejectsNonObject checks malformed payloads.
func TestContainersMap_UnmarshalRejectsNonObject(t *testing.T) {
	var m ContainersMap
	assert.Error(t, json.Unmarshal([]byte(`["a","b"]`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"a": 5}`), &m))
}

// TestContainersMap_MarshalRoundTrip verifies encoding preserves order.
func TestContainersMap_MarshalRoundTrip(t *testing.T) {
	var m ContainersMap
	m.Set("web", ContainerRecord{ID: "1", Ports: []string{"3000:3000"}})
	m.Set("api", ContainerRecord{ID: "2"})

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"web":{"id":"1","ports":["3000:3000"]},"api":{"id":"2"}}`, string(data))
	assert.Less(t, strings.Index(string(data), `"web"`), strings.Index(string(data), `"api"`))
}

// TestContainersMap_SetKeepsPosition verifies replacing a record does not move it.
func TestContainersMap_SetKeepsPosition(t *testing.T) {
	m := NewContainersMap()
	m.Set("a", ContainerRecord{ID: "1"})
	m.Set("b", ContainerRecord{ID: "2"})
	m.Set("a", ContainerRecord{ID: "3"})

	assert.Equal(t, []string{"a", "b"}, m.Keys())
	rec, _ := m.Get("a")
	assert.Equal(t, "3", rec.ID)
}

// TestContainersMap_Clone verifies that a clone is independent of its source.
func TestContainersMap_Clone(t *testing.T) {
	var m ContainersMap
	m.Set("a", ContainerRecord{ID: "1", Ports: []string{"3000:3000"}})

	c := m.Clone()
	rec, _ := c.Get("a")
	rec.Ports[0] = "mutated"
	c.Set("b", ContainerRecord{ID: "2"})

	orig, _ := m.Get("a")
	assert.Equal(t, "3000:3000", orig.Ports[0])
	assert.Equal(t, 1, m.Len())
}

// TestContainersMap_NilSafe checks the read accessors on a nil map.
func TestContainersMap_NilSafe(t *testing.T) {
	var m *ContainersMap
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	_, ok := m.Get("x")
	assert.False(t, ok)
}
