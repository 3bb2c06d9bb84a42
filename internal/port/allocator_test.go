package port

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAllocator returns an Allocator that treats the given ports as bound.
func newTestAllocator(bound ...int) *Allocator {
	busy := make(map[int]bool, len(bound))
	for _, p := range bound {
		busy[p] = true
	}
	return &Allocator{isFree: func(p int) bool { return !busy[p] }}
}

// TestSuggest_Shift verifies the first shifted candidate is proposed.
func TestSuggest_Shift(t *testing.T) {
	a := newTestAllocator(3000)
	got, err := a.Suggest(3000, nil)
	require.NoError(t, err)
	assert.Equal(t, 13000, got)
}

// TestSuggest_SkipsBoundAndTaken verifies bound and caller-taken
// candidates are passed over.
func TestSuggest_SkipsBoundAndTaken(t *testing.T) {
	a := newTestAllocator(3000, 13000)
	got, err := a.Suggest(3000, []int{23000})
	require.NoError(t, err)
	assert.Equal(t, 33000, got)
}

// TestSuggest_Overflow verifies the dynamic range fallback once the
// shifted candidates run past 65535.
//
// 58088 + 10000 = 68088 exceeds the port range.
func TestSuggest_Overflow(t *testing.T) {
	a := newTestAllocator(58088, dynamicRangeStart)
	got, err := a.Suggest(58088, nil)
	require.NoError(t, err)
	assert.Equal(t, dynamicRangeStart+1, got)
}

// TestSuggest_Invalid verifies out-of-range input is rejected.
func TestSuggest_Invalid(t *testing.T) {
	a := newTestAllocator()
	for _, p := range []int{0, -1, 65536} {
		_, err := a.Suggest(p, nil)
		assert.Error(t, err, "port %d", p)
	}
}

// TestSuggest_Exhausted verifies an error when nothing is free.
func TestSuggest_Exhausted(t *testing.T) {
	a := &Allocator{isFree: func(int) bool { return false }}
	_, err := a.Suggest(3000, nil)
	assert.Error(t, err)
}

// TestAllocator_Conflicts verifies conflicts are detected with the real
// scanner probe.
func TestAllocator_Conflicts(t *testing.T) {
	used := listenTCP(t)

	a := NewAllocator(NewScanner())
	got := a.Conflicts([]string{fmt.Sprintf("%d:3000", used), "not-a-mapping"})
	assert.Equal(t, []int{used}, got)
}
