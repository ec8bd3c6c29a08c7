package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAligned(t *testing.T) {
	a := New(96)
	assert.Equal(t, uint64(96), a.Alloc(10, "a"))
	assert.Equal(t, uint64(112), a.Alloc(8, "b"))
	assert.Equal(t, uint64(120), a.Alloc(1, "c"))
	assert.Equal(t, uint64(128), a.EOF())
	require.NoError(t, a.Validate())
}

func TestUnalignedBase(t *testing.T) {
	a := New(13)
	assert.Equal(t, uint64(16), a.Alloc(4, "a"))
}

func TestZeroSize(t *testing.T) {
	a := New(0)
	a.Alloc(5, "a")
	assert.Equal(t, uint64(8), a.Alloc(0, "empty"))
	assert.Len(t, a.Allocations(), 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		blocks []Allocation
		ok     bool
	}{
		{"disjoint", []Allocation{{16, 8, "a"}, {24, 8, "b"}}, true},
		{"overlap", []Allocation{{16, 16, "a"}, {24, 8, "b"}}, false},
		{"before base", []Allocation{{0, 8, "a"}}, false},
		{"past eof", []Allocation{{16, 64, "a"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Allocator{base: 16, eof: 48, allocations: tt.blocks}
			if tt.ok {
				assert.NoError(t, a.Validate())
			} else {
				assert.Error(t, a.Validate())
			}
		})
	}
}

func TestAllocationsIsACopy(t *testing.T) {
	a := New(0)
	a.Alloc(8, "a")
	got := a.Allocations()
	got[0].Tag = "changed"
	assert.Equal(t, "a", a.Allocations()[0].Tag)
}
