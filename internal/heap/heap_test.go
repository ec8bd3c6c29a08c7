package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

func TestLocalHeapRoundTrip(t *testing.T) {
	cfg := binary.DefaultConfig()
	b := NewBuilder()
	testOff := b.Add("test")
	trainOff := b.Add("train")
	assert.Equal(t, uint64(8), testOff)
	assert.Equal(t, uint64(16), trainOff)
	assert.Equal(t, testOff, b.Add("test"))
	assert.Equal(t, 24, b.DataSize())

	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg).At(680)
	require.NoError(t, b.Write(w, 800))
	assert.Equal(t, int64(680+HeaderSize(cfg)), w.Pos())

	h, err := ReadLocalHeap(binary.NewReader(buf, cfg), 680)
	require.NoError(t, err)
	assert.Equal(t, uint64(800), h.DataAddress)
	assert.Equal(t, uint64(24), h.DataSize)

	tests := []struct {
		offset uint64
		want   string
	}{
		{0, ""},
		{testOff, "test"},
		{trainOff, "train"},
	}
	for _, tt := range tests {
		got, err := h.String(tt.offset)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err = h.String(100)
	assert.ErrorIs(t, err, ErrInvalidHeap)
}

func TestReadLocalHeapBadSignature(t *testing.T) {
	buf := &binary.Buffer{}
	_, _ = buf.WriteAt([]byte("HEAX\x00\x00\x00\x00"), 0)
	_, _ = buf.WriteAt(make([]byte, 32), 8)

	_, err := ReadLocalHeap(binary.NewReader(buf, binary.DefaultConfig()), 0)
	assert.ErrorIs(t, err, ErrInvalidHeap)
}
