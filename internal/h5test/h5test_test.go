package h5test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5csv/internal/message"
	"github.com/robert-malhotra/h5csv/internal/superblock"
)

func TestSuperblockVersions(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		version uint8
	}{
		{"v0", FormatV0, 0},
		{"latest", FormatLatest, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.format)
			f.Root().Dataset("x", message.NewFloatDatatype(8), []uint64{2}, []float64{1, 2})
			data, err := f.Bytes()
			require.NoError(t, err)

			sb, err := superblock.Read(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.version, sb.Version)
			assert.Equal(t, uint64(len(data)), sb.EOFAddress)
		})
	}
}

func TestUserBlock(t *testing.T) {
	f := New(FormatV0, WithUserBlock(512))
	data, err := f.Bytes()
	require.NoError(t, err)
	assert.Equal(t, superblock.Signature, data[512:520])

	sb, err := superblock.Read(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint64(512), sb.BaseAddress)
}

func TestInvalidDatasets(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *Group)
	}{
		{"value count", func(g *Group) {
			g.Dataset("x", message.NewIntDatatype(4, true), []uint64{3}, []float64{1})
		}},
		{"filters without chunks", func(g *Group) {
			g.Dataset("x", message.NewIntDatatype(4, true), []uint64{1}, []float64{1}, WithCompression(1))
		}},
		{"chunk rank", func(g *Group) {
			g.Dataset("x", message.NewIntDatatype(4, true), []uint64{2, 2}, make([]float64, 4), WithChunks(2))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(FormatLatest)
			tt.build(f.Root())
			_, err := f.Bytes()
			assert.Error(t, err)
		})
	}
}

func TestWriteTemp(t *testing.T) {
	f := New(FormatV0)
	f.Root().Group("empty")
	path := f.WriteTemp(t, "empty.h5")
	assert.FileExists(t, path)
}
