package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/heap"
)

var cfg = binary.DefaultConfig()

func TestGroupTreeRoundTrip(t *testing.T) {
	hb := heap.NewBuilder()
	testOff := hb.Add("test")
	trainOff := hb.Add("train")
	aliasTarget := hb.Add("/test")
	aliasOff := hb.Add("alias")

	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)

	require.NoError(t, hb.Write(w.At(0), 64))
	heapObj, err := heap.ReadLocalHeap(binary.NewReader(buf, cfg), 0)
	require.NoError(t, err)

	snodA := uint64(512)
	snodB := uint64(1024)
	require.NoError(t, WriteSymbolNode(w.At(int64(snodA)), []SymbolEntry{
		{NameOffset: aliasOff, CacheType: CacheSoftLink, BTreeAddress: aliasTarget},
		{NameOffset: testOff, ObjectAddress: 2000},
	}))
	require.NoError(t, WriteSymbolNode(w.At(int64(snodB)), []SymbolEntry{
		{NameOffset: trainOff, ObjectAddress: 3000},
	}))

	tw := w.At(256)
	require.NoError(t, WriteGroupTree(tw, []uint64{snodA, snodB}, []uint64{0, testOff, trainOff}))
	assert.Equal(t, int64(256+GroupTreeSize(cfg, 2)), tw.Pos())

	entries, err := ReadGroupEntries(binary.NewReader(buf, cfg), 256, heapObj)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "alias", entries[0].Name)
	assert.True(t, entries[0].IsSoft())
	assert.Equal(t, "/test", entries[0].SoftLinkValue)
	assert.Equal(t, GroupEntry{Name: "test", ObjectAddress: 2000}, entries[1])
	assert.Equal(t, GroupEntry{Name: "train", ObjectAddress: 3000}, entries[2])
}

func TestGroupTreeBadKeys(t *testing.T) {
	w := binary.NewWriter(&binary.Buffer{}, cfg)
	err := WriteGroupTree(w, []uint64{1, 2}, []uint64{0})
	assert.ErrorIs(t, err, ErrInvalidTree)
}

func TestChunkTreeRoundTrip(t *testing.T) {
	in := []ChunkEntry{
		{Offset: []uint64{0, 0}, Size: 40, Address: 4096},
		{Offset: []uint64{0, 5}, Size: 38, FilterMask: 0x1, Address: 4136},
		{Offset: []uint64{5, 0}, Size: 40, Address: 4174},
	}
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg).At(128)
	require.NoError(t, WriteChunkTree(w, in, []uint64{10, 10}))
	assert.Equal(t, int64(128+ChunkTreeSize(cfg, 2, 3)), w.Pos())

	got, err := ReadChunkEntries(binary.NewReader(buf, cfg), 128, 2)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestChunkTreeWrongType(t *testing.T) {
	buf := &binary.Buffer{}
	w := binary.NewWriter(buf, cfg)
	require.NoError(t, WriteGroupTree(w, nil, []uint64{0}))

	_, err := ReadChunkEntries(binary.NewReader(buf, cfg), 0, 2)
	assert.ErrorIs(t, err, ErrInvalidTree)
}

func TestTreeBadSignature(t *testing.T) {
	buf := &binary.Buffer{}
	_, _ = buf.WriteAt(make([]byte, 64), 0)

	_, err := ReadChunkEntries(binary.NewReader(buf, cfg), 0, 1)
	assert.ErrorIs(t, err, ErrInvalidTree)
}
