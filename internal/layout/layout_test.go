package layout

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	h5bin "github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/btree"
	"github.com/robert-malhotra/h5csv/internal/filter"
	"github.com/robert-malhotra/h5csv/internal/message"
)

var cfg = h5bin.DefaultConfig()

// int16s encodes 0..n-1 as little-endian int16 values.
func int16s(n int) []byte {
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(i))
	}
	return out
}

func decode16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func baseSpec(dims []uint64, dl *message.DataLayout) Spec {
	return Spec{
		Layout:    dl,
		Dataspace: message.NewDataspace(dims),
		Datatype:  message.NewIntDatatype(2, true),
	}
}

func TestCompact(t *testing.T) {
	data := int16s(6)
	l, err := New(baseSpec([]uint64{2, 3}, message.NewCompactLayout(data)), h5bin.NewReader(&h5bin.Buffer{}, cfg))
	require.NoError(t, err)
	assert.Equal(t, message.LayoutCompact, l.Class())

	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCompactTooShort(t *testing.T) {
	l, err := New(baseSpec([]uint64{2, 3}, message.NewCompactLayout(int16s(4))), h5bin.NewReader(&h5bin.Buffer{}, cfg))
	require.NoError(t, err)
	_, err = l.Read()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestContiguous(t *testing.T) {
	data := int16s(12)
	buf := &h5bin.Buffer{}
	require.NoError(t, h5bin.NewWriter(buf, cfg).At(100).WriteBytes(data))

	l, err := New(baseSpec([]uint64{4, 3}, message.NewContiguousLayout(100, uint64(len(data)))), h5bin.NewReader(buf, cfg))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestContiguousUnallocatedReadsFill(t *testing.T) {
	spec := baseSpec([]uint64{3}, message.NewContiguousLayout(h5bin.Undefined(8), 6))
	spec.Fill = message.NewFillValue([]byte{0x07, 0x00})

	l, err := New(spec, h5bin.NewReader(&h5bin.Buffer{}, cfg))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, []int16{7, 7, 7}, decode16(got))
}

func TestContiguousTruncatedFile(t *testing.T) {
	buf := &h5bin.Buffer{}
	require.NoError(t, h5bin.NewWriter(buf, cfg).WriteBytes(int16s(2)))

	l, err := New(baseSpec([]uint64{4}, message.NewContiguousLayout(0, 0)), h5bin.NewReader(buf, cfg))
	require.NoError(t, err)
	_, err = l.Read()
	assert.ErrorIs(t, err, h5bin.ErrShortRead)
}

func TestMissingMessages(t *testing.T) {
	_, err := New(Spec{}, h5bin.NewReader(&h5bin.Buffer{}, cfg))
	assert.ErrorIs(t, err, ErrCorrupt)
}

// writeChunks stores each chunk, optionally filtered, starting at addr and
// returns B-tree style entries in the same order.
func writeChunks(t *testing.T, w *h5bin.Writer, chunks []Chunk, p *filter.Pipeline) []btree.ChunkEntry {
	t.Helper()
	entries := make([]btree.ChunkEntry, len(chunks))
	for i, c := range chunks {
		data := c.Data
		if p != nil {
			var err error
			data, err = p.Encode(data)
			require.NoError(t, err)
		}
		entries[i] = btree.ChunkEntry{Offset: c.Offset, Size: uint32(len(data)), Address: uint64(w.Pos())}
		require.NoError(t, w.WriteBytes(data))
	}
	return entries
}

func TestChunkedBTree(t *testing.T) {
	dims := []uint64{5, 3}
	chunkDims := []uint64{2, 2}
	data := int16s(15)
	chunks := Split(data, dims, chunkDims, 2)
	require.Len(t, chunks, 6)

	buf := &h5bin.Buffer{}
	w := h5bin.NewWriter(buf, cfg).At(64)
	entries := writeChunks(t, w, chunks, nil)
	treeAddr := w.Pos()
	require.NoError(t, btree.WriteChunkTree(w, entries, []uint64{6, 4}))

	l, err := New(baseSpec(dims, message.NewChunkedLayout(chunkDims, 2, uint64(treeAddr))), h5bin.NewReader(buf, cfg))
	require.NoError(t, err)
	assert.Equal(t, message.LayoutChunked, l.Class())
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestChunkedMissingChunksReadFill(t *testing.T) {
	dims := []uint64{4, 4}
	chunkDims := []uint64{2, 2}
	chunks := Split(int16s(16), dims, chunkDims, 2)

	buf := &h5bin.Buffer{}
	w := h5bin.NewWriter(buf, cfg).At(64)
	// Keep only the first and last chunk.
	entries := writeChunks(t, w, []Chunk{chunks[0], chunks[3]}, nil)
	treeAddr := w.Pos()
	require.NoError(t, btree.WriteChunkTree(w, entries, []uint64{4, 4}))

	spec := baseSpec(dims, message.NewChunkedLayout(chunkDims, 2, uint64(treeAddr)))
	spec.Fill = message.NewFillValue([]byte{0xff, 0xff})
	l, err := New(spec, h5bin.NewReader(buf, cfg))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, []int16{
		0, 1, -1, -1,
		4, 5, -1, -1,
		-1, -1, 10, 11,
		-1, -1, 14, 15,
	}, decode16(got))
}

func TestChunkedFiltered(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{
		{ID: message.FilterShuffle, ClientData: []uint32{2}},
		{ID: message.FilterDeflate, ClientData: []uint32{4}},
	}}
	p, err := filter.NewPipeline(fp)
	require.NoError(t, err)

	dims := []uint64{7}
	chunkDims := []uint64{3}
	data := int16s(7)

	buf := &h5bin.Buffer{}
	w := h5bin.NewWriter(buf, cfg).At(64)
	entries := writeChunks(t, w, Split(data, dims, chunkDims, 2), p)
	treeAddr := w.Pos()
	require.NoError(t, btree.WriteChunkTree(w, entries, []uint64{9}))

	spec := baseSpec(dims, message.NewChunkedLayout(chunkDims, 2, uint64(treeAddr)))
	spec.Filters = fp
	l, err := New(spec, h5bin.NewReader(buf, cfg))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSingleChunk(t *testing.T) {
	data := int16s(6)
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterDeflate, ClientData: []uint32{6}}}}
	p, err := filter.NewPipeline(fp)
	require.NoError(t, err)
	packed, err := p.Encode(data)
	require.NoError(t, err)

	tests := []struct {
		name    string
		stored  []byte
		filters *message.FilterPipeline
		size    uint64
	}{
		{"plain", data, nil, 0},
		{"deflate", packed, fp, uint64(len(packed))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &h5bin.Buffer{}
			require.NoError(t, h5bin.NewWriter(buf, cfg).At(32).WriteBytes(tt.stored))

			spec := baseSpec([]uint64{2, 3}, message.NewSingleChunkLayout([]uint64{2, 3}, 2, 32, tt.size))
			spec.Filters = tt.filters
			l, err := New(spec, h5bin.NewReader(buf, cfg))
			require.NoError(t, err)
			got, err := l.Read()
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestImplicitIndex(t *testing.T) {
	dims := []uint64{3, 3}
	chunkDims := []uint64{2, 2}
	data := int16s(9)

	buf := &h5bin.Buffer{}
	w := h5bin.NewWriter(buf, cfg).At(16)
	writeChunks(t, w, Split(data, dims, chunkDims, 2), nil)

	dl := message.NewChunkedLayout(chunkDims, 2, 16)
	dl.Version = 4
	dl.ChunkIndexType = message.ChunkIndexImplicit
	l, err := New(baseSpec(dims, dl), h5bin.NewReader(buf, cfg))
	require.NoError(t, err)
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFixedArrayIndex(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterDeflate}}}
	dims := []uint64{4, 5}
	chunkDims := []uint64{2, 2}
	data := int16s(20)
	chunkBytes := uint64(2 * 2 * 2)

	for _, filtered := range []bool{false, true} {
		name := "plain"
		if filtered {
			name = "filtered"
		}
		t.Run(name, func(t *testing.T) {
			var p *filter.Pipeline
			spec := baseSpec(dims, nil)
			if filtered {
				var err error
				p, err = filter.NewPipeline(fp)
				require.NoError(t, err)
				spec.Filters = fp
			}

			buf := &h5bin.Buffer{}
			w := h5bin.NewWriter(buf, cfg).At(48)
			entries := writeChunks(t, w, Split(data, dims, chunkDims, 2), p)
			// One unallocated chunk reads as fill.
			entries[5].Address = h5bin.Undefined(cfg.OffsetSize)

			indexAddr := uint64(w.Pos())
			require.NoError(t, WriteFixedArray(w, entries, filtered, chunkBytes))
			assert.Equal(t, int64(indexAddr)+int64(FixedArraySize(cfg, len(entries), filtered, chunkBytes)), w.Pos())

			spec.Layout = message.NewFixedArrayLayout(chunkDims, 2, indexAddr)
			l, err := New(spec, h5bin.NewReader(buf, cfg))
			require.NoError(t, err)
			got, err := l.Read()
			require.NoError(t, err)

			want := decode16(data)
			// Chunk 5 covers rows 2-3, column 4.
			want[14], want[19] = 0, 0
			assert.Equal(t, want, decode16(got))
		})
	}
}

func TestFixedArrayChecksum(t *testing.T) {
	buf := &h5bin.Buffer{}
	w := h5bin.NewWriter(buf, cfg)
	entries := []btree.ChunkEntry{{Offset: []uint64{0}, Address: 200}}
	require.NoError(t, WriteFixedArray(w, entries, false, 4))
	buf.Bytes()[9] ^= 0xff

	_, err := readFixedArray(h5bin.NewReader(buf, cfg), 0, []uint64{1}, []uint64{2})
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestUnsupportedIndex(t *testing.T) {
	dl := message.NewChunkedLayout([]uint64{2}, 2, 8)
	dl.Version = 4
	dl.ChunkIndexType = message.ChunkIndexExtensibleArray
	l, err := New(baseSpec([]uint64{4}, dl), h5bin.NewReader(&h5bin.Buffer{}, cfg))
	require.NoError(t, err)
	_, err = l.Read()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestChunkRankMismatch(t *testing.T) {
	_, err := New(baseSpec([]uint64{4, 4}, message.NewChunkedLayout([]uint64{2}, 2, 8)), h5bin.NewReader(&h5bin.Buffer{}, cfg))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSplit(t *testing.T) {
	chunks := Split(int16s(6), []uint64{3, 2}, []uint64{2, 2}, 2)
	require.Len(t, chunks, 2)
	assert.Equal(t, []uint64{0, 0}, chunks[0].Offset)
	assert.Equal(t, []int16{0, 1, 2, 3}, decode16(chunks[0].Data))
	assert.Equal(t, []uint64{2, 0}, chunks[1].Offset)
	// Edge chunk padded with zeros.
	assert.Equal(t, []int16{4, 5, 0, 0}, decode16(chunks[1].Data))
}

func TestChunkInflatesPastChunkSize(t *testing.T) {
	fp := &message.FilterPipeline{Filters: []message.FilterInfo{{ID: message.FilterDeflate, ClientData: []uint32{9}}}}
	p, err := filter.NewPipeline(fp)
	require.NoError(t, err)
	bomb, err := p.Encode(make([]byte, 1<<20))
	require.NoError(t, err)

	buf := &h5bin.Buffer{}
	require.NoError(t, h5bin.NewWriter(buf, cfg).At(32).WriteBytes(bomb))

	spec := baseSpec([]uint64{2, 3}, message.NewSingleChunkLayout([]uint64{2, 3}, 2, 32, uint64(len(bomb))))
	spec.Filters = fp
	l, err := New(spec, h5bin.NewReader(buf, cfg))
	require.NoError(t, err)
	_, err = l.Read()
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, err, filter.ErrOversize)
}

func TestElementCountOverflow(t *testing.T) {
	undefined := h5bin.Undefined(cfg.OffsetSize)
	tests := []struct {
		name string
		dims []uint64
		dl   *message.DataLayout
	}{
		{"elements", []uint64{1 << 32, 1 << 32}, message.NewContiguousLayout(undefined, 0)},
		{"bytes", []uint64{1 << 32, 1 << 31}, message.NewContiguousLayout(undefined, 0)},
		{"chunk bytes", []uint64{4, 4}, message.NewChunkedLayout([]uint64{1 << 32, 1 << 31}, 2, undefined)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(baseSpec(tt.dims, tt.dl), h5bin.NewReader(&h5bin.Buffer{}, cfg))
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
