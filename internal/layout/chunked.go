package layout

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5csv/internal/btree"
	"github.com/robert-malhotra/h5csv/internal/filter"
	"github.com/robert-malhotra/h5csv/internal/message"
)

// Chunked storage splits the dataset into equal-shaped chunks, each stored
// and filtered independently.
type Chunked struct {
	storage
	pipeline   *filter.Pipeline
	dims       []uint64
	chunkDims  []uint64
	chunkBytes uint64
}

func newChunked(base storage, pipeline *filter.Pipeline) (*Chunked, error) {
	l := base.spec.Layout
	dims := base.spec.Dataspace.Dimensions
	if len(l.ChunkDims) != len(dims) {
		return nil, fmt.Errorf("%w: chunk rank %d does not match dataspace rank %d", ErrCorrupt, len(l.ChunkDims), len(dims))
	}
	if l.ElementSize != 0 && l.ElementSize != base.spec.Datatype.Size {
		return nil, fmt.Errorf("%w: chunk element size %d, datatype size %d", ErrCorrupt, l.ElementSize, base.spec.Datatype.Size)
	}
	chunkBytes := uint64(base.spec.Datatype.Size)
	for _, d := range l.ChunkDims {
		if d == 0 {
			return nil, fmt.Errorf("%w: zero chunk dimension", ErrCorrupt)
		}
		hi, lo := bits.Mul64(chunkBytes, d)
		if hi != 0 || lo > maxBufferSize {
			return nil, fmt.Errorf("%w: chunk dims %v are too large", ErrCorrupt, l.ChunkDims)
		}
		chunkBytes = lo
	}
	pipeline.SetLimit(chunkBytes)
	return &Chunked{
		storage:    base,
		pipeline:   pipeline,
		dims:       dims,
		chunkDims:  l.ChunkDims,
		chunkBytes: chunkBytes,
	}, nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// Read assembles every stored chunk. Regions no chunk covers keep the
// fill value.
func (c *Chunked) Read() ([]byte, error) {
	out := c.filled(c.size)
	if c.size == 0 {
		return out, nil
	}
	entries, err := c.index()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if c.reader.IsUndefinedOffset(e.Address) {
			continue
		}
		chunk, err := c.readChunk(e)
		if err != nil {
			return nil, fmt.Errorf("chunk %v: %w", e.Offset, err)
		}
		if err := c.place(out, chunk, e.Offset); err != nil {
			return nil, fmt.Errorf("chunk %v: %w", e.Offset, err)
		}
	}
	return out, nil
}

// index lists the stored chunks using whichever index the layout names.
func (c *Chunked) index() ([]btree.ChunkEntry, error) {
	l := c.spec.Layout
	if c.reader.IsUndefinedOffset(l.ChunkIndexAddr) {
		return nil, nil
	}
	switch l.ChunkIndexType {
	case message.ChunkIndexBTreeV1:
		entries, err := btree.ReadChunkEntries(c.reader, l.ChunkIndexAddr, len(c.dims))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		return entries, nil
	case message.ChunkIndexSingleChunk:
		size := c.chunkBytes
		if l.SingleChunkFiltered() {
			size = l.SingleChunkSize
		}
		return []btree.ChunkEntry{{
			Offset:     make([]uint64, len(c.dims)),
			FilterMask: l.SingleChunkFilterMask,
			Size:       uint32(size),
			Address:    l.ChunkIndexAddr,
		}}, nil
	case message.ChunkIndexImplicit:
		return c.implicitIndex(), nil
	case message.ChunkIndexFixedArray:
		return readFixedArray(c.reader, l.ChunkIndexAddr, c.grid(), c.chunkDims)
	}
	return nil, fmt.Errorf("%w: %s chunk index", ErrUnsupported, l.ChunkIndexType)
}

// grid returns the number of chunks along each dimension.
func (c *Chunked) grid() []uint64 {
	return chunkGrid(c.dims, c.chunkDims)
}

func chunkGrid(dims, chunkDims []uint64) []uint64 {
	g := make([]uint64, len(dims))
	for i := range dims {
		g[i] = (dims[i] + chunkDims[i] - 1) / chunkDims[i]
	}
	return g
}

// chunkOffset converts a row-major chunk number into element coordinates.
func chunkOffset(n uint64, grid, chunkDims []uint64) []uint64 {
	off := make([]uint64, len(grid))
	for d := len(grid) - 1; d >= 0; d-- {
		off[d] = (n % grid[d]) * chunkDims[d]
		n /= grid[d]
	}
	return off
}

// implicitIndex lays every chunk out back to back in row-major order.
// Implicit indexing is never combined with filters.
func (c *Chunked) implicitIndex() []btree.ChunkEntry {
	grid := c.grid()
	total := uint64(1)
	for _, g := range grid {
		total *= g
	}
	entries := make([]btree.ChunkEntry, total)
	for i := range entries {
		entries[i] = btree.ChunkEntry{
			Offset:  chunkOffset(uint64(i), grid, c.chunkDims),
			Size:    uint32(c.chunkBytes),
			Address: c.spec.Layout.ChunkIndexAddr + uint64(i)*c.chunkBytes,
		}
	}
	return entries
}

func (c *Chunked) readChunk(e btree.ChunkEntry) ([]byte, error) {
	size := uint64(e.Size)
	if size == 0 {
		size = c.chunkBytes
	}
	raw, err := c.reader.At(int64(e.Address)).ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	data, err := c.pipeline.Decode(raw, e.FilterMask)
	if err != nil {
		if errors.Is(err, filter.ErrOversize) {
			return nil, fmt.Errorf("%w: chunk at %d: %w", ErrCorrupt, e.Address, err)
		}
		return nil, err
	}
	if uint64(len(data)) < c.chunkBytes {
		return nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupt, len(data), c.chunkBytes)
	}
	return data, nil
}

// place copies the part of a chunk that lies inside the dataset into out.
func (c *Chunked) place(out, chunk []byte, offset []uint64) error {
	if len(offset) != len(c.dims) {
		return fmt.Errorf("%w: chunk offset rank %d", ErrCorrupt, len(offset))
	}
	for d, o := range offset {
		if o%c.chunkDims[d] != 0 {
			return fmt.Errorf("%w: offset %v is not chunk aligned", ErrCorrupt, offset)
		}
		if o >= c.dims[d] {
			// Chunk lies wholly outside the current extent.
			return nil
		}
	}
	es := uint64(c.elementSize())
	copyRegion(out, chunk, c.dims, c.chunkDims, offset, es, 0, 0, 0)
	return nil
}

// copyRegion walks dimension d of the chunk, copying whole rows of the
// last dimension at once.
func copyRegion(dst, src []byte, dims, chunkDims, offset []uint64, es uint64, d int, dstBase, srcBase uint64) {
	n := min(chunkDims[d], dims[d]-offset[d])
	dstStride, srcStride := es, es
	for i := d + 1; i < len(dims); i++ {
		dstStride *= dims[i]
		srcStride *= chunkDims[i]
	}
	dstBase += offset[d] * dstStride
	if d == len(dims)-1 {
		copy(dst[dstBase:dstBase+n*es], src[srcBase:srcBase+n*es])
		return
	}
	for i := uint64(0); i < n; i++ {
		copyRegion(dst, src, dims, chunkDims, offset, es, d+1, dstBase+i*dstStride, srcBase+i*srcStride)
	}
}

// Chunk is one chunk's worth of raw, unfiltered data.
type Chunk struct {
	Offset []uint64
	Data   []byte
}

// Split cuts a row-major buffer into chunks in row-major chunk order.
// Edge chunks are padded with zeros to the full chunk shape.
func Split(data []byte, dims, chunkDims []uint64, elementSize int) []Chunk {
	grid := chunkGrid(dims, chunkDims)
	total := uint64(1)
	chunkBytes := uint64(elementSize)
	for i := range grid {
		total *= grid[i]
		chunkBytes *= chunkDims[i]
	}
	chunks := make([]Chunk, total)
	for n := range chunks {
		off := chunkOffset(uint64(n), grid, chunkDims)
		buf := make([]byte, chunkBytes)
		extractRegion(buf, data, dims, chunkDims, off, uint64(elementSize), 0, 0, 0)
		chunks[n] = Chunk{Offset: off, Data: buf}
	}
	return chunks
}

// extractRegion is the inverse of copyRegion.
func extractRegion(dst, src []byte, dims, chunkDims, offset []uint64, es uint64, d int, dstBase, srcBase uint64) {
	n := min(chunkDims[d], dims[d]-offset[d])
	srcStride, dstStride := es, es
	for i := d + 1; i < len(dims); i++ {
		srcStride *= dims[i]
		dstStride *= chunkDims[i]
	}
	srcBase += offset[d] * srcStride
	if d == len(dims)-1 {
		copy(dst[dstBase:dstBase+n*es], src[srcBase:srcBase+n*es])
		return
	}
	for i := uint64(0); i < n; i++ {
		extractRegion(dst, src, dims, chunkDims, offset, es, d+1, dstBase+i*dstStride, srcBase+i*srcStride)
	}
}
