package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// ChunkEntry locates one stored chunk.
type ChunkEntry struct {
	// Offset is the chunk's position in dataset elements, one value per
	// dataset dimension.
	Offset     []uint64
	FilterMask uint32
	Size       uint32
	Address    uint64
}

// ReadChunkEntries returns every chunk indexed by the chunk B-tree at
// btreeAddr for a dataset of the given rank.
func ReadChunkEntries(r *binary.Reader, btreeAddr uint64, rank int) ([]ChunkEntry, error) {
	var entries []ChunkEntry
	err := readChunkNode(r, newWalker(), btreeAddr, 0, rank, &entries)
	return entries, err
}

func readChunkNode(r *binary.Reader, wk *walker, address uint64, depth, rank int, out *[]ChunkEntry) error {
	if err := wk.enter(address, depth); err != nil {
		return err
	}
	nr, hdr, err := readNodeHeader(r, address, nodeTypeChunk)
	if err != nil {
		return err
	}
	for i := 0; i < int(hdr.entries); i++ {
		key, err := readChunkKey(nr, rank)
		if err != nil {
			return fmt.Errorf("chunk B-tree at %d, key %d: %w", address, i, err)
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		if hdr.level > 0 {
			if err := readChunkNode(r, wk, child, depth+1, rank, out); err != nil {
				return err
			}
			continue
		}
		key.Address = child
		*out = append(*out, key)
	}
	return nil
}

func readChunkKey(r *binary.Reader, rank int) (ChunkEntry, error) {
	var e ChunkEntry
	var err error
	if e.Size, err = r.ReadUint32(); err != nil {
		return e, err
	}
	if e.FilterMask, err = r.ReadUint32(); err != nil {
		return e, err
	}
	e.Offset = make([]uint64, rank)
	for i := range e.Offset {
		if e.Offset[i], err = r.ReadUint64(); err != nil {
			return e, err
		}
	}
	// Trailing offset into the element, always zero.
	r.Skip(8)
	return e, nil
}

// ChunkTreeSize is the encoded size of a chunk B-tree leaf with n chunks.
func ChunkTreeSize(cfg binary.Config, rank, n int) int {
	key := 8 + 8*(rank+1)
	return 8 + 2*cfg.OffsetSize + (n+1)*key + n*cfg.OffsetSize
}

// WriteChunkTree encodes a single leaf node. entries must be sorted by
// offset; end is the offset used for the final key, normally the dataset
// dimensions rounded up to whole chunks.
func WriteChunkTree(w *binary.Writer, entries []ChunkEntry, end []uint64) error {
	if err := writeNodeHeader(w, nodeTypeChunk, len(entries)); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeChunkKey(w, e.Size, e.FilterMask, e.Offset); err != nil {
			return err
		}
		if err := w.WriteOffset(e.Address); err != nil {
			return err
		}
	}
	return writeChunkKey(w, 0, 0, end)
}

func writeChunkKey(w *binary.Writer, size, mask uint32, offset []uint64) error {
	if err := w.WriteUint32(size); err != nil {
		return err
	}
	if err := w.WriteUint32(mask); err != nil {
		return err
	}
	for _, o := range offset {
		if err := w.WriteUint64(o); err != nil {
			return err
		}
	}
	return w.WriteUint64(0)
}
