package layout

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/btree"
)

const (
	fixedArrayHeaderSig = "FAHD"
	fixedArrayBlockSig  = "FADB"
	fixedArrayPageBits  = 10

	clientChunks         = 0
	clientFilteredChunks = 1
)

// readFixedArray decodes a fixed array chunk index. Entries are stored in
// row-major chunk order; unallocated chunks carry the undefined address.
func readFixedArray(r *binary.Reader, addr uint64, grid, chunkDims []uint64) ([]btree.ChunkEntry, error) {
	hdr, err := readChecksummed(r, addr, fixedArrayHeaderSize(r.Config()), fixedArrayHeaderSig)
	if err != nil {
		return nil, err
	}
	hr := binary.NewReader(bytes.NewReader(hdr), r.Config())
	hr.Skip(4)
	fields, err := hr.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	version, client, entrySize, pageBits := fields[0], fields[1], int(fields[2]), fields[3]
	if version != 0 {
		return nil, fmt.Errorf("%w: fixed array version %d", ErrUnsupported, version)
	}
	count, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	blockAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	if count > 1<<pageBits {
		return nil, fmt.Errorf("%w: paged fixed array with %d entries", ErrUnsupported, count)
	}
	var want uint64 = 1
	for _, g := range grid {
		want *= g
	}
	if count != want {
		return nil, fmt.Errorf("%w: fixed array holds %d entries for %d chunks", ErrCorrupt, count, want)
	}
	offSize := r.OffsetSize()
	sizeBytes := 0
	switch client {
	case clientChunks:
		if entrySize != offSize {
			return nil, fmt.Errorf("%w: fixed array entry size %d", ErrCorrupt, entrySize)
		}
	case clientFilteredChunks:
		sizeBytes = entrySize - offSize - 4
		if sizeBytes < 1 || sizeBytes > 8 {
			return nil, fmt.Errorf("%w: fixed array entry size %d", ErrCorrupt, entrySize)
		}
	default:
		return nil, fmt.Errorf("%w: fixed array client %d", ErrUnsupported, client)
	}

	blockSize := fixedArrayBlockSize(r.Config(), int(count), entrySize)
	block, err := readChecksummed(r, blockAddr, blockSize, fixedArrayBlockSig)
	if err != nil {
		return nil, err
	}
	br := binary.NewReader(bytes.NewReader(block), r.Config())
	br.Skip(6)
	owner, err := br.ReadOffset()
	if err != nil {
		return nil, err
	}
	if owner != addr {
		return nil, fmt.Errorf("%w: fixed array data block belongs to %d, not %d", ErrCorrupt, owner, addr)
	}

	entries := make([]btree.ChunkEntry, count)
	for i := range entries {
		e := btree.ChunkEntry{Offset: chunkOffset(uint64(i), grid, chunkDims)}
		if e.Address, err = br.ReadOffset(); err != nil {
			return nil, err
		}
		if sizeBytes > 0 {
			size, err := br.ReadUintN(sizeBytes)
			if err != nil {
				return nil, err
			}
			e.Size = uint32(size)
			if e.FilterMask, err = br.ReadUint32(); err != nil {
				return nil, err
			}
		}
		entries[i] = e
	}
	return entries, nil
}

// readChecksummed reads a signed structure whose last four bytes are a
// lookup3 checksum of everything before them.
func readChecksummed(r *binary.Reader, addr uint64, size int, sig string) ([]byte, error) {
	buf, err := r.At(int64(addr)).ReadBytes(size)
	if err != nil {
		return nil, fmt.Errorf("%s at %d: %w", sig, addr, err)
	}
	if string(buf[:4]) != sig {
		return nil, fmt.Errorf("%w: expected %s at %d, found %q", ErrCorrupt, sig, addr, buf[:4])
	}
	body := buf[:size-4]
	stored := binary.DecodeUint(buf[size-4:], 4, r.ByteOrder())
	if got := binary.Lookup3Checksum(body); uint64(got) != stored {
		return nil, fmt.Errorf("%w: %s checksum %08x, stored %08x", ErrCorrupt, sig, got, stored)
	}
	return buf, nil
}

func fixedArrayHeaderSize(cfg binary.Config) int {
	return 8 + cfg.LengthSize + cfg.OffsetSize + 4
}

func fixedArrayBlockSize(cfg binary.Config, n, entrySize int) int {
	return 6 + cfg.OffsetSize + n*entrySize + 4
}

// FixedArrayEntrySize is the encoded size of one index entry. Filtered
// entries also carry the stored chunk size and filter mask.
func FixedArrayEntrySize(cfg binary.Config, filtered bool, chunkBytes uint64) int {
	if !filtered {
		return cfg.OffsetSize
	}
	return cfg.OffsetSize + chunkSizeBytes(chunkBytes) + 4
}

// chunkSizeBytes matches libhdf5's width for a filtered chunk's size.
func chunkSizeBytes(chunkBytes uint64) int {
	n := 1 + (bits.Len64(chunkBytes)+8)/8
	return min(n, 8)
}

// FixedArraySize is the total encoded size of a fixed array index: the
// header followed directly by its data block.
func FixedArraySize(cfg binary.Config, n int, filtered bool, chunkBytes uint64) int {
	return fixedArrayHeaderSize(cfg) + fixedArrayBlockSize(cfg, n, FixedArrayEntrySize(cfg, filtered, chunkBytes))
}

// WriteFixedArray encodes a fixed array index at the writer's position with
// the data block placed immediately after the header. entries must be in
// row-major chunk order.
func WriteFixedArray(w *binary.Writer, entries []btree.ChunkEntry, filtered bool, chunkBytes uint64) error {
	cfg := w.Config()
	addr := uint64(w.Pos())
	entrySize := FixedArrayEntrySize(cfg, filtered, chunkBytes)
	client := byte(clientChunks)
	if filtered {
		client = clientFilteredChunks
	}

	var hdr binary.Buffer
	hw := binary.NewWriter(&hdr, cfg)
	if err := hw.WriteBytes([]byte(fixedArrayHeaderSig)); err != nil {
		return err
	}
	if err := hw.WriteBytes([]byte{0, client, byte(entrySize), fixedArrayPageBits}); err != nil {
		return err
	}
	if err := hw.WriteLength(uint64(len(entries))); err != nil {
		return err
	}
	if err := hw.WriteOffset(addr + uint64(fixedArrayHeaderSize(cfg))); err != nil {
		return err
	}
	if err := hw.WriteUint32(binary.Lookup3Checksum(hdr.Bytes())); err != nil {
		return err
	}

	var blk binary.Buffer
	bw := binary.NewWriter(&blk, cfg)
	if err := bw.WriteBytes(append([]byte(fixedArrayBlockSig), 0, client)); err != nil {
		return err
	}
	if err := bw.WriteOffset(addr); err != nil {
		return err
	}
	for _, e := range entries {
		if err := bw.WriteOffset(e.Address); err != nil {
			return err
		}
		if filtered {
			if err := bw.WriteUintN(uint64(e.Size), chunkSizeBytes(chunkBytes)); err != nil {
				return err
			}
			if err := bw.WriteUint32(e.FilterMask); err != nil {
				return err
			}
		}
	}
	if err := bw.WriteUint32(binary.Lookup3Checksum(blk.Bytes())); err != nil {
		return err
	}

	if err := w.WriteBytes(hdr.Bytes()); err != nil {
		return err
	}
	return w.WriteBytes(blk.Bytes())
}
