package heap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

var ErrInvalidHeap = errors.New("invalid local heap")

var localHeapSignature = []byte{'H', 'E', 'A', 'P'}

// LocalHeap is a decoded local heap with its data segment in memory.
type LocalHeap struct {
	DataSize    uint64
	FreeOffset  uint64
	DataAddress uint64
	data        []byte
}

// ReadLocalHeap reads the heap header at address and its data segment.
func ReadLocalHeap(r *binary.Reader, address uint64) (*LocalHeap, error) {
	hr := r.At(int64(address))
	hdr, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("local heap at %d: %w", address, err)
	}
	if !bytes.Equal(hdr[:4], localHeapSignature) {
		return nil, fmt.Errorf("%w: bad signature %q at %d", ErrInvalidHeap, hdr[:4], address)
	}
	if hdr[4] != 0 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidHeap, hdr[4])
	}

	h := &LocalHeap{}
	if h.DataSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.FreeOffset, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.data, err = r.At(int64(h.DataAddress)).ReadBytes(int(h.DataSize)); err != nil {
		return nil, fmt.Errorf("local heap data at %d: %w", h.DataAddress, err)
	}
	return h, nil
}

// String returns the NUL-terminated string at offset.
func (h *LocalHeap) String(offset uint64) (string, error) {
	if offset >= uint64(len(h.data)) {
		return "", fmt.Errorf("%w: offset %d outside %d-byte segment", ErrInvalidHeap, offset, len(h.data))
	}
	s := h.data[offset:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s), nil
}

// Builder lays out a local heap for the fixture writer. Offset 0 always
// holds the empty string, and each name is padded to a multiple of eight.
type Builder struct {
	data    []byte
	offsets map[string]uint64
}

// NewBuilder returns a builder holding only the empty string.
func NewBuilder() *Builder {
	return &Builder{data: make([]byte, 8), offsets: map[string]uint64{"": 0}}
}

// Add stores name and returns its offset. Adding a name twice returns the
// same offset.
func (b *Builder) Add(name string) uint64 {
	if off, ok := b.offsets[name]; ok {
		return off
	}
	off := uint64(len(b.data))
	b.data = append(b.data, name...)
	b.data = append(b.data, 0)
	for len(b.data)%8 != 0 {
		b.data = append(b.data, 0)
	}
	b.offsets[name] = off
	return off
}

// DataSize returns the size of the data segment.
func (b *Builder) DataSize() int { return len(b.data) }

// HeaderSize returns the encoded header size for cfg.
func HeaderSize(cfg binary.Config) int {
	return 8 + 2*cfg.LengthSize + cfg.OffsetSize
}

// Write encodes the header at w's position, pointing at a data segment
// stored at dataAddr, and writes the data segment there.
func (b *Builder) Write(w *binary.Writer, dataAddr uint64) error {
	if err := w.WriteBytes(localHeapSignature); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte{0, 0, 0, 0}); err != nil {
		return err
	}
	if err := w.WriteLength(uint64(len(b.data))); err != nil {
		return err
	}
	// No free space.
	if err := w.WriteLength(binary.Undefined(w.Config().LengthSize)); err != nil {
		return err
	}
	if err := w.WriteOffset(dataAddr); err != nil {
		return err
	}
	return w.At(int64(dataAddr)).WriteBytes(b.data)
}
