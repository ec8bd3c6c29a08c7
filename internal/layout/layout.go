package layout

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/filter"
	"github.com/robert-malhotra/h5csv/internal/message"
)

var (
	ErrUnsupported = errors.New("unsupported storage layout")
	ErrCorrupt     = errors.New("corrupt dataset storage")
)

// maxBufferSize caps a single in-memory read.
const maxBufferSize = 1 << 40

// Layout produces a dataset's elements as one row-major byte buffer.
type Layout interface {
	Class() message.LayoutClass
	Read() ([]byte, error)
}

// Spec gathers the header messages that determine how data is stored.
type Spec struct {
	Layout    *message.DataLayout
	Dataspace *message.Dataspace
	Datatype  *message.Datatype
	Filters   *message.FilterPipeline // may be nil
	Fill      *message.FillValue      // may be nil
}

// New returns a reader for the dataset described by spec.
func New(spec Spec, r *binary.Reader) (Layout, error) {
	if spec.Layout == nil || spec.Dataspace == nil || spec.Datatype == nil {
		return nil, fmt.Errorf("%w: missing layout, dataspace or datatype", ErrCorrupt)
	}
	n, err := spec.Dataspace.NumElements()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	hi, size := bits.Mul64(n, uint64(spec.Datatype.Size))
	if hi != 0 {
		return nil, fmt.Errorf("%w: %d elements of %d bytes overflow", ErrCorrupt, n, spec.Datatype.Size)
	}
	if size > maxBufferSize {
		return nil, fmt.Errorf("%w: %d bytes is too large to read into memory", ErrUnsupported, size)
	}
	base := storage{spec: spec, reader: r, size: size}

	switch spec.Layout.Class {
	case message.LayoutCompact:
		return &Compact{base}, nil
	case message.LayoutContiguous:
		return &Contiguous{base}, nil
	case message.LayoutChunked:
		pipeline, err := filter.NewPipeline(spec.Filters)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
		}
		return newChunked(base, pipeline)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, spec.Layout.Class)
}

// storage holds what every layout needs.
type storage struct {
	spec   Spec
	reader *binary.Reader
	size   uint64 // bytes in the full dataset
}

func (s *storage) elementSize() int { return int(s.spec.Datatype.Size) }

// filled returns n bytes holding the fill value repeated.
func (s *storage) filled(n uint64) []byte {
	out := make([]byte, n)
	fillPattern(out, s.fillValue())
	return out
}

func (s *storage) fillValue() []byte {
	if f := s.spec.Fill; f != nil && len(f.Value) == s.elementSize() {
		return f.Value
	}
	return nil
}

// fillPattern repeats pattern over buf. A nil pattern leaves zeros.
func fillPattern(buf, pattern []byte) {
	if len(pattern) == 0 {
		return
	}
	for i := 0; i+len(pattern) <= len(buf); i += len(pattern) {
		copy(buf[i:], pattern)
	}
}

// Compact storage lives inside the object header.
type Compact struct{ storage }

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

func (c *Compact) Read() ([]byte, error) {
	data := c.spec.Layout.CompactData
	if uint64(len(data)) < c.size {
		return nil, fmt.Errorf("%w: compact data holds %d bytes, need %d", ErrCorrupt, len(data), c.size)
	}
	out := make([]byte, c.size)
	copy(out, data)
	return out, nil
}

// Contiguous storage is one block of the file.
type Contiguous struct{ storage }

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

func (c *Contiguous) Read() ([]byte, error) {
	l := c.spec.Layout
	if c.reader.IsUndefinedOffset(l.Address) {
		// Never written.
		return c.filled(c.size), nil
	}
	if l.Size != 0 && l.Size < c.size {
		return nil, fmt.Errorf("%w: contiguous block holds %d bytes, need %d", ErrCorrupt, l.Size, c.size)
	}
	data, err := c.reader.At(int64(l.Address)).ReadBytes(int(c.size))
	if err != nil {
		return nil, fmt.Errorf("contiguous data at %d: %w", l.Address, err)
	}
	return data, nil
}
