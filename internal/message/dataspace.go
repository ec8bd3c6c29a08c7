package message

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// DataspaceType distinguishes scalar, simple and null dataspaces.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace describes the shape of a dataset.
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when equal to Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dimensions) }

// ErrOverflow reports a dataspace whose element count does not fit in 64
// bits.
var ErrOverflow = errors.New("dataspace element count overflows")

// NumElements returns the product of the dimensions.
func (m *Dataspace) NumElements() (uint64, error) {
	switch m.SpaceType {
	case DataspaceNull:
		return 0, nil
	case DataspaceScalar:
		return 1, nil
	}
	for _, d := range m.Dimensions {
		if d == 0 {
			return 0, nil
		}
	}
	n := uint64(1)
	for _, d := range m.Dimensions {
		hi, lo := bits.Mul64(n, d)
		if hi != 0 {
			return 0, fmt.Errorf("%w: dims %v", ErrOverflow, m.Dimensions)
		}
		n = lo
	}
	return n, nil
}

/*
Version 1:                       Version 2:
0  version                       0  version
1  rank                          1  rank
2  flags (bit 0: max dims)       2  flags
3  reserved                      3  type (scalar, simple, null)
4  reserved (4 bytes)            4  dims...
8  dims... [max dims...]            [max dims...]
*/

func parseDataspace(r *binary.Reader) (*Dataspace, error) {
	hdr, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	ds := &Dataspace{Version: hdr[0]}
	rank := int(hdr[1])
	flags := hdr[2]

	switch ds.Version {
	case 1:
		r.Skip(4)
		ds.SpaceType = DataspaceSimple
		if rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
	case 2:
		ds.SpaceType = DataspaceType(hdr[3])
		if ds.SpaceType > DataspaceNull {
			return nil, fmt.Errorf("dataspace type %d", ds.SpaceType)
		}
	default:
		return nil, fmt.Errorf("dataspace version %d", ds.Version)
	}
	if ds.SpaceType != DataspaceSimple {
		return ds, nil
	}

	ds.Dimensions = make([]uint64, rank)
	for i := range ds.Dimensions {
		if ds.Dimensions[i], err = r.ReadLength(); err != nil {
			return nil, err
		}
	}
	if flags&0x01 != 0 {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			if ds.MaxDims[i], err = r.ReadLength(); err != nil {
				return nil, err
			}
		}
	}
	return ds, nil
}

// NewDataspace returns a simple dataspace. A nil dims slice yields a
// scalar dataspace.
func NewDataspace(dims []uint64) *Dataspace {
	if len(dims) == 0 {
		return &Dataspace{Version: 1, SpaceType: DataspaceScalar}
	}
	return &Dataspace{Version: 1, SpaceType: DataspaceSimple, Dimensions: dims}
}

// Serialize implements Serializable. Version 1 and version 2 layouts are
// both supported; Version selects which.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	flags := uint8(0)
	if m.MaxDims != nil {
		flags = 0x01
	}
	hdr := []byte{m.Version, uint8(len(m.Dimensions)), flags, 0}
	if m.Version >= 2 {
		hdr[0] = 2
		hdr[3] = uint8(m.SpaceType)
	}
	if err := w.WriteBytes(hdr); err != nil {
		return err
	}
	if m.Version < 2 {
		if err := w.WriteZeros(4); err != nil {
			return err
		}
	}
	for _, d := range m.Dimensions {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}
