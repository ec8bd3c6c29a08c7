package message

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// FillValue gives the element value of storage that was never written.
// A nil Value means the library default, which is all zero bytes.
type FillValue struct {
	Version        uint8
	SpaceAllocTime uint8
	FillWriteTime  uint8
	Undefined      bool
	Value          []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

func parseFillValue(r *binary.Reader) (*FillValue, error) {
	version, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	m := &FillValue{Version: version}
	hasValue := false

	switch version {
	case 1, 2:
		hdr, err := r.ReadBytes(3)
		if err != nil {
			return nil, err
		}
		m.SpaceAllocTime, m.FillWriteTime = hdr[0], hdr[1]
		defined := hdr[2] != 0
		hasValue = version == 1 || defined
	case 3:
		flags, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		m.SpaceAllocTime = flags & 0x03
		m.FillWriteTime = (flags >> 2) & 0x03
		m.Undefined = flags&0x10 != 0
		hasValue = flags&0x20 != 0
	default:
		return nil, fmt.Errorf("fill value version %d", version)
	}

	if hasValue {
		size, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if size > 0 {
			if m.Value, err = r.ReadBytes(int(size)); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// parseFillValueOld decodes the pre-1.6 fill value message, which is a bare
// size and value.
func parseFillValueOld(r *binary.Reader) (*FillValue, error) {
	size, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	m := &FillValue{}
	if size > 0 {
		if m.Value, err = r.ReadBytes(int(size)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewFillValue returns a version 2 message. A nil value writes the
// "default" fill.
func NewFillValue(value []byte) *FillValue {
	return &FillValue{Version: 2, SpaceAllocTime: 2, FillWriteTime: 2, Value: value}
}

// Serialize implements Serializable for versions 2 and 3.
func (m *FillValue) Serialize(w *binary.Writer) error {
	if m.Version == 3 {
		flags := m.SpaceAllocTime&0x03 | (m.FillWriteTime&0x03)<<2
		if m.Undefined {
			flags |= 0x10
		}
		if m.Value != nil {
			flags |= 0x20
		}
		if err := w.WriteBytes([]byte{3, flags}); err != nil {
			return err
		}
	} else {
		defined := uint8(0)
		if m.Value != nil {
			defined = 1
		}
		if err := w.WriteBytes([]byte{2, m.SpaceAllocTime, m.FillWriteTime, defined}); err != nil {
			return err
		}
	}
	if m.Value == nil {
		return nil
	}
	if err := w.WriteUint32(uint32(len(m.Value))); err != nil {
		return err
	}
	return w.WriteBytes(m.Value)
}
