package message

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// Registered filter identifiers.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// FilterInfo is one entry of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// IsOptional reports whether the filter may be skipped when it fails.
func (f *FilterInfo) IsOptional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline lists the filters applied to each chunk, in write order.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(r *binary.Reader) (*FilterPipeline, error) {
	hdr, err := r.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	m := &FilterPipeline{Version: hdr[0], Filters: make([]FilterInfo, hdr[1])}
	switch m.Version {
	case 1:
		r.Skip(6)
	case 2:
	default:
		return nil, fmt.Errorf("filter pipeline version %d", m.Version)
	}
	for i := range m.Filters {
		if err := parseFilterInfo(r, m.Version, &m.Filters[i]); err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return m, nil
}

func parseFilterInfo(r *binary.Reader, version uint8, f *FilterInfo) error {
	var err error
	if f.ID, err = r.ReadUint16(); err != nil {
		return err
	}
	var nameLen uint16
	if version == 1 || f.ID >= 256 {
		if nameLen, err = r.ReadUint16(); err != nil {
			return err
		}
	}
	if f.Flags, err = r.ReadUint16(); err != nil {
		return err
	}
	ncd, err := r.ReadUint16()
	if err != nil {
		return err
	}
	if nameLen > 0 {
		name, err := r.ReadBytes(int(nameLen))
		if err != nil {
			return err
		}
		for i, b := range name {
			if b == 0 {
				name = name[:i]
				break
			}
		}
		f.Name = string(name)
		// Version 1 names are padded to a multiple of eight.
		if version == 1 && nameLen%8 != 0 {
			r.Skip(int64(8 - nameLen%8))
		}
	}
	f.ClientData = make([]uint32, ncd)
	for j := range f.ClientData {
		if f.ClientData[j], err = r.ReadUint32(); err != nil {
			return err
		}
	}
	if version == 1 && ncd%2 != 0 {
		r.Skip(4)
	}
	return nil
}

// Serialize implements Serializable.
func (m *FilterPipeline) Serialize(w *binary.Writer) error {
	version := m.Version
	if version == 0 {
		version = 2
	}
	if err := w.WriteBytes([]byte{version, uint8(len(m.Filters))}); err != nil {
		return err
	}
	if version == 1 {
		if err := w.WriteZeros(6); err != nil {
			return err
		}
	}
	for _, f := range m.Filters {
		name := []byte(f.Name)
		if len(name) > 0 {
			name = append(name, 0)
		}
		if version == 1 {
			for len(name)%8 != 0 {
				name = append(name, 0)
			}
		}
		if err := w.WriteUint16(f.ID); err != nil {
			return err
		}
		if version == 1 || f.ID >= 256 {
			if err := w.WriteUint16(uint16(len(name))); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(f.Flags); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(f.ClientData))); err != nil {
			return err
		}
		if version == 1 || f.ID >= 256 {
			if err := w.WriteBytes(name); err != nil {
				return err
			}
		}
		for _, cd := range f.ClientData {
			if err := w.WriteUint32(cd); err != nil {
				return err
			}
		}
		if version == 1 && len(f.ClientData)%2 != 0 {
			if err := w.WriteZeros(4); err != nil {
				return err
			}
		}
	}
	return nil
}
