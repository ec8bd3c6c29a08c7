package message

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// DatatypeClass is the HDF5 datatype class.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

var classNames = [...]string{
	"integer", "float", "time", "string", "bitfield", "opaque",
	"compound", "reference", "enum", "vlen", "array",
}

func (c DatatypeClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder is the element byte order of a datatype.
type ByteOrder uint8

const (
	OrderLE  ByteOrder = 0
	OrderBE  ByteOrder = 1
	OrderVAX ByteOrder = 2
)

// Datatype describes the element type of a dataset. Only atomic numeric
// classes are decoded in full; other classes keep their class, size and
// raw properties.
type Datatype struct {
	Version   uint8
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32
	ByteOrder ByteOrder

	// Fixed-point and floating-point fields.
	Signed       bool
	BitOffset    uint16
	BitPrecision uint16

	// Floating-point fields.
	SignLocation     uint8
	ExponentLocation uint8
	ExponentSize     uint8
	MantissaLocation uint8
	MantissaSize     uint8
	ExponentBias     uint32

	Properties []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsNumeric reports whether the type is an integer or a float.
func (m *Datatype) IsNumeric() bool {
	return m.Class == ClassFixedPoint || m.Class == ClassFloatPoint
}

// IsIEEE reports whether a float type has the standard binary32 or
// binary64 field layout.
func (m *Datatype) IsIEEE() bool {
	if m.Class != ClassFloatPoint || m.BitOffset != 0 {
		return false
	}
	switch m.Size {
	case 4:
		return m.ExponentSize == 8 && m.MantissaSize == 23 && m.ExponentLocation == 23 &&
			m.MantissaLocation == 0 && m.SignLocation == 31 && m.ExponentBias == 127
	case 8:
		return m.ExponentSize == 11 && m.MantissaSize == 52 && m.ExponentLocation == 52 &&
			m.MantissaLocation == 0 && m.SignLocation == 63 && m.ExponentBias == 1023
	}
	return false
}

// String renders the type the way numpy names dtypes, e.g. "<f4" or ">i8".
func (m *Datatype) String() string {
	order := "<"
	if m.ByteOrder == OrderBE {
		order = ">"
	}
	switch m.Class {
	case ClassFixedPoint:
		if m.Size == 1 {
			order = "|"
		}
		kind := "u"
		if m.Signed {
			kind = "i"
		}
		return fmt.Sprintf("%s%s%d", order, kind, m.Size)
	case ClassFloatPoint:
		return fmt.Sprintf("%sf%d", order, m.Size)
	}
	return fmt.Sprintf("%s%d", m.Class, m.Size)
}

func parseDatatype(r *binary.Reader) (*Datatype, error) {
	hdr, err := r.ReadBytes(8)
	if err != nil {
		return nil, err
	}
	dt := &Datatype{
		Version:   hdr[0] >> 4,
		Class:     DatatypeClass(hdr[0] & 0x0F),
		ClassBits: uint32(hdr[1]) | uint32(hdr[2])<<8 | uint32(hdr[3])<<16,
		Size:      uint32(hdr[4]) | uint32(hdr[5])<<8 | uint32(hdr[6])<<16 | uint32(hdr[7])<<24,
	}
	if dt.Version < 1 || dt.Version > 5 {
		return nil, fmt.Errorf("datatype version %d", dt.Version)
	}

	switch dt.Class {
	case ClassFixedPoint:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		dt.Signed = dt.ClassBits&0x08 != 0
		props, err := r.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		dt.Properties = props
		dt.BitOffset = uint16(props[0]) | uint16(props[1])<<8
		dt.BitPrecision = uint16(props[2]) | uint16(props[3])<<8

	case ClassFloatPoint:
		switch dt.ClassBits & 0x41 {
		case 0x00:
			dt.ByteOrder = OrderLE
		case 0x01:
			dt.ByteOrder = OrderBE
		default:
			dt.ByteOrder = OrderVAX
		}
		dt.Signed = true
		dt.SignLocation = uint8(dt.ClassBits >> 8)
		props, err := r.ReadBytes(12)
		if err != nil {
			return nil, err
		}
		dt.Properties = props
		dt.BitOffset = uint16(props[0]) | uint16(props[1])<<8
		dt.BitPrecision = uint16(props[2]) | uint16(props[3])<<8
		dt.ExponentLocation = props[4]
		dt.ExponentSize = props[5]
		dt.MantissaLocation = props[6]
		dt.MantissaSize = props[7]
		dt.ExponentBias = uint32(props[8]) | uint32(props[9])<<8 | uint32(props[10])<<16 | uint32(props[11])<<24
	}
	return dt, nil
}

// NewIntDatatype returns a little-endian fixed-point type of size bytes.
func NewIntDatatype(size uint32, signed bool) *Datatype {
	return &Datatype{
		Version:      1,
		Class:        ClassFixedPoint,
		Size:         size,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
}

// NewFloatDatatype returns a little-endian IEEE float of 4 or 8 bytes.
func NewFloatDatatype(size uint32) *Datatype {
	dt := &Datatype{
		Version:      1,
		Class:        ClassFloatPoint,
		Size:         size,
		Signed:       true,
		BitPrecision: uint16(size * 8),
		SignLocation: uint8(size*8 - 1),
	}
	if size == 4 {
		dt.ExponentLocation, dt.ExponentSize = 23, 8
		dt.MantissaSize, dt.ExponentBias = 23, 127
	} else {
		dt.ExponentLocation, dt.ExponentSize = 52, 11
		dt.MantissaSize, dt.ExponentBias = 52, 1023
	}
	return dt
}

// NewStringDatatype returns a fixed-length, NUL-terminated ASCII string type.
func NewStringDatatype(size uint32) *Datatype {
	return &Datatype{Version: 1, Class: ClassString, Size: size}
}

// BigEndian returns a copy of m with big-endian byte order.
func (m *Datatype) BigEndian() *Datatype {
	c := *m
	c.ByteOrder = OrderBE
	return &c
}

// Serialize implements Serializable for integer, float and string types.
func (m *Datatype) Serialize(w *binary.Writer) error {
	bits := uint32(0)
	switch m.Class {
	case ClassFixedPoint:
		if m.ByteOrder == OrderBE {
			bits |= 0x01
		}
		if m.Signed {
			bits |= 0x08
		}
	case ClassFloatPoint:
		if m.ByteOrder == OrderBE {
			bits |= 0x01
		}
		// Mantissa normalization: implied leading one.
		bits |= 0x20
		bits |= uint32(m.SignLocation) << 8
	case ClassString:
	default:
		return fmt.Errorf("cannot encode %s datatype", m.Class)
	}
	version := m.Version
	if version == 0 {
		version = 1
	}
	if err := w.WriteBytes([]byte{version<<4 | uint8(m.Class), byte(bits), byte(bits >> 8), byte(bits >> 16)}); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}
	switch m.Class {
	case ClassFixedPoint:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		return w.WriteUint16(m.BitPrecision)
	case ClassFloatPoint:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		if err := w.WriteUint16(m.BitPrecision); err != nil {
			return err
		}
		if err := w.WriteBytes([]byte{m.ExponentLocation, m.ExponentSize, m.MantissaLocation, m.MantissaSize}); err != nil {
			return err
		}
		return w.WriteUint32(m.ExponentBias)
	}
	return nil
}
