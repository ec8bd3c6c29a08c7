package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/message"
)

var (
	ErrUnsupported = errors.New("unsupported datatype")
	ErrInexact     = errors.New("integer value not exactly representable as float64")
)

// maxExact is the largest magnitude below which every integer is an exact
// float64.
const maxExact = 1 << 53

// Check reports whether dt can be converted to float64.
func Check(dt *message.Datatype) error {
	if dt == nil {
		return fmt.Errorf("%w: nil datatype", ErrUnsupported)
	}
	if dt.ByteOrder == message.OrderVAX {
		return fmt.Errorf("%w: VAX byte order", ErrUnsupported)
	}
	switch dt.Class {
	case message.ClassFixedPoint:
		switch dt.Size {
		case 1, 2, 4, 8:
		default:
			return fmt.Errorf("%w: %d-byte integer", ErrUnsupported, dt.Size)
		}
		if dt.BitOffset != 0 || (dt.BitPrecision != 0 && int(dt.BitPrecision) != 8*int(dt.Size)) {
			return fmt.Errorf("%w: integer with %d-bit precision at offset %d", ErrUnsupported, dt.BitPrecision, dt.BitOffset)
		}
		return nil
	case message.ClassFloatPoint:
		if !dt.IsIEEE() {
			return fmt.Errorf("%w: non-IEEE %d-byte float", ErrUnsupported, dt.Size)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, dt.Class)
}

// ByteOrder returns the encoding/binary order of dt.
func ByteOrder(dt *message.Datatype) binary.ByteOrder {
	if dt.ByteOrder == message.OrderBE {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Bits returns the width of one element in bits.
func Bits(dt *message.Datatype) int { return 8 * int(dt.Size) }
