package dtype

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/h5csv/internal/message"
)

// Encode packs values into raw elements of type dt. Integer types truncate
// toward zero and wrap like a Go conversion.
func Encode(dt *message.Datatype, values []float64) ([]byte, error) {
	if err := Check(dt); err != nil {
		return nil, err
	}
	size := int(dt.Size)
	out := make([]byte, len(values)*size)
	order := ByteOrder(dt)

	for i, v := range values {
		b := out[i*size:]
		switch {
		case dt.Class == message.ClassFloatPoint && size == 4:
			order.PutUint32(b, math.Float32bits(float32(v)))
		case dt.Class == message.ClassFloatPoint:
			order.PutUint64(b, math.Float64bits(v))
		case size == 1:
			b[0] = byte(intBits(v, dt.Signed))
		case size == 2:
			order.PutUint16(b, uint16(intBits(v, dt.Signed)))
		case size == 4:
			order.PutUint32(b, uint32(intBits(v, dt.Signed)))
		case size == 8:
			order.PutUint64(b, intBits(v, dt.Signed))
		default:
			return nil, fmt.Errorf("%w: %d-byte integer", ErrUnsupported, size)
		}
	}
	return out, nil
}

func intBits(v float64, signed bool) uint64 {
	if signed || v < 0 {
		return uint64(int64(v))
	}
	return uint64(v)
}
