package dtype

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/h5csv/internal/message"
)

// ToFloat64 widens n elements of raw data to float64.
func ToFloat64(dt *message.Datatype, data []byte, n uint64) ([]float64, error) {
	if err := Check(dt); err != nil {
		return nil, err
	}
	size := uint64(dt.Size)
	if uint64(len(data)) < n*size {
		return nil, fmt.Errorf("%d bytes hold fewer than %d %s elements", len(data), n, dt)
	}
	out := make([]float64, n)
	order := ByteOrder(dt)

	if dt.Class == message.ClassFloatPoint {
		for i := range out {
			b := data[uint64(i)*size:]
			if size == 4 {
				out[i] = float64(math.Float32frombits(order.Uint32(b)))
			} else {
				out[i] = math.Float64frombits(order.Uint64(b))
			}
		}
		return out, nil
	}

	for i := range out {
		b := data[uint64(i)*size:]
		switch {
		case size == 1 && dt.Signed:
			out[i] = float64(int8(b[0]))
		case size == 1:
			out[i] = float64(b[0])
		case size == 2 && dt.Signed:
			out[i] = float64(int16(order.Uint16(b)))
		case size == 2:
			out[i] = float64(order.Uint16(b))
		case size == 4 && dt.Signed:
			out[i] = float64(int32(order.Uint32(b)))
		case size == 4:
			out[i] = float64(order.Uint32(b))
		case dt.Signed:
			v := int64(order.Uint64(b))
			if v > maxExact || v < -maxExact {
				return nil, fmt.Errorf("%w: element %d is %d", ErrInexact, i, v)
			}
			out[i] = float64(v)
		default:
			v := order.Uint64(b)
			if v > maxExact {
				return nil, fmt.Errorf("%w: element %d is %d", ErrInexact, i, v)
			}
			out[i] = float64(v)
		}
	}
	return out, nil
}
