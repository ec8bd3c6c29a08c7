package filter

import (
	"github.com/robert-malhotra/h5csv/internal/message"
)

// Shuffle regroups bytes so that byte k of every element is stored
// together. Its client value is the element size.
type Shuffle struct {
	elemSize int
}

func NewShuffle(clientData []uint32) *Shuffle {
	size := 1
	if len(clientData) > 0 && clientData[0] > 0 {
		size = int(clientData[0])
	}
	return &Shuffle{elemSize: size}
}

func (f *Shuffle) ID() uint16 { return message.FilterShuffle }

func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	return f.transpose(input, false), nil
}

func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	return f.transpose(input, true), nil
}

// transpose moves bytes between element-major and byte-major order. Bytes
// past the last whole element are copied unchanged.
func (f *Shuffle) transpose(input []byte, forward bool) []byte {
	n := len(input) / f.elemSize
	if f.elemSize <= 1 || n <= 1 {
		return input
	}
	out := make([]byte, len(input))
	for i := 0; i < n; i++ {
		for j := 0; j < f.elemSize; j++ {
			elem, plane := i*f.elemSize+j, j*n+i
			if forward {
				out[plane] = input[elem]
			} else {
				out[elem] = input[plane]
			}
		}
	}
	copy(out[n*f.elemSize:], input[n*f.elemSize:])
	return out
}
