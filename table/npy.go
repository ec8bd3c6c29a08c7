package table

import (
	"context"
	"fmt"
	"io"

	"github.com/kshedden/gonpy"
)

// nopCloser lets gonpy close its writer without closing ours.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// WriteNPY writes the table as a NumPy .npy array of shape (rows, cols)
// whose dtype matches the source elements.
func (t *Table) WriteNPY(ctx context.Context, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nw, err := gonpy.NewWriter(nopCloser{w})
	if err != nil {
		return err
	}
	nw.Shape = []int{t.rows, t.cols}
	values := t.rowMajor()

	switch {
	case t.kind == Float && t.bits == 32:
		return nw.WriteFloat32(convert[float32](values))
	case t.kind == Float:
		return nw.WriteFloat64(values)
	case t.kind == Int && t.bits == 8:
		return nw.WriteInt8(convert[int8](values))
	case t.kind == Int && t.bits == 16:
		return nw.WriteInt16(convert[int16](values))
	case t.kind == Int && t.bits == 32:
		return nw.WriteInt32(convert[int32](values))
	case t.kind == Int && t.bits == 64:
		return nw.WriteInt64(convert[int64](values))
	case t.kind == Uint && t.bits == 8:
		return nw.WriteUint8(convert[uint8](values))
	case t.kind == Uint && t.bits == 16:
		return nw.WriteUint16(convert[uint16](values))
	case t.kind == Uint && t.bits == 32:
		return nw.WriteUint32(convert[uint32](values))
	case t.kind == Uint && t.bits == 64:
		return nw.WriteUint64(convert[uint64](values))
	}
	return fmt.Errorf("no npy dtype for %d-bit %s", t.bits, t.kind)
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32
}

func convert[T number](values []float64) []T {
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = T(v)
	}
	return out
}
