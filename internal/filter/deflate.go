package filter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/robert-malhotra/h5csv/internal/message"
)

// Deflate is the zlib filter. Its single client value is the level used
// when encoding.
type Deflate struct {
	level int
	limit uint64 // largest decoded size, 0 for none
}

func NewDeflate(clientData []uint32) *Deflate {
	level := zlib.DefaultCompression
	if len(clientData) > 0 {
		level = int(clientData[0])
	}
	return &Deflate{level: level}
}

func (f *Deflate) ID() uint16 { return message.FilterDeflate }

func (f *Deflate) Decode(input []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("zlib header: %w", err)
	}
	defer zr.Close()
	var src io.Reader = zr
	if f.limit > 0 {
		src = io.LimitReader(zr, int64(f.limit)+1)
	}
	out, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("zlib stream: %w", err)
	}
	if f.limit > 0 && uint64(len(out)) > f.limit {
		return nil, fmt.Errorf("%w: inflates past %d bytes", ErrOversize, f.limit)
	}
	return out, nil
}

func (f *Deflate) setLimit(n uint64) { f.limit = n }

func (f *Deflate) Encode(input []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, f.level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(input); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
