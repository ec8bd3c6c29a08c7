package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/message"
)

var (
	ErrUnsupported = errors.New("unsupported filter")
	ErrChecksum    = errors.New("chunk checksum mismatch")
	ErrOversize    = errors.New("decoded chunk exceeds its size")
)

// Filter is one reversible transformation of chunk bytes.
type Filter interface {
	ID() uint16
	Decode(input []byte) ([]byte, error)
	Encode(input []byte) ([]byte, error)
}

// Registry maps filter IDs to constructors taking the filter's client data.
var Registry = map[uint16]func([]uint32) Filter{
	message.FilterDeflate:    func(cd []uint32) Filter { return NewDeflate(cd) },
	message.FilterShuffle:    func(cd []uint32) Filter { return NewShuffle(cd) },
	message.FilterFletcher32: func(cd []uint32) Filter { return NewFletcher32(cd) },
}

var filterNames = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "nbit",
	message.FilterScaleOffset: "scaleoffset",
	32001:                     "blosc",
	32004:                     "lz4",
	32008:                     "bitshuffle",
	32015:                     "zstd",
}

// Name returns a readable name for a filter ID.
func Name(id uint16) string {
	if name, ok := filterNames[id]; ok {
		return name
	}
	return fmt.Sprintf("filter %d", id)
}

// New returns the filter for info. An unavailable optional filter yields
// nil and no error.
func New(info message.FilterInfo) (Filter, error) {
	ctor, ok := Registry[info.ID]
	if !ok {
		if info.IsOptional() {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s (id %d)", ErrUnsupported, Name(info.ID), info.ID)
	}
	return ctor(info.ClientData), nil
}
