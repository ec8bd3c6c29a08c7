package object

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/message"
)

/*
Version 1 prefix (16 bytes, padded):
0   version (1)
1   reserved
2   number of messages
4   reference count
8   size of the first message block
12  reserved padding to 16

Each message:
0   type (2)
2   size of data (2), a multiple of 8
4   flags
5   reserved (3)
8   data
*/

const v1PrefixSize = 16

func (p *parser) readV1(r *binary.Reader) error {
	hdr, err := r.ReadBytes(12)
	if err != nil {
		return err
	}
	if hdr[0] != 1 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr[0])
	}
	size := uint64(hdr[8]) | uint64(hdr[9])<<8 | uint64(hdr[10])<<16 | uint64(hdr[11])<<24

	start := int64(p.hdr.Address) + v1PrefixSize
	if err := p.readV1Block(r.At(start), start+int64(size)); err != nil {
		return err
	}
	for c := p.next(); c != nil; c = p.next() {
		if err := p.readV1Block(r.At(int64(c.Offset)), int64(c.Offset+c.Length)); err != nil {
			return fmt.Errorf("continuation at %d: %w", c.Offset, err)
		}
	}
	return nil
}

func (p *parser) readV1Block(r *binary.Reader, end int64) error {
	for r.Pos()+8 <= end {
		typ, err := r.ReadUint16()
		if err != nil {
			return err
		}
		size, err := r.ReadUint16()
		if err != nil {
			return err
		}
		flags, err := r.ReadUint8()
		if err != nil {
			return err
		}
		r.Skip(3)
		if r.Pos()+int64(size) > end {
			return fmt.Errorf("%w: message of %d bytes overruns block", ErrInvalidHeader, size)
		}
		data, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}
		r.Align(8)
		if err := p.add(message.Type(typ), flags, data); err != nil {
			return err
		}
	}
	return nil
}
