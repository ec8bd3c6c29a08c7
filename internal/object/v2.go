package object

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/message"
)

/*
Version 2 prefix:
0   "OHDR"
4   version (2)
5   flags
      bits 0-1  width of the chunk 0 size field (1 << n bytes)
      bit 2     creation order tracked on messages
      bit 4     attribute phase change values stored
      bit 5     timestamps stored
    [16 bytes of timestamps]
    [4 bytes of phase change values]
    chunk 0 size
    messages
    checksum (4)

Each message: type (1), size (2), flags (1), [creation order (2)], data.
Continuation blocks are "OCHK", messages, checksum.
*/

const (
	v2FlagSizeMask      = 0x03
	v2FlagCreationOrder = 0x04
	v2FlagPhaseChange   = 0x10
	v2FlagTimes         = 0x20
)

func (p *parser) readV2(r *binary.Reader) error {
	start := r.Pos()
	r.Skip(4)
	hdr, err := r.ReadBytes(2)
	if err != nil {
		return err
	}
	if hdr[0] != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr[0])
	}
	flags := hdr[1]
	if flags&v2FlagTimes != 0 {
		r.Skip(16)
	}
	if flags&v2FlagPhaseChange != 0 {
		r.Skip(4)
	}
	size, err := r.ReadUintN(1 << (flags & v2FlagSizeMask))
	if err != nil {
		return err
	}

	msgStart := r.Pos()
	end := msgStart + int64(size)
	if err := verifyChecksum(r.At(start), int(end-start)); err != nil {
		return err
	}
	ordered := flags&v2FlagCreationOrder != 0
	if err := p.readV2Block(r.At(msgStart), end, ordered); err != nil {
		return err
	}

	for c := p.next(); c != nil; c = p.next() {
		cr := r.At(int64(c.Offset))
		sig, err := cr.ReadBytes(4)
		if err != nil {
			return err
		}
		if !bytes.Equal(sig, SignatureContinuation) {
			return fmt.Errorf("%w: bad continuation signature at %d", ErrInvalidHeader, c.Offset)
		}
		blockEnd := int64(c.Offset+c.Length) - 4
		if err := verifyChecksum(r.At(int64(c.Offset)), int(c.Length)-4); err != nil {
			return err
		}
		if err := p.readV2Block(cr, blockEnd, ordered); err != nil {
			return fmt.Errorf("continuation at %d: %w", c.Offset, err)
		}
	}
	return nil
}

// verifyChecksum checks the lookup3 checksum stored right after n bytes.
func verifyChecksum(r *binary.Reader, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative block size", ErrInvalidHeader)
	}
	body, err := r.ReadBytes(n)
	if err != nil {
		return err
	}
	stored, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if binary.Lookup3Checksum(body) != stored {
		return ErrChecksumMismatch
	}
	return nil
}

func (p *parser) readV2Block(r *binary.Reader, end int64, ordered bool) error {
	prefix := int64(4)
	if ordered {
		prefix = 6
	}
	// Anything shorter than a message prefix at the end is a gap.
	for r.Pos()+prefix <= end {
		typ, err := r.ReadUint8()
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
		if ordered {
			r.Skip(2)
		}
		if r.Pos()+int64(size) > end {
			return fmt.Errorf("%w: message of %d bytes overruns block", ErrInvalidHeader, size)
		}
		data, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}
		if err := p.add(message.Type(typ), flags, data); err != nil {
			return err
		}
	}
	return nil
}
