package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/h5csv/internal/binary"
)

// Signature is the 8-byte magic that opens every HDF5 superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// maxSearchOffset bounds the user-block search.
const maxSearchOffset = 1 << 30

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

// Superblock holds the fields a reader needs.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	// BaseAddress is the absolute position that file addresses are
	// relative to. It is non-zero when the file has a user block.
	BaseAddress uint64
	EOFAddress  uint64

	// RootGroupAddress is the object header address of the root group.
	RootGroupAddress uint64

	// RootBTreeAddress and RootHeapAddress come from the root symbol table
	// entry's scratch pad (v0/v1). They are zero when the entry has no
	// cached symbol table.
	RootBTreeAddress uint64
	RootHeapAddress  uint64

	GroupLeafNodeK     uint16
	GroupInternalNodeK uint16
	IndexedStorageK    uint16

	// FileOffset is where the signature was found.
	FileOffset int64
}

// Read locates and parses the superblock.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)
	for offset := int64(0); offset < maxSearchOffset; offset = nextOffset(offset) {
		n, err := r.ReadAt(sig, offset)
		if n < len(sig) {
			if err == nil || errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:8], Signature) {
			continue
		}

		rd := binpkg.NewReader(r, binpkg.DefaultConfig()).At(offset + 9)
		var sb *Superblock
		switch version := sig[8]; version {
		case 0, 1:
			sb, err = readV0(rd, version)
		case 2, 3:
			sb, err = readV2(rd, offset, version)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = offset
		return sb, nil
	}
	return nil, ErrNotHDF5
}

func nextOffset(offset int64) int64 {
	if offset == 0 {
		return 512
	}
	return offset * 2
}

// ReaderConfig returns the binary configuration for metadata reads.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

func validSize(n uint8) bool {
	return n == 2 || n == 4 || n == 8
}

// readV0 parses versions 0 and 1. rd is positioned just after the version
// byte.
func readV0(rd *binpkg.Reader, version uint8) (*Superblock, error) {
	hdr, err := rd.ReadBytes(15)
	if err != nil {
		return nil, err
	}
	// hdr: free-space version, root entry version, reserved, shared header
	// version, offset size, length size, reserved, leaf K, internal K,
	// consistency flags.
	sb := &Superblock{
		Version:            version,
		OffsetSize:         hdr[4],
		LengthSize:         hdr[5],
		GroupLeafNodeK:     binary.LittleEndian.Uint16(hdr[7:]),
		GroupInternalNodeK: binary.LittleEndian.Uint16(hdr[9:]),
	}
	if !validSize(sb.OffsetSize) || !validSize(sb.LengthSize) {
		return nil, fmt.Errorf("%w: offset size %d, length size %d", ErrInvalidSuperblock, sb.OffsetSize, sb.LengthSize)
	}
	if version == 1 {
		k, err := rd.ReadUint16()
		if err != nil {
			return nil, err
		}
		sb.IndexedStorageK = k
		rd.Skip(2)
	}

	rd = rd.WithSizes(int(sb.OffsetSize), int(sb.LengthSize))
	if sb.BaseAddress, err = rd.ReadOffset(); err != nil {
		return nil, err
	}
	rd.Skip(int64(sb.OffsetSize)) // free-space info address
	if sb.EOFAddress, err = rd.ReadOffset(); err != nil {
		return nil, err
	}
	rd.Skip(int64(sb.OffsetSize)) // driver info address

	// Root group symbol table entry.
	rd.Skip(int64(sb.OffsetSize)) // link name offset
	if sb.RootGroupAddress, err = rd.ReadOffset(); err != nil {
		return nil, err
	}
	cacheType, err := rd.ReadUint32()
	if err != nil {
		return nil, err
	}
	rd.Skip(4)
	if cacheType == 1 {
		if sb.RootBTreeAddress, err = rd.ReadOffset(); err != nil {
			return nil, err
		}
		if sb.RootHeapAddress, err = rd.ReadOffset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

// readV2 parses versions 2 and 3 and verifies the checksum.
func readV2(rd *binpkg.Reader, offset int64, version uint8) (*Superblock, error) {
	hdr, err := rd.ReadBytes(3)
	if err != nil {
		return nil, err
	}
	sb := &Superblock{
		Version:    version,
		OffsetSize: hdr[0],
		LengthSize: hdr[1],
	}
	if !validSize(sb.OffsetSize) || !validSize(sb.LengthSize) {
		return nil, fmt.Errorf("%w: offset size %d, length size %d", ErrInvalidSuperblock, sb.OffsetSize, sb.LengthSize)
	}

	rd = rd.WithSizes(int(sb.OffsetSize), int(sb.LengthSize))
	if sb.BaseAddress, err = rd.ReadOffset(); err != nil {
		return nil, err
	}
	rd.Skip(int64(sb.OffsetSize)) // superblock extension address
	if sb.EOFAddress, err = rd.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.RootGroupAddress, err = rd.ReadOffset(); err != nil {
		return nil, err
	}

	body, err := rd.At(offset).ReadBytes(int(rd.Pos() - offset))
	if err != nil {
		return nil, err
	}
	stored, err := rd.ReadUint32()
	if err != nil {
		return nil, err
	}
	if binpkg.Lookup3Checksum(body) != stored {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}
	return sb, nil
}
