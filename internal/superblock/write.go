package superblock

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5csv/internal/binary"
)

// SizeV0 is the encoded size of a version 0 superblock with 8-byte offsets,
// including the root symbol table entry.
const SizeV0 = 96

// SizeV2 is the encoded size of a version 2 superblock with 8-byte offsets.
const SizeV2 = 48

// Write encodes sb at w's position. Versions 0 and 2 are supported; the
// root scratch pad is written only when RootBTreeAddress is set.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	switch sb.Version {
	case 0:
		return sb.writeV0(w)
	case 2, 3:
		return sb.writeV2(w)
	}
	return fmt.Errorf("%w: cannot write version %d", ErrUnsupportedVersion, sb.Version)
}

func (sb *Superblock) writeV0(w *binpkg.Writer) error {
	leafK, internalK := sb.GroupLeafNodeK, sb.GroupInternalNodeK
	if leafK == 0 {
		leafK = 4
	}
	if internalK == 0 {
		internalK = 16
	}
	hdr := []byte{0, 0, 0, 0, 0, sb.OffsetSize, sb.LengthSize, 0}
	steps := []func() error{
		func() error { return w.WriteBytes(Signature) },
		func() error { return w.WriteBytes(hdr) },
		func() error { return w.WriteUint16(leafK) },
		func() error { return w.WriteUint16(internalK) },
		func() error { return w.WriteUint32(0) },
		func() error { return w.WriteOffset(sb.BaseAddress) },
		w.WriteUndefinedOffset,
		func() error { return w.WriteOffset(sb.EOFAddress) },
		w.WriteUndefinedOffset,
		func() error { return w.WriteOffset(0) },
		func() error { return w.WriteOffset(sb.RootGroupAddress) },
	}
	if sb.RootBTreeAddress != 0 {
		steps = append(steps,
			func() error { return w.WriteUint32(1) },
			func() error { return w.WriteUint32(0) },
			func() error { return w.WriteOffset(sb.RootBTreeAddress) },
			func() error { return w.WriteOffset(sb.RootHeapAddress) },
		)
	} else {
		steps = append(steps, func() error { return w.WriteZeros(24) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (sb *Superblock) writeV2(w *binpkg.Writer) error {
	buf := &binpkg.Buffer{}
	bw := binpkg.NewWriter(buf, w.Config())
	steps := []func() error{
		func() error { return bw.WriteBytes(Signature) },
		func() error { return bw.WriteBytes([]byte{sb.Version, sb.OffsetSize, sb.LengthSize, 0}) },
		func() error { return bw.WriteOffset(sb.BaseAddress) },
		bw.WriteUndefinedOffset,
		func() error { return bw.WriteOffset(sb.EOFAddress) },
		func() error { return bw.WriteOffset(sb.RootGroupAddress) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if err := bw.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return err
	}
	return w.WriteBytes(buf.Bytes())
}
