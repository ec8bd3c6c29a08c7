package btree

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

var ErrInvalidTree = errors.New("invalid B-tree")

var treeSignature = []byte{'T', 'R', 'E', 'E'}

const (
	nodeTypeGroup = 0
	nodeTypeChunk = 1

	// maxDepth bounds recursion on corrupt files.
	maxDepth = 64
)

type nodeHeader struct {
	level   uint8
	entries uint16
}

// readNodeHeader positions a reader after the node header at address.
func readNodeHeader(r *binary.Reader, address uint64, wantType uint8) (*binary.Reader, nodeHeader, error) {
	nr := r.At(int64(address))
	hdr, err := nr.ReadBytes(8)
	if err != nil {
		return nil, nodeHeader{}, fmt.Errorf("B-tree node at %d: %w", address, err)
	}
	if !bytes.Equal(hdr[:4], treeSignature) {
		return nil, nodeHeader{}, fmt.Errorf("%w: bad signature %q at %d", ErrInvalidTree, hdr[:4], address)
	}
	if hdr[4] != wantType {
		return nil, nodeHeader{}, fmt.Errorf("%w: node type %d at %d, want %d", ErrInvalidTree, hdr[4], address, wantType)
	}
	h := nodeHeader{level: hdr[5], entries: uint16(hdr[6]) | uint16(hdr[7])<<8}
	// Left and right sibling addresses.
	nr.Skip(2 * int64(nr.OffsetSize()))
	return nr, h, nil
}

// walker guards a traversal against cycles and runaway depth.
type walker struct {
	seen map[uint64]bool
}

func newWalker() *walker { return &walker{seen: make(map[uint64]bool)} }

func (w *walker) enter(address uint64, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: deeper than %d levels", ErrInvalidTree, maxDepth)
	}
	if w.seen[address] {
		return fmt.Errorf("%w: node %d visited twice", ErrInvalidTree, address)
	}
	w.seen[address] = true
	return nil
}

func writeNodeHeader(w *binary.Writer, nodeType uint8, entries int) error {
	if err := w.WriteBytes(treeSignature); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte{nodeType, 0}); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(entries)); err != nil {
		return err
	}
	if err := w.WriteUndefinedOffset(); err != nil {
		return err
	}
	return w.WriteUndefinedOffset()
}
