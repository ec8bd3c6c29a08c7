package btree

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/heap"
)

var snodSignature = []byte{'S', 'N', 'O', 'D'}

// Symbol table entry cache types.
const (
	CacheNone        uint32 = 0
	CacheSymbolTable uint32 = 1
	CacheSoftLink    uint32 = 2
)

// GroupEntry is one member of an old-style group.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64

	// SoftLinkValue is set for soft links, whose ObjectAddress is unused.
	SoftLinkValue string
}

// IsSoft reports whether the entry is a soft link.
func (e GroupEntry) IsSoft() bool { return e.SoftLinkValue != "" }

// ReadGroupEntries returns every member indexed by the group B-tree at
// btreeAddr, in B-tree order (sorted by name).
func ReadGroupEntries(r *binary.Reader, btreeAddr uint64, names *heap.LocalHeap) ([]GroupEntry, error) {
	var entries []GroupEntry
	err := readGroupNode(r, newWalker(), btreeAddr, 0, names, &entries)
	return entries, err
}

func readGroupNode(r *binary.Reader, wk *walker, address uint64, depth int, names *heap.LocalHeap, out *[]GroupEntry) error {
	if err := wk.enter(address, depth); err != nil {
		return err
	}
	nr, hdr, err := readNodeHeader(r, address, nodeTypeGroup)
	if err != nil {
		return err
	}
	for i := 0; i < int(hdr.entries); i++ {
		nr.Skip(int64(nr.LengthSize())) // key: heap offset
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		if hdr.level > 0 {
			err = readGroupNode(r, wk, child, depth+1, names, out)
		} else {
			err = readSymbolNode(r, child, names, out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readSymbolNode(r *binary.Reader, address uint64, names *heap.LocalHeap, out *[]GroupEntry) error {
	nr := r.At(int64(address))
	hdr, err := nr.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("symbol node at %d: %w", address, err)
	}
	if !bytes.Equal(hdr[:4], snodSignature) {
		return fmt.Errorf("%w: bad symbol node signature %q at %d", ErrInvalidTree, hdr[:4], address)
	}
	if hdr[4] != 1 {
		return fmt.Errorf("%w: symbol node version %d", ErrInvalidTree, hdr[4])
	}
	count := int(hdr[6]) | int(hdr[7])<<8
	for i := 0; i < count; i++ {
		e, err := readSymbolEntry(nr, names)
		if err != nil {
			return fmt.Errorf("symbol node at %d, entry %d: %w", address, i, err)
		}
		*out = append(*out, e)
	}
	return nil
}

func readSymbolEntry(r *binary.Reader, names *heap.LocalHeap) (GroupEntry, error) {
	var e GroupEntry
	nameOff, err := r.ReadOffset()
	if err != nil {
		return e, err
	}
	if e.ObjectAddress, err = r.ReadOffset(); err != nil {
		return e, err
	}
	cacheType, err := r.ReadUint32()
	if err != nil {
		return e, err
	}
	r.Skip(4)
	scratch, err := r.ReadBytes(16)
	if err != nil {
		return e, err
	}
	if e.Name, err = names.String(nameOff); err != nil {
		return e, err
	}
	if cacheType == CacheSoftLink {
		linkOff := uint64(scratch[0]) | uint64(scratch[1])<<8 | uint64(scratch[2])<<16 | uint64(scratch[3])<<24
		if e.SoftLinkValue, err = names.String(linkOff); err != nil {
			return e, err
		}
		e.ObjectAddress = 0
	}
	return e, nil
}

// SymbolEntry is the on-disk form of a group member, used when writing.
type SymbolEntry struct {
	NameOffset    uint64
	ObjectAddress uint64
	CacheType     uint32

	// For CacheSymbolTable: the member group's B-tree and heap.
	// For CacheSoftLink: BTreeAddress holds the heap offset of the target.
	BTreeAddress uint64
	HeapAddress  uint64
}

// SymbolEntrySize is the encoded size of a symbol table entry.
func SymbolEntrySize(cfg binary.Config) int {
	return 2*cfg.OffsetSize + 8 + 16
}

// WriteSymbolEntry encodes one symbol table entry. The superblock's root
// entry uses the same format.
func WriteSymbolEntry(w *binary.Writer, e SymbolEntry) error {
	if err := w.WriteOffset(e.NameOffset); err != nil {
		return err
	}
	if err := w.WriteOffset(e.ObjectAddress); err != nil {
		return err
	}
	if err := w.WriteUint32(e.CacheType); err != nil {
		return err
	}
	if err := w.WriteZeros(4); err != nil {
		return err
	}
	scratch := make([]byte, 16)
	cfg := w.Config()
	switch e.CacheType {
	case CacheSymbolTable:
		binary.EncodeUint(scratch, e.BTreeAddress, cfg.OffsetSize, cfg.ByteOrder)
		binary.EncodeUint(scratch[cfg.OffsetSize:], e.HeapAddress, cfg.OffsetSize, cfg.ByteOrder)
	case CacheSoftLink:
		binary.EncodeUint(scratch, e.BTreeAddress, 4, cfg.ByteOrder)
	}
	return w.WriteBytes(scratch)
}

// SymbolNodeSize is the encoded size of a symbol node holding n entries.
func SymbolNodeSize(cfg binary.Config, n int) int {
	return 8 + n*SymbolEntrySize(cfg)
}

// WriteSymbolNode encodes a symbol table node. Entries must already be
// sorted by name.
func WriteSymbolNode(w *binary.Writer, entries []SymbolEntry) error {
	if err := w.WriteBytes(snodSignature); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte{1, 0}); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := WriteSymbolEntry(w, e); err != nil {
			return err
		}
	}
	return nil
}

// GroupTreeSize is the encoded size of a group B-tree leaf with n children.
func GroupTreeSize(cfg binary.Config, n int) int {
	return 8 + 2*cfg.OffsetSize + (n+1)*cfg.LengthSize + n*cfg.OffsetSize
}

// WriteGroupTree encodes a single leaf node pointing at symbol nodes.
// keys holds len(nodes)+1 heap offsets: the empty name, then the last name
// of each symbol node.
func WriteGroupTree(w *binary.Writer, nodes, keys []uint64) error {
	if len(keys) != len(nodes)+1 {
		return fmt.Errorf("%w: %d keys for %d children", ErrInvalidTree, len(keys), len(nodes))
	}
	if err := writeNodeHeader(w, nodeTypeGroup, len(nodes)); err != nil {
		return err
	}
	for i, child := range nodes {
		if err := w.WriteLength(keys[i]); err != nil {
			return err
		}
		if err := w.WriteOffset(child); err != nil {
			return err
		}
	}
	return w.WriteLength(keys[len(nodes)])
}
