package message

import (
	"github.com/robert-malhotra/h5csv/internal/binary"
)

// SymbolTable marks an old-style group and points at its member index.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(r *binary.Reader) (*SymbolTable, error) {
	btree, err := r.ReadOffset()
	if err != nil {
		return nil, err
	}
	heap, err := r.ReadOffset()
	if err != nil {
		return nil, err
	}
	return &SymbolTable{BTreeAddress: btree, LocalHeapAddress: heap}, nil
}

// Serialize implements Serializable.
func (m *SymbolTable) Serialize(w *binary.Writer) error {
	if err := w.WriteOffset(m.BTreeAddress); err != nil {
		return err
	}
	return w.WriteOffset(m.LocalHeapAddress)
}

// LinkInfo marks a new-style group. When FractalHeapAddress is defined the
// links live in dense storage instead of in link messages.
type LinkInfo struct {
	FractalHeapAddress uint64
	NameIndexAddress   uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

func parseLinkInfo(r *binary.Reader) (*LinkInfo, error) {
	hdr, err := r.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if hdr[1]&0x01 != 0 {
		r.Skip(8) // max creation index
	}
	m := &LinkInfo{}
	if m.FractalHeapAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	if m.NameIndexAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	return m, nil
}

// Serialize implements Serializable. Zero addresses are written as
// undefined, which marks compact link storage.
func (m *LinkInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{0, 0}); err != nil {
		return err
	}
	for _, addr := range []uint64{m.FractalHeapAddress, m.NameIndexAddress} {
		if addr == 0 {
			if err := w.WriteUndefinedOffset(); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteOffset(addr); err != nil {
			return err
		}
	}
	return nil
}
