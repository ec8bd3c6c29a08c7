package message

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/binary"
)

// LayoutClass is the storage class of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout(%d)", uint8(c))
}

// ChunkIndexType is the chunk index of a version 4 layout. Layouts older
// than version 4 always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1         ChunkIndexType = 0
	ChunkIndexSingleChunk     ChunkIndexType = 1
	ChunkIndexImplicit        ChunkIndexType = 2
	ChunkIndexFixedArray      ChunkIndexType = 3
	ChunkIndexExtensibleArray ChunkIndexType = 4
	ChunkIndexBTreeV2         ChunkIndexType = 5
)

func (t ChunkIndexType) String() string {
	switch t {
	case ChunkIndexBTreeV1:
		return "v1 B-tree"
	case ChunkIndexSingleChunk:
		return "single chunk"
	case ChunkIndexImplicit:
		return "implicit"
	case ChunkIndexFixedArray:
		return "fixed array"
	case ChunkIndexExtensibleArray:
		return "extensible array"
	case ChunkIndexBTreeV2:
		return "v2 B-tree"
	}
	return fmt.Sprintf("index(%d)", uint8(t))
}

// fixedArrayPageBits is what libhdf5 writes by default.
const fixedArrayPageBits = 10

// Version 4 chunked layout flags.
const (
	chunkFlagDontFilterPartial = 0x01
	chunkFlagSingleFiltered    = 0x02
)

// DataLayout tells where a dataset's raw data lives.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Compact.
	CompactData []byte

	// Contiguous. Size is zero for version 1 and 2 messages, which do not
	// record it.
	Address uint64
	Size    uint64

	// Chunked. ChunkDims excludes the trailing element-size dimension.
	ChunkDims      []uint64
	ElementSize    uint32
	ChunkIndexType ChunkIndexType
	ChunkIndexAddr uint64
	ChunkFlags     uint8

	// Single-chunk index with filters.
	SingleChunkSize       uint64
	SingleChunkFilterMask uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func parseDataLayout(r *binary.Reader) (*DataLayout, error) {
	version, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch version {
	case 1, 2:
		return parseDataLayoutV1(r, version)
	case 3, 4:
		return parseDataLayoutV3(r, version)
	}
	return nil, fmt.Errorf("data layout version %d", version)
}

func parseDataLayoutV1(r *binary.Reader, version uint8) (*DataLayout, error) {
	hdr, err := r.ReadBytes(7)
	if err != nil {
		return nil, err
	}
	ndims := int(hdr[0])
	m := &DataLayout{Version: version, Class: LayoutClass(hdr[1])}
	if m.Class != LayoutCompact {
		if m.Address, err = r.ReadOffset(); err != nil {
			return nil, err
		}
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		d, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		dims[i] = uint64(d)
	}

	switch m.Class {
	case LayoutCompact:
		size, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		if m.CompactData, err = r.ReadBytes(int(size)); err != nil {
			return nil, err
		}
	case LayoutChunked:
		if ndims < 2 {
			return nil, fmt.Errorf("chunked layout with %d dimensions", ndims)
		}
		m.ChunkIndexAddr = m.Address
		m.Address = 0
		m.ChunkDims = dims[:ndims-1]
		m.ElementSize = uint32(dims[ndims-1])
	}
	return m, nil
}

func parseDataLayoutV3(r *binary.Reader, version uint8) (*DataLayout, error) {
	class, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	m := &DataLayout{Version: version, Class: LayoutClass(class)}

	switch m.Class {
	case LayoutCompact:
		size, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		if m.CompactData, err = r.ReadBytes(int(size)); err != nil {
			return nil, err
		}
	case LayoutContiguous:
		if m.Address, err = r.ReadOffset(); err != nil {
			return nil, err
		}
		if m.Size, err = r.ReadLength(); err != nil {
			return nil, err
		}
	case LayoutChunked:
		if version == 3 {
			return m, parseChunkedV3(r, m)
		}
		return m, parseChunkedV4(r, m)
	case LayoutVirtual:
		// Left undecoded; the dataset layer rejects virtual storage.
	default:
		return nil, fmt.Errorf("layout class %d", class)
	}
	return m, nil
}

func parseChunkedV3(r *binary.Reader, m *DataLayout) error {
	ndims, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if ndims < 2 {
		return fmt.Errorf("chunked layout with %d dimensions", ndims)
	}
	if m.ChunkIndexAddr, err = r.ReadOffset(); err != nil {
		return err
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		d, err := r.ReadUint32()
		if err != nil {
			return err
		}
		dims[i] = uint64(d)
	}
	m.ChunkIndexType = ChunkIndexBTreeV1
	m.ChunkDims = dims[:ndims-1]
	m.ElementSize = uint32(dims[ndims-1])
	return nil
}

func parseChunkedV4(r *binary.Reader, m *DataLayout) error {
	hdr, err := r.ReadBytes(3)
	if err != nil {
		return err
	}
	m.ChunkFlags = hdr[0]
	ndims, encSize := int(hdr[1]), int(hdr[2])
	if ndims < 2 || encSize < 1 || encSize > 8 {
		return fmt.Errorf("chunked layout with %d dimensions of %d bytes", ndims, encSize)
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		if dims[i], err = r.ReadUintN(encSize); err != nil {
			return err
		}
	}
	m.ChunkDims = dims[:ndims-1]
	m.ElementSize = uint32(dims[ndims-1])

	idx, err := r.ReadUint8()
	if err != nil {
		return err
	}
	m.ChunkIndexType = ChunkIndexType(idx)
	switch m.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if m.ChunkFlags&chunkFlagSingleFiltered != 0 {
			if m.SingleChunkSize, err = r.ReadLength(); err != nil {
				return err
			}
			if m.SingleChunkFilterMask, err = r.ReadUint32(); err != nil {
				return err
			}
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		r.Skip(1)
	case ChunkIndexExtensibleArray:
		r.Skip(5)
	case ChunkIndexBTreeV2:
		r.Skip(6)
	default:
		return fmt.Errorf("chunk index type %d", idx)
	}
	m.ChunkIndexAddr, err = r.ReadOffset()
	return err
}

// NewCompactLayout returns a version 3 compact layout holding data.
func NewCompactLayout(data []byte) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutCompact, CompactData: data}
}

// NewContiguousLayout returns a version 3 contiguous layout.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: address, Size: size}
}

// NewChunkedLayout returns a version 3 chunked layout indexed by a
// version 1 B-tree at btree.
func NewChunkedLayout(chunkDims []uint64, elementSize uint32, btree uint64) *DataLayout {
	return &DataLayout{
		Version:        3,
		Class:          LayoutChunked,
		ChunkDims:      chunkDims,
		ElementSize:    elementSize,
		ChunkIndexType: ChunkIndexBTreeV1,
		ChunkIndexAddr: btree,
	}
}

// NewSingleChunkLayout returns a version 4 chunked layout whose only chunk
// is at address. filteredSize is zero when no filters are applied.
func NewSingleChunkLayout(chunkDims []uint64, elementSize uint32, address, filteredSize uint64) *DataLayout {
	m := &DataLayout{
		Version:         4,
		Class:           LayoutChunked,
		ChunkDims:       chunkDims,
		ElementSize:     elementSize,
		ChunkIndexType:  ChunkIndexSingleChunk,
		ChunkIndexAddr:  address,
		SingleChunkSize: filteredSize,
	}
	if filteredSize != 0 {
		m.ChunkFlags = chunkFlagSingleFiltered
	}
	return m
}

// NewFixedArrayLayout returns a version 4 chunked layout indexed by the
// fixed array header at address.
func NewFixedArrayLayout(chunkDims []uint64, elementSize uint32, address uint64) *DataLayout {
	return &DataLayout{
		Version:        4,
		Class:          LayoutChunked,
		ChunkDims:      chunkDims,
		ElementSize:    elementSize,
		ChunkIndexType: ChunkIndexFixedArray,
		ChunkIndexAddr: address,
	}
}

// SingleChunkFiltered reports whether a single-chunk index records a
// filtered size and mask.
func (m *DataLayout) SingleChunkFiltered() bool {
	return m.ChunkFlags&chunkFlagSingleFiltered != 0
}

// Serialize implements Serializable. Version 3 is written for every class;
// version 4 only for single-chunk, implicit and fixed array indexes.
func (m *DataLayout) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{m.Version, uint8(m.Class)}); err != nil {
		return err
	}
	switch m.Class {
	case LayoutCompact:
		if err := w.WriteUint16(uint16(len(m.CompactData))); err != nil {
			return err
		}
		return w.WriteBytes(m.CompactData)
	case LayoutContiguous:
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	case LayoutChunked:
		if m.Version == 3 {
			return m.serializeChunkedV3(w)
		}
		return m.serializeChunkedV4(w)
	}
	return fmt.Errorf("cannot encode %s layout", m.Class)
}

func (m *DataLayout) serializeChunkedV3(w *binary.Writer) error {
	if err := w.WriteUint8(uint8(len(m.ChunkDims) + 1)); err != nil {
		return err
	}
	if err := w.WriteOffset(m.ChunkIndexAddr); err != nil {
		return err
	}
	for _, d := range m.ChunkDims {
		if err := w.WriteUint32(uint32(d)); err != nil {
			return err
		}
	}
	return w.WriteUint32(m.ElementSize)
}

func (m *DataLayout) serializeChunkedV4(w *binary.Writer) error {
	const encSize = 4
	if err := w.WriteBytes([]byte{m.ChunkFlags, uint8(len(m.ChunkDims) + 1), encSize}); err != nil {
		return err
	}
	for _, d := range m.ChunkDims {
		if err := w.WriteUintN(d, encSize); err != nil {
			return err
		}
	}
	if err := w.WriteUintN(uint64(m.ElementSize), encSize); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(m.ChunkIndexType)); err != nil {
		return err
	}
	switch m.ChunkIndexType {
	case ChunkIndexSingleChunk:
		if m.ChunkFlags&chunkFlagSingleFiltered != 0 {
			if err := w.WriteLength(m.SingleChunkSize); err != nil {
				return err
			}
			if err := w.WriteUint32(m.SingleChunkFilterMask); err != nil {
				return err
			}
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		if err := w.WriteUint8(fixedArrayPageBits); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot encode chunk index type %d", m.ChunkIndexType)
	}
	return w.WriteOffset(m.ChunkIndexAddr)
}
