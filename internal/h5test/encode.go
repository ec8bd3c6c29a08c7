package h5test

import (
	"fmt"

	"github.com/robert-malhotra/h5csv/internal/alloc"
	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/btree"
	"github.com/robert-malhotra/h5csv/internal/dtype"
	"github.com/robert-malhotra/h5csv/internal/filter"
	"github.com/robert-malhotra/h5csv/internal/heap"
	"github.com/robert-malhotra/h5csv/internal/layout"
	"github.com/robert-malhotra/h5csv/internal/message"
	"github.com/robert-malhotra/h5csv/internal/object"
	"github.com/robert-malhotra/h5csv/internal/superblock"
)

const (
	// symbolNodeCapacity is twice the default group leaf K.
	symbolNodeCapacity = 8
	groupHeaderMinSize = 24
	// maxFixedArrayChunks is the largest unpaged fixed array.
	maxFixedArrayChunks = 1024
	// denseHeapAddress stands in for a fractal heap that is never written.
	denseHeapAddress = 1 << 20
)

type encoder struct {
	format Format
	cfg    binary.Config
	buf    *binary.Buffer
	alloc  *alloc.Allocator
}

func (e *encoder) writer(addr uint64) *binary.Writer {
	return binary.NewWriter(e.buf, e.cfg).At(int64(addr))
}

// place allocates room for data and writes it.
func (e *encoder) place(data []byte, tag string) (uint64, error) {
	addr := e.alloc.Alloc(uint64(len(data)), tag)
	if err := e.writer(addr).WriteBytes(data); err != nil {
		return 0, fmt.Errorf("writing %s: %w", tag, err)
	}
	return addr, nil
}

// Bytes encodes the whole file.
func (f *File) Bytes() ([]byte, error) {
	e := &encoder{format: f.format, cfg: binary.DefaultConfig(), buf: &binary.Buffer{}}
	sb := &superblock.Superblock{
		OffsetSize:  uint8(e.cfg.OffsetSize),
		LengthSize:  uint8(e.cfg.LengthSize),
		BaseAddress: f.userBlock,
	}

	switch f.format {
	case FormatV0:
		e.alloc = alloc.New(superblock.SizeV0)
		addr, bt, hp, err := e.symbolGroup(f.root, "/")
		if err != nil {
			return nil, err
		}
		sb.RootGroupAddress, sb.RootBTreeAddress, sb.RootHeapAddress = addr, bt, hp
	case FormatLatest:
		e.alloc = alloc.New(superblock.SizeV2)
		sb.Version = 3
		addr, err := e.linkGroup(f.root, "/")
		if err != nil {
			return nil, err
		}
		sb.RootGroupAddress = addr
	default:
		return nil, fmt.Errorf("unknown format %d", f.format)
	}
	if err := e.alloc.Validate(); err != nil {
		return nil, err
	}

	sb.EOFAddress = e.alloc.EOF()
	if err := sb.Write(e.writer(0)); err != nil {
		return nil, fmt.Errorf("writing superblock: %w", err)
	}
	if pad := int64(sb.EOFAddress) - e.buf.Len(); pad > 0 {
		if err := e.writer(uint64(e.buf.Len())).WriteZeros(int(pad)); err != nil {
			return nil, err
		}
	}
	return append(make([]byte, f.userBlock), e.buf.Bytes()...), nil
}

// symbolGroup writes a group in the symbol table style and returns its
// header, B-tree and heap addresses.
func (e *encoder) symbolGroup(g *Group, path string) (uint64, uint64, uint64, error) {
	hb := heap.NewBuilder()
	var entries []btree.SymbolEntry
	for _, name := range g.names() {
		entry := btree.SymbolEntry{NameOffset: hb.Add(name)}
		switch {
		case g.groups[name] != nil:
			addr, bt, hp, err := e.symbolGroup(g.groups[name], path+name+"/")
			if err != nil {
				return 0, 0, 0, err
			}
			entry.ObjectAddress, entry.CacheType = addr, btree.CacheSymbolTable
			entry.BTreeAddress, entry.HeapAddress = bt, hp
		case g.datasets[name] != nil:
			addr, err := e.dataset(g.datasets[name], path+name)
			if err != nil {
				return 0, 0, 0, err
			}
			entry.ObjectAddress = addr
		default:
			entry.ObjectAddress = binary.Undefined(e.cfg.OffsetSize)
			entry.CacheType = btree.CacheSoftLink
			entry.BTreeAddress = hb.Add(g.softLinks[name])
		}
		entries = append(entries, entry)
	}

	// Symbol nodes of at most symbolNodeCapacity entries each.
	var nodes []uint64
	keys := []uint64{0}
	for start := 0; start < len(entries); start += symbolNodeCapacity {
		end := min(start+symbolNodeCapacity, len(entries))
		addr := e.alloc.Alloc(uint64(btree.SymbolNodeSize(e.cfg, symbolNodeCapacity)), path+" symbol node")
		if err := btree.WriteSymbolNode(e.writer(addr), entries[start:end]); err != nil {
			return 0, 0, 0, err
		}
		nodes = append(nodes, addr)
		keys = append(keys, entries[end-1].NameOffset)
	}

	treeAddr := e.alloc.Alloc(uint64(btree.GroupTreeSize(e.cfg, len(nodes))), path+" B-tree")
	if err := btree.WriteGroupTree(e.writer(treeAddr), nodes, keys); err != nil {
		return 0, 0, 0, err
	}

	heapAddr := e.alloc.Alloc(uint64(heap.HeaderSize(e.cfg)), path+" heap")
	dataAddr := e.alloc.Alloc(uint64(hb.DataSize()), path+" heap data")
	if err := hb.Write(e.writer(heapAddr), dataAddr); err != nil {
		return 0, 0, 0, err
	}

	hdr, err := object.EncodeV1([]message.Serializable{
		&message.SymbolTable{BTreeAddress: treeAddr, LocalHeapAddress: heapAddr},
	}, e.cfg, groupHeaderMinSize)
	if err != nil {
		return 0, 0, 0, err
	}
	addr, err := e.place(hdr, path+" header")
	return addr, treeAddr, heapAddr, err
}

// linkGroup writes a group whose members are link messages in its own
// header.
func (e *encoder) linkGroup(g *Group, path string) (uint64, error) {
	info := &message.LinkInfo{}
	if g.dense {
		info.FractalHeapAddress = denseHeapAddress
	}
	msgs := []message.Serializable{info}
	for _, name := range g.names() {
		if g.dense {
			break
		}
		switch {
		case g.groups[name] != nil:
			addr, err := e.linkGroup(g.groups[name], path+name+"/")
			if err != nil {
				return 0, err
			}
			msgs = append(msgs, message.NewHardLink(name, addr))
		case g.datasets[name] != nil:
			addr, err := e.dataset(g.datasets[name], path+name)
			if err != nil {
				return 0, err
			}
			msgs = append(msgs, message.NewHardLink(name, addr))
		default:
			msgs = append(msgs, message.NewSoftLink(name, g.softLinks[name]))
		}
	}
	hdr, err := object.EncodeV2(msgs, e.cfg)
	if err != nil {
		return 0, err
	}
	return e.place(hdr, path+" header")
}

// dataset writes the raw data and object header of d.
func (e *encoder) dataset(d *Dataset, path string) (uint64, error) {
	dt := d.datatype
	space := message.NewDataspace(d.dims)
	n := uint64(1)
	for _, dim := range d.dims {
		n *= dim
	}

	raw := d.raw
	if d.values != nil {
		if uint64(len(d.values)) != n {
			return 0, fmt.Errorf("%s: %d values for %d elements", path, len(d.values), n)
		}
		var err error
		if raw, err = dtype.Encode(dt, d.values); err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
	}
	if raw == nil {
		raw = make([]byte, n*uint64(dt.Size))
	}

	fill := message.NewFillValue(nil)
	if d.opts.fill != nil {
		v, err := dtype.Encode(dt, []float64{*d.opts.fill})
		if err != nil {
			return 0, fmt.Errorf("%s fill value: %w", path, err)
		}
		fill.Value = v
	}

	pipeline := e.pipeline(d)
	if pipeline != nil && d.opts.chunks == nil {
		return 0, fmt.Errorf("%s: filters need chunked storage", path)
	}
	if e.format == FormatLatest {
		space.Version = 2
		fill.Version = 3
	}

	dl, err := e.storage(d, raw, pipeline, path)
	if err != nil {
		return 0, err
	}

	head := []message.Serializable{space, dt, fill}
	tail := []message.Serializable{dl}
	if pipeline != nil {
		tail = []message.Serializable{pipeline, dl}
	}
	if d.opts.split {
		cont, err := e.continuation(tail, path)
		if err != nil {
			return 0, err
		}
		head = append(head, cont)
	} else {
		head = append(head, tail...)
	}

	var hdr []byte
	if e.format == FormatV0 {
		hdr, err = object.EncodeV1(head, e.cfg, 0)
	} else {
		hdr, err = object.EncodeV2(head, e.cfg)
	}
	if err != nil {
		return 0, fmt.Errorf("%s header: %w", path, err)
	}
	return e.place(hdr, path+" header")
}

func (e *encoder) continuation(msgs []message.Serializable, path string) (*message.Continuation, error) {
	var block []byte
	var err error
	if e.format == FormatV0 {
		block, err = object.EncodeV1Block(msgs, e.cfg)
	} else {
		block, err = object.EncodeV2Block(msgs, e.cfg)
	}
	if err != nil {
		return nil, err
	}
	addr, err := e.place(block, path+" continuation")
	if err != nil {
		return nil, err
	}
	return &message.Continuation{Offset: addr, Length: uint64(len(block))}, nil
}

// pipeline returns the filter pipeline message for d, or nil.
func (e *encoder) pipeline(d *Dataset) *message.FilterPipeline {
	var filters []message.FilterInfo
	if d.opts.shuffle {
		filters = append(filters, message.FilterInfo{ID: message.FilterShuffle, ClientData: []uint32{d.datatype.Size}})
	}
	if d.opts.deflate > 0 {
		filters = append(filters, message.FilterInfo{ID: message.FilterDeflate, ClientData: []uint32{uint32(d.opts.deflate)}})
	}
	if d.opts.fletcher32 {
		filters = append(filters, message.FilterInfo{ID: message.FilterFletcher32})
	}
	if filters == nil {
		return nil
	}
	fp := &message.FilterPipeline{Version: 2, Filters: filters}
	if e.format == FormatV0 {
		fp.Version = 1
	}
	return fp
}

// storage writes raw according to the requested layout and returns the
// layout message.
func (e *encoder) storage(d *Dataset, raw []byte, fp *message.FilterPipeline, path string) (*message.DataLayout, error) {
	undefined := binary.Undefined(e.cfg.OffsetSize)
	switch {
	case d.opts.compact:
		return message.NewCompactLayout(raw), nil
	case d.opts.chunks == nil && d.opts.unallocated:
		return message.NewContiguousLayout(undefined, uint64(len(raw))), nil
	case d.opts.chunks == nil:
		addr, err := e.place(raw, path+" data")
		if err != nil {
			return nil, err
		}
		return message.NewContiguousLayout(addr, uint64(len(raw))), nil
	}

	chunkDims := d.opts.chunks
	if len(chunkDims) != len(d.dims) {
		return nil, fmt.Errorf("%s: chunk rank %d for rank %d data", path, len(chunkDims), len(d.dims))
	}
	es := d.datatype.Size
	if d.opts.unallocated {
		if e.format == FormatV0 {
			return message.NewChunkedLayout(chunkDims, es, undefined), nil
		}
		return message.NewFixedArrayLayout(chunkDims, es, undefined), nil
	}

	p, err := filter.NewPipeline(fp)
	if err != nil {
		return nil, err
	}
	chunks := layout.Split(raw, d.dims, chunkDims, int(es))
	entries := make([]btree.ChunkEntry, len(chunks))
	for i, c := range chunks {
		data, err := p.Encode(c.Data)
		if err != nil {
			return nil, fmt.Errorf("%s chunk %v: %w", path, c.Offset, err)
		}
		addr, err := e.place(data, fmt.Sprintf("%s chunk %v", path, c.Offset))
		if err != nil {
			return nil, err
		}
		entries[i] = btree.ChunkEntry{Offset: c.Offset, Size: uint32(len(data)), Address: addr}
	}

	if e.format == FormatV0 {
		end := make([]uint64, len(d.dims))
		for i := range end {
			end[i] = (d.dims[i] + chunkDims[i] - 1) / chunkDims[i] * chunkDims[i]
		}
		size := btree.ChunkTreeSize(e.cfg, len(d.dims), len(entries))
		addr := e.alloc.Alloc(uint64(size), path+" chunk B-tree")
		if err := btree.WriteChunkTree(e.writer(addr), entries, end); err != nil {
			return nil, err
		}
		return message.NewChunkedLayout(chunkDims, es, addr), nil
	}

	filtered := !p.Empty()
	if len(entries) == 1 {
		var size uint64
		if filtered {
			size = uint64(entries[0].Size)
		}
		return message.NewSingleChunkLayout(chunkDims, es, entries[0].Address, size), nil
	}
	if len(entries) > maxFixedArrayChunks {
		return nil, fmt.Errorf("%s: %d chunks need a paged fixed array", path, len(entries))
	}
	chunkBytes := uint64(len(chunks[0].Data))
	size := layout.FixedArraySize(e.cfg, len(entries), filtered, chunkBytes)
	addr := e.alloc.Alloc(uint64(size), path+" fixed array")
	if err := layout.WriteFixedArray(e.writer(addr), entries, filtered, chunkBytes); err != nil {
		return nil, err
	}
	return message.NewFixedArrayLayout(chunkDims, es, addr), nil
}
