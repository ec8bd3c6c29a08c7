package hdf5

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/robert-malhotra/h5csv/internal/btree"
	"github.com/robert-malhotra/h5csv/internal/heap"
	"github.com/robert-malhotra/h5csv/internal/message"
	"github.com/robert-malhotra/h5csv/internal/object"
)

// Group is an HDF5 group.
type Group struct {
	file   *File
	path   string
	header *object.Header
}

// member is one named link in a group.
type member struct {
	name     string
	address  uint64 // hard links
	target   string // soft links
	external bool
}

// Name returns the last component of the group's path.
func (g *Group) Name() string { return path.Base(g.path) }

// Path returns the absolute path the group was opened by.
func (g *Group) Path() string { return g.path }

// Address returns the file address of the group's object header.
func (g *Group) Address() uint64 { return g.header.Address }

// Members returns the sorted names of every link in the group.
func (g *Group) Members() ([]string, error) {
	ms, err := g.members()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.name
	}
	return names, nil
}

func (g *Group) members() ([]member, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	r := g.file.reader
	if li := g.header.LinkInfo(); li != nil && !r.IsUndefinedOffset(li.FractalHeapAddress) {
		return nil, fmt.Errorf("%s: %w: dense link storage", g.path, ErrUnsupported)
	}

	var out []member
	for _, l := range g.header.Links() {
		m := member{name: l.Name}
		switch {
		case l.IsHard():
			m.address = l.ObjectAddress
		case l.IsSoft():
			m.target = l.SoftLinkValue
		default:
			m.external = true
		}
		out = append(out, m)
	}

	st := g.header.SymbolTable()
	if st == nil && g.path == "/" && g.file.superblock.RootBTreeAddress != 0 {
		// The superblock's scratch pad caches the root symbol table.
		st = &message.SymbolTable{
			BTreeAddress:     g.file.superblock.RootBTreeAddress,
			LocalHeapAddress: g.file.superblock.RootHeapAddress,
		}
	}
	if st != nil {
		names, err := heap.ReadLocalHeap(r, st.LocalHeapAddress)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.path, err)
		}
		entries, err := btree.ReadGroupEntries(r, st.BTreeAddress, names)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.path, err)
		}
		for _, e := range entries {
			out = append(out, member{name: e.Name, address: e.ObjectAddress, target: e.SoftLinkValue})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// OpenGroup opens a group by path. Relative paths start at g; absolute
// paths start at the root.
func (g *Group) OpenGroup(p string) (*Group, error) {
	hdr, full, err := g.lookup(p, newResolver())
	if err != nil {
		return nil, err
	}
	if isDataset(hdr) {
		return nil, fmt.Errorf("%s: %w", full, ErrNotGroup)
	}
	return &Group{file: g.file, path: full, header: hdr}, nil
}

// OpenDataset opens a dataset by path. Relative paths start at g;
// absolute paths start at the root.
func (g *Group) OpenDataset(p string) (*Dataset, error) {
	hdr, full, err := g.lookup(p, newResolver())
	if err != nil {
		return nil, err
	}
	if !isDataset(hdr) {
		return nil, fmt.Errorf("%s: %w", full, ErrNotDataset)
	}
	return newDataset(g.file, full, hdr)
}

func isDataset(h *object.Header) bool {
	return h.DataLayout() != nil
}

// resolver tracks the soft links followed for one lookup.
type resolver struct {
	followed map[string]bool
}

func newResolver() *resolver { return &resolver{followed: make(map[string]bool)} }

// lookup walks p one component at a time and returns the header of the
// object it names along with its absolute path.
func (g *Group) lookup(p string, res *resolver) (*object.Header, string, error) {
	if g.file.closed {
		return nil, "", ErrClosed
	}
	parts := SplitPath(p)
	if err := checkComponents(parts); err != nil {
		return nil, "", err
	}
	cur := g
	if strings.HasPrefix(p, "/") {
		cur = g.file.root
	}
	hdr, curPath := cur.header, cur.path

	for _, name := range parts {
		if isDataset(hdr) {
			return nil, "", fmt.Errorf("%s: %w", curPath, ErrNotGroup)
		}
		grp := &Group{file: g.file, path: curPath, header: hdr}
		ms, err := grp.members()
		if err != nil {
			return nil, "", err
		}
		childPath := joinPath(curPath, name)
		i := sort.Search(len(ms), func(i int) bool { return ms[i].name >= name })
		if i == len(ms) || ms[i].name != name {
			return nil, "", fmt.Errorf("%s: %w", childPath, ErrNotFound)
		}
		m := ms[i]

		switch {
		case m.external:
			return nil, "", fmt.Errorf("%s: %w: external link", childPath, ErrUnsupported)
		case m.target != "":
			if res.followed[childPath] {
				return nil, "", fmt.Errorf("%s: %w: soft link cycle", childPath, ErrLinkDepth)
			}
			if len(res.followed) >= MaxLinkDepth {
				return nil, "", fmt.Errorf("%s: %w", childPath, ErrLinkDepth)
			}
			res.followed[childPath] = true
			if hdr, _, err = grp.lookup(m.target, res); err != nil {
				return nil, "", fmt.Errorf("%s -> %s: %w", childPath, m.target, err)
			}
		default:
			if hdr, err = object.Read(g.file.reader, m.address); err != nil {
				return nil, "", fmt.Errorf("%s: %w", childPath, err)
			}
		}
		curPath = childPath
	}
	return hdr, curPath, nil
}
