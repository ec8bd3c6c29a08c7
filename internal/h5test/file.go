package h5test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/robert-malhotra/h5csv/internal/message"
)

// Format selects the on-disk structures used for every object.
type Format int

const (
	FormatV0 Format = iota
	FormatLatest
)

// File is an HDF5 file under construction.
type File struct {
	format    Format
	userBlock uint64
	root      *Group
}

// FileOption configures a File.
type FileOption func(*File)

// WithUserBlock reserves size bytes before the superblock. size must be
// 512 or a larger power of two.
func WithUserBlock(size uint64) FileOption {
	return func(f *File) { f.userBlock = size }
}

// New returns an empty file.
func New(format Format, opts ...FileOption) *File {
	f := &File{format: format, root: newGroup()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// WriteFile encodes the file to path.
func (f *File) WriteFile(path string) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteTemp encodes the file into the test's temporary directory and
// returns its path.
func (f *File) WriteTemp(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// Group holds named members.
type Group struct {
	groups    map[string]*Group
	datasets  map[string]*Dataset
	softLinks map[string]string
	dense     bool
}

func newGroup() *Group {
	return &Group{
		groups:    make(map[string]*Group),
		datasets:  make(map[string]*Dataset),
		softLinks: make(map[string]string),
	}
}

// Group returns the child group name, creating it if needed.
func (g *Group) Group(name string) *Group {
	if c, ok := g.groups[name]; ok {
		return c
	}
	c := newGroup()
	g.groups[name] = c
	return c
}

// SoftLink adds a link that resolves to target by path.
func (g *Group) SoftLink(name, target string) {
	g.softLinks[name] = target
}

// MarkDense flags the group as using dense link storage. Only the link
// info message is written, pointing at a fractal heap that does not
// exist; readers that do not support dense storage must refuse it.
func (g *Group) MarkDense() { g.dense = true }

// names returns every member name in byte order, which is also the order
// libhdf5 keeps in symbol table nodes.
func (g *Group) names() []string {
	var names []string
	for n := range g.groups {
		names = append(names, n)
	}
	for n := range g.datasets {
		names = append(names, n)
	}
	for n := range g.softLinks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dataset is a numeric or raw dataset.
type Dataset struct {
	datatype *message.Datatype
	dims     []uint64
	values   []float64
	raw      []byte
	opts     datasetOptions
}

type datasetOptions struct {
	chunks      []uint64
	deflate     int
	shuffle     bool
	fletcher32  bool
	fill        *float64
	compact     bool
	unallocated bool
	split       bool
}

// DatasetOption configures a Dataset.
type DatasetOption func(*datasetOptions)

// WithChunks stores the dataset in chunks of the given shape.
func WithChunks(dims ...uint64) DatasetOption {
	return func(o *datasetOptions) { o.chunks = dims }
}

// WithCompression adds the deflate filter at level (1-9).
func WithCompression(level int) DatasetOption {
	return func(o *datasetOptions) { o.deflate = level }
}

// WithShuffle adds the shuffle filter ahead of compression.
func WithShuffle() DatasetOption {
	return func(o *datasetOptions) { o.shuffle = true }
}

// WithFletcher32 adds the checksum filter last.
func WithFletcher32() DatasetOption {
	return func(o *datasetOptions) { o.fletcher32 = true }
}

// WithFill records v as the dataset's fill value.
func WithFill(v float64) DatasetOption {
	return func(o *datasetOptions) { o.fill = &v }
}

// WithCompact stores the data inside the object header.
func WithCompact() DatasetOption {
	return func(o *datasetOptions) { o.compact = true }
}

// Unallocated writes no raw data, leaving the storage address undefined.
func Unallocated() DatasetOption {
	return func(o *datasetOptions) { o.unallocated = true }
}

// WithSplitHeader moves the layout and filter messages into a
// continuation block.
func WithSplitHeader() DatasetOption {
	return func(o *datasetOptions) { o.split = true }
}

// Dataset adds a numeric dataset holding values in row-major order. A nil
// dims slice makes a scalar dataset.
func (g *Group) Dataset(name string, dt *message.Datatype, dims []uint64, values []float64, opts ...DatasetOption) {
	d := &Dataset{datatype: dt, dims: dims, values: values}
	for _, opt := range opts {
		opt(&d.opts)
	}
	g.datasets[name] = d
}

// RawDataset adds a dataset whose element bytes are given directly, for
// types that have no numeric form.
func (g *Group) RawDataset(name string, dt *message.Datatype, dims []uint64, raw []byte, opts ...DatasetOption) {
	d := &Dataset{datatype: dt, dims: dims, raw: raw}
	for _, opt := range opts {
		opt(&d.opts)
	}
	g.datasets[name] = d
}
