package hdf5

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/robert-malhotra/h5csv/internal/binary"
	"github.com/robert-malhotra/h5csv/internal/object"
	"github.com/robert-malhotra/h5csv/internal/superblock"
)

// File is an open HDF5 file.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	root       *Group
	closed     bool
}

// Open opens an HDF5 file for reading. Errors from the operating system
// are returned as is; a file that does not parse as HDF5 yields an error
// wrapping ErrNotHDF5.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	sb, err := superblock.Read(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w: %w", path, ErrNotHDF5, err)
	}

	// Addresses are relative to the base address, which is past any
	// user block.
	var src io.ReaderAt = f
	if sb.BaseAddress != 0 {
		src = io.NewSectionReader(f, int64(sb.BaseAddress), math.MaxInt64-int64(sb.BaseAddress))
	}

	hdf := &File{
		path:       path,
		file:       f,
		reader:     binary.NewReader(src, sb.ReaderConfig()),
		superblock: sb,
	}

	header, err := object.Read(hdf.reader, sb.RootGroupAddress)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w: root group: %w", path, ErrNotHDF5, err)
	}
	hdf.root = &Group{file: hdf, path: "/", header: header}
	return hdf, nil
}

// Close releases the file. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.superblock.Version) }

// Keys returns the sorted member names of the root group.
func (f *File) Keys() ([]string, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.Members()
}

// OpenGroup opens a group by path from the root.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens a dataset by path from the root.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}
