// Package hdf5 reads numeric datasets from HDF5 files.
//
// The reader is read-only and covers the structures h5py and libhdf5 write
// by default and with libver="latest": superblocks 0 to 3, object headers
// 1 and 2, symbol table and compact link groups, and compact, contiguous
// and chunked storage with the deflate, shuffle and fletcher32 filters.
package hdf5

import (
	"errors"

	"github.com/robert-malhotra/h5csv/internal/dtype"
)

var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")

	// ErrInexact is returned by ReadFloat64 for 64-bit integers that have
	// no exact float64 form.
	ErrInexact = dtype.ErrInexact
)

// MaxLinkDepth is the number of soft links followed while resolving one
// path.
const MaxLinkDepth = 32
