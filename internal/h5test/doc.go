// Package h5test assembles small HDF5 files for tests.
//
// A file is described as a tree of groups, datasets and soft links and
// encoded in one of two on-disk styles:
//
//	FormatV0     superblock 0, version 1 object headers, symbol table
//	             groups and version 1 B-tree chunk indexes (h5py's default)
//	FormatLatest superblock 3, version 2 object headers, link message
//	             groups and single-chunk or fixed array chunk indexes
//	             (h5py with libver="latest")
//
// Example:
//
//	f := h5test.New(h5test.FormatV0)
//	f.Root().Dataset("test", message.NewFloatDatatype(4), []uint64{2, 3}, values,
//		h5test.WithChunks(1, 3), h5test.WithCompression(4))
//	path := f.WriteTemp(t, "data.h5")
package h5test
