// Package superblock locates and decodes the HDF5 superblock.
//
// The superblock is found by searching for the 8-byte signature at offset 0
// and then at every power of two from 512 upward. Versions 0 and 1 describe
// the root group through a symbol table entry whose scratch pad caches the
// root B-tree and local heap addresses; versions 2 and 3 point straight at
// the root object header and carry a lookup3 checksum.
//
// The package also writes version 0 and version 2 superblocks for the test
// fixture builder.
package superblock
