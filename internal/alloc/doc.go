// Package alloc hands out file addresses while an HDF5 file is being
// assembled.
//
// Allocation is append-only: each block is placed at the current end of
// file, 8-byte aligned, and the end advances past it. Every block is
// recorded with a tag so a finished layout can be validated for overlaps:
//
//	a := alloc.New(superblock.SizeV0)
//	heapAddr := a.Alloc(88, "root heap")
//	if err := a.Validate(); err != nil { ... }
package alloc
