// Package heap reads and writes HDF5 local heaps.
//
// An old-style group keeps its member names as NUL-terminated strings in a
// local heap (signature "HEAP"); symbol table entries and B-tree keys
// refer to names by their offset into the heap's data segment.
package heap
