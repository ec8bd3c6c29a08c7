// Package btree walks version 1 B-trees (signature "TREE").
//
// Type 0 trees index the members of an old-style group: their leaves point
// at symbol table nodes ("SNOD") whose entries name members through the
// group's local heap. Type 1 trees index the chunks of a chunked dataset:
// each key carries the chunk's stored size, filter mask and logical
// offset, and each leaf child is the chunk's file address.
//
// The writers build single-level trees for the test fixture builder.
package btree
