// Package object reads HDF5 object headers.
//
// Every group and dataset has an object header holding a list of header
// messages. Version 1 headers (files written with the default library
// settings) are 8-byte aligned and unchecksummed; version 2 headers start
// with "OHDR" and end with a lookup3 checksum. Both versions may spill into
// continuation blocks, which [Read] follows transparently, guarding
// against cycles.
//
// [EncodeV1] and [EncodeV2] build headers for the test fixture builder.
package object
