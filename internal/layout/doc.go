// Package layout reads a dataset's raw bytes according to its data layout
// message.
//
// Three storage classes are handled: compact (bytes inside the object
// header), contiguous (one block in the file) and chunked. Chunked data
// is located through a version 1 B-tree, a single-chunk index, an
// implicit index or a fixed array, decoded through the dataset's filter
// pipeline and assembled into one row-major buffer. Storage that was
// never written reads as the dataset's fill value.
package layout
