// Package filter implements the HDF5 chunk filters h5py applies by default:
// deflate (gzip), shuffle and fletcher32.
//
// A [Pipeline] is built from a dataset's filter pipeline message. Chunks
// are decoded by running the filters in reverse order, skipping any
// filter whose bit is set in the chunk's filter mask. Encode runs them
// forward and is used by the test fixture builder.
package filter
