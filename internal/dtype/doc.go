// Package dtype converts between raw HDF5 element bytes and Go numbers.
//
// Only the atomic numeric classes are handled:
//
//	HDF5 class   | sizes      | Go value
//	-------------|------------|---------------------------
//	fixed-point  | 1, 2, 4, 8 | int8..int64 or uint8..uint64
//	float        | 4, 8       | float32 or float64 (IEEE 754)
//
// Either byte order is accepted. Every element is widened to float64 for
// tabulation. 64-bit integers whose magnitude exceeds 2^53 have no exact
// float64 form and are rejected with ErrInexact rather than rounded.
package dtype
