// Package convert extracts one dataset from an HDF5 file and writes it out
// as a table.
//
// Every error returned by Convert wraps exactly one of ErrNotFound,
// ErrKeyNotFound, ErrShape, ErrWrite or ErrOptions, except cancellation,
// which returns the context's error.
package convert

import (
	"errors"

	"github.com/robert-malhotra/h5csv/table"
)

var (
	// ErrNotFound means the input is missing or is not a readable HDF5 file.
	ErrNotFound = errors.New("input not found")
	// ErrKeyNotFound means the input has no dataset at the requested key.
	ErrKeyNotFound = errors.New("dataset key not found")
	// ErrShape means the dataset is not a one or two dimensional numeric
	// array.
	ErrShape = table.ErrShape
	// ErrWrite means the output could not be created or written.
	ErrWrite = errors.New("cannot write output")
	// ErrOptions means the options failed validation.
	ErrOptions = errors.New("invalid options")
)
