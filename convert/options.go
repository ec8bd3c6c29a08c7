package convert

import (
	"fmt"
	"unicode/utf8"
)

// Output formats.
const (
	FormatCSV = "csv"
	FormatNPY = "npy"
)

// Defaults used when no input, key or output is given.
const (
	DefaultInput  = "fashion-mnist-784-euclidean.hdf5"
	DefaultKey    = "test"
	DefaultOutput = "fmnist-test.csv"
)

// Options configures one conversion.
type Options struct {
	Input  string // HDF5 file to read
	Key    string // dataset path relative to the root group
	Output string // file to create or replace
	Format string // FormatCSV or FormatNPY

	// Delimiter separates CSV fields.
	Delimiter rune
	// Header writes the column labels as the first CSV record.
	Header bool
	// Quiet suppresses the key listing and the summary line.
	Quiet bool
}

// DefaultOptions returns options that convert the "test" split of the
// Fashion-MNIST benchmark file to fmnist-test.csv.
func DefaultOptions() Options {
	return Options{
		Input:     DefaultInput,
		Key:       DefaultKey,
		Output:    DefaultOutput,
		Format:    FormatCSV,
		Delimiter: ',',
		Header:    true,
	}
}

// Validate reports option values Convert cannot act on.
func (o Options) Validate() error {
	switch {
	case o.Input == "":
		return fmt.Errorf("%w: input path is empty", ErrOptions)
	case o.Key == "":
		return fmt.Errorf("%w: dataset key is empty", ErrOptions)
	case o.Output == "":
		return fmt.Errorf("%w: output path is empty", ErrOptions)
	}
	switch o.Format {
	case FormatCSV, FormatNPY:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrOptions, o.Format)
	}
	if o.Format == FormatCSV && !validDelimiter(o.Delimiter) {
		return fmt.Errorf("%w: invalid delimiter %q", ErrOptions, o.Delimiter)
	}
	return nil
}

// validDelimiter mirrors the rules encoding/csv applies to Writer.Comma.
func validDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' &&
		utf8.ValidRune(r) && r != utf8.RuneError
}
