package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robert-malhotra/h5csv/hdf5"
	"github.com/robert-malhotra/h5csv/table"
)

// Result describes a finished conversion.
type Result struct {
	Rows, Cols int
	Keys       []string // members of the root group
	Output     string
	Bytes      int64
}

// Convert reads the dataset opts.Key from opts.Input and writes it to
// opts.Output. The root group's members and a summary line go to w unless
// opts.Quiet is set; w may be nil.
//
// Output is replaced only after the new contents are fully written, so a
// failed run leaves any existing file untouched.
func Convert(ctx context.Context, opts Options, w io.Writer) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if w == nil || opts.Quiet {
		w = io.Discard
	}

	if _, err := os.Stat(opts.Input); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	f, err := hdf5.Open(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	defer f.Close()

	keys, err := f.Keys()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: listing root group: %w", ErrNotFound, opts.Input, err)
	}
	fmt.Fprintf(w, "datasets: [%s]\n", strings.Join(keys, " "))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := f.OpenDataset(opts.Key)
	if err != nil {
		return nil, keyError(opts, keys, err)
	}
	t, err := table.FromDataset(ds)
	if err != nil {
		if errors.Is(err, ErrShape) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: reading %s: %w", ErrNotFound, ds.Path(), err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := commit(ctx, opts.Output, func(out io.Writer) error {
		if opts.Format == FormatNPY {
			return t.WriteNPY(ctx, out)
		}
		return t.WriteCSV(ctx, out, table.CSVOptions{Delimiter: opts.Delimiter, Header: opts.Header})
	})
	if err != nil {
		return nil, err
	}

	rows, cols := t.Dims()
	fmt.Fprintf(w, "wrote %d rows x %d columns to %s (%d bytes)\n", rows, cols, opts.Output, n)
	return &Result{Rows: rows, Cols: cols, Keys: keys, Output: opts.Output, Bytes: n}, nil
}

// keyError classifies a failure to open the dataset. Paths that resolve to
// nothing, or to something other than a dataset, are key errors; anything
// else means the file itself could not be read.
func keyError(opts Options, keys []string, err error) error {
	switch {
	case errors.Is(err, hdf5.ErrNotFound),
		errors.Is(err, hdf5.ErrNotDataset),
		errors.Is(err, hdf5.ErrNotGroup),
		errors.Is(err, hdf5.ErrInvalidPath),
		errors.Is(err, hdf5.ErrLinkDepth):
		return fmt.Errorf("%w: %q in %s (available: %s): %w",
			ErrKeyNotFound, opts.Key, opts.Input, strings.Join(keys, ", "), err)
	}
	return fmt.Errorf("%w: %s: %w", ErrNotFound, opts.Input, err)
}
