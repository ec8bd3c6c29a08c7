package table

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// rowBatch is how many rows are written between cancellation checks.
const rowBatch = 1024

// CSVOptions controls WriteCSV.
type CSVOptions struct {
	// Delimiter separates fields. Zero means a comma.
	Delimiter rune
	// Header writes the column labels as the first record.
	Header bool
}

// DefaultCSVOptions matches pandas' to_csv(index=False).
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ',', Header: true}
}

// WriteCSV writes the table as delimited text with "\n" line endings and
// no row labels.
func (t *Table) WriteCSV(ctx context.Context, w io.Writer, opts CSVOptions) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	if opts.Header {
		if err := cw.Write(t.Columns()); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	record := make([]string, t.cols)
	for i := 0; i < t.rows; i++ {
		if i%rowBatch == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j := range record {
			record[j] = t.Format(i, j)
		}
		if t.cols == 1 && record[0] == "" {
			// A bare empty line would read back as no record at all.
			cw.Flush()
			if _, err := bw.WriteString("\"\"\n"); err != nil {
				return fmt.Errorf("writing row %d: %w", i, err)
			}
			continue
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}
