// Package table holds a two-dimensional numeric array with positional
// column labels and writes it out as CSV or NPY.
package table

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/h5csv/hdf5"
)

// ErrShape reports a dataset that cannot be laid out as rows and columns
// of numbers.
var ErrShape = errors.New("dataset cannot be tabulated")

// Kind is the numeric family of the source elements. Values are always
// held as float64; Kind and the bit width decide how they are rendered.
type Kind int

const (
	Float Kind = iota
	Int
	Uint
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case Uint:
		return "uint"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Table is a rows-by-columns array of numbers. Columns are labelled by
// position: "0", "1", and so on.
type Table struct {
	rows, cols int
	m          *mat.Dense // nil when the table has no cells
	kind       Kind
	bits       int
}

// New wraps m. bits is the width of the source elements (8 to 64).
func New(m *mat.Dense, kind Kind, bits int) *Table {
	r, c := m.Dims()
	return &Table{rows: r, cols: c, m: m, kind: kind, bits: bits}
}

// Empty returns a table with no cells but the given shape, one of which
// must be zero. gonum matrices cannot have a zero dimension.
func Empty(rows, cols int, kind Kind, bits int) *Table {
	return &Table{rows: rows, cols: cols, kind: kind, bits: bits}
}

// FromDataset reads ds in full. A rank 2 dataset keeps its shape and a
// rank 1 dataset of N elements becomes N rows of one column. Other ranks
// and non-numeric element types fail with ErrShape.
func FromDataset(ds *hdf5.Dataset) (*Table, error) {
	shape := ds.Shape()
	var rows, cols uint64
	switch len(shape) {
	case 1:
		rows, cols = shape[0], 1
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("%w: %s has rank %d, need 1 or 2", ErrShape, ds.Path(), len(shape))
	}

	var kind Kind
	switch ds.Class() {
	case hdf5.ClassFloat:
		kind = Float
	case hdf5.ClassInteger:
		kind = Uint
		if ds.Signed() {
			kind = Int
		}
	default:
		return nil, fmt.Errorf("%w: %s holds %s elements", ErrShape, ds.Path(), ds.Class())
	}
	if !ds.Numeric() {
		return nil, fmt.Errorf("%w: %s has unsupported element type %s", ErrShape, ds.Path(), ds.DType())
	}
	if rows > math.MaxInt || cols > math.MaxInt {
		return nil, fmt.Errorf("%w: %s is %d x %d", ErrShape, ds.Path(), rows, cols)
	}
	width := 8 * ds.ElementSize()

	values, err := ds.ReadFloat64()
	if err != nil {
		if errors.Is(err, hdf5.ErrInexact) {
			return nil, fmt.Errorf("%w: %w", ErrShape, err)
		}
		return nil, err
	}
	if hi, n := bits.Mul64(rows, cols); hi != 0 || n != uint64(len(values)) {
		return nil, fmt.Errorf("%w: %s is %d x %d but holds %d values", ErrShape, ds.Path(), rows, cols, len(values))
	}
	if rows == 0 || cols == 0 {
		return Empty(int(rows), int(cols), kind, width), nil
	}
	return New(mat.NewDense(int(rows), int(cols), values), kind, width), nil
}

// Dims returns the number of rows and columns.
func (t *Table) Dims() (int, int) { return t.rows, t.cols }

// Kind returns the source element family.
func (t *Table) Kind() Kind { return t.kind }

// Bits returns the source element width.
func (t *Table) Bits() int { return t.bits }

// Matrix returns the underlying matrix, or nil for an empty table.
func (t *Table) Matrix() *mat.Dense { return t.m }

// Columns returns the positional column labels.
func (t *Table) Columns() []string {
	labels := make([]string, t.cols)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}

// At returns the value in row i, column j.
func (t *Table) At(i, j int) float64 { return t.m.At(i, j) }

// Format renders the value in row i, column j as it appears in CSV.
func (t *Table) Format(i, j int) string {
	return FormatValue(t.m.At(i, j), t.kind, t.bits)
}

// rowMajor returns every value in row-major order.
func (t *Table) rowMajor() []float64 {
	if t.m == nil {
		return nil
	}
	raw := t.m.RawMatrix()
	if raw.Stride == t.cols {
		return raw.Data[:t.rows*t.cols]
	}
	out := make([]float64, 0, t.rows*t.cols)
	for i := 0; i < t.rows; i++ {
		out = append(out, raw.Data[i*raw.Stride:i*raw.Stride+t.cols]...)
	}
	return out
}
