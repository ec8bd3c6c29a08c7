package hdf5

import (
	"errors"
	"fmt"
	"path"

	"github.com/robert-malhotra/h5csv/internal/dtype"
	"github.com/robert-malhotra/h5csv/internal/filter"
	"github.com/robert-malhotra/h5csv/internal/layout"
	"github.com/robert-malhotra/h5csv/internal/message"
	"github.com/robert-malhotra/h5csv/internal/object"
)

// Class is the datatype class of a dataset.
type Class = message.DatatypeClass

const (
	ClassInteger   = message.ClassFixedPoint
	ClassFloat     = message.ClassFloatPoint
	ClassString    = message.ClassString
	ClassCompound  = message.ClassCompound
	ClassReference = message.ClassReference
	ClassEnum      = message.ClassEnum
	ClassVarLen    = message.ClassVarLen
	ClassArray     = message.ClassArray
)

// Dataset is an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	header    *object.Header
	dataspace *message.Dataspace
	datatype  *message.Datatype
	layout    layout.Layout
}

func newDataset(f *File, p string, header *object.Header) (*Dataset, error) {
	ds := &Dataset{
		file:      f,
		path:      p,
		header:    header,
		dataspace: header.Dataspace(),
		datatype:  header.Datatype(),
	}
	if ds.dataspace == nil || ds.datatype == nil {
		return nil, fmt.Errorf("%s: dataset without dataspace or datatype: %w", p, object.ErrInvalidHeader)
	}

	var err error
	ds.layout, err = layout.New(layout.Spec{
		Layout:    header.DataLayout(),
		Dataspace: ds.dataspace,
		Datatype:  ds.datatype,
		Filters:   header.FilterPipeline(),
		Fill:      header.FillValue(),
	}, f.reader)
	if err != nil {
		if errors.Is(err, layout.ErrUnsupported) {
			return nil, fmt.Errorf("%s: %w: %w", p, ErrUnsupported, err)
		}
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return ds, nil
}

// Name returns the last component of the dataset's path.
func (d *Dataset) Name() string { return path.Base(d.path) }

// Path returns the absolute path the dataset was opened by.
func (d *Dataset) Path() string { return d.path }

// Shape returns the dimensions. Scalar datasets have an empty shape.
func (d *Dataset) Shape() []uint64 {
	return append([]uint64(nil), d.dataspace.Dimensions...)
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int { return d.dataspace.Rank() }

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 {
	// Opening the dataset already rejected counts that overflow.
	n, _ := d.dataspace.NumElements()
	return n
}

// Class returns the datatype class.
func (d *Dataset) Class() Class { return d.datatype.Class }

// ElementSize returns the size of one element in bytes.
func (d *Dataset) ElementSize() int { return int(d.datatype.Size) }

// Signed reports whether an integer dataset is signed.
func (d *Dataset) Signed() bool { return d.datatype.Signed }

// DType names the element type the way numpy does, e.g. "<f4".
func (d *Dataset) DType() string { return d.datatype.String() }

// Numeric reports whether ReadFloat64 can decode the element type.
func (d *Dataset) Numeric() bool { return dtype.Check(d.datatype) == nil }

// Layout names the storage class, e.g. "chunked".
func (d *Dataset) Layout() string { return d.layout.Class().String() }

// Filters names the filters in the dataset's pipeline in write order.
func (d *Dataset) Filters() []string {
	fp := d.header.FilterPipeline()
	if fp == nil {
		return nil
	}
	names := make([]string, len(fp.Filters))
	for i, f := range fp.Filters {
		names[i] = filter.Name(f.ID)
	}
	return names
}

// ReadRaw returns every element's bytes in row-major order.
func (d *Dataset) ReadRaw() ([]byte, error) {
	if d.file.closed {
		return nil, ErrClosed
	}
	raw, err := d.layout.Read()
	if err != nil {
		if errors.Is(err, layout.ErrUnsupported) || errors.Is(err, filter.ErrUnsupported) {
			return nil, fmt.Errorf("%s: %w: %w", d.path, ErrUnsupported, err)
		}
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return raw, nil
}

// ReadFloat64 returns every element widened to float64 in row-major
// order. Non-numeric types fail with ErrUnsupported and 64-bit integers
// beyond 2^53 with ErrInexact.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	if err := dtype.Check(d.datatype); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", d.path, ErrUnsupported, err)
	}
	raw, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	values, err := dtype.ToFloat64(d.datatype, raw, d.NumElements())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return values, nil
}
