package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5csv/convert"
	"github.com/robert-malhotra/h5csv/hdf5"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [INPUT]",
		Short: "List the groups and datasets in an HDF5 file",
		Long: `List walks the file and prints every group and dataset with its shape,
element type, storage layout and filters. Objects that cannot be opened
are reported on stderr and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := a.v.GetString("input")
			if len(args) == 1 {
				input = args[0]
			}
			return a.list(input)
		},
	}
}

func (a *app) list(input string) error {
	f, err := hdf5.Open(input)
	if err != nil {
		return fmt.Errorf("%w: %w", convert.ErrNotFound, err)
	}
	defer f.Close()

	fmt.Fprintf(a.stdout, "%s (superblock version %d)\n", f.Path(), f.Version())
	return hdf5.Walk(f.Root(), func(p string, obj any, err error) error {
		indent := strings.Repeat("  ", depth(p))
		switch o := obj.(type) {
		case *hdf5.Group:
			if p == "/" {
				fmt.Fprintln(a.stdout, "/")
				break
			}
			fmt.Fprintf(a.stdout, "%s%s/\n", indent, o.Name())
		case *hdf5.Dataset:
			fmt.Fprintf(a.stdout, "%s%s %v %s %s", indent, o.Name(), o.Shape(), o.DType(), o.Layout())
			if filters := o.Filters(); len(filters) > 0 {
				fmt.Fprintf(a.stdout, " [%s]", strings.Join(filters, ", "))
			}
			fmt.Fprintln(a.stdout)
		default:
			fmt.Fprintf(a.stderr, "%s: %v\n", p, err)
		}
		return nil
	})
}

// depth is the number of components in an absolute path; "/" is 0.
func depth(p string) int {
	if p == "/" {
		return 0
	}
	return strings.Count(path.Clean(p), "/")
}
