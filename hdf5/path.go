package hdf5

import (
	"fmt"
	"strings"
)

// SplitPath splits a slash-separated path into its components, ignoring
// leading, trailing and repeated slashes.
func SplitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// CleanPath normalizes p to an absolute path without a trailing slash.
func CleanPath(p string) string {
	return "/" + strings.Join(SplitPath(p), "/")
}

// joinPath appends name to a group path.
func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func checkComponents(parts []string) error {
	for _, p := range parts {
		if p == "." || p == ".." {
			return fmt.Errorf("%w: component %q", ErrInvalidPath, p)
		}
	}
	return nil
}
