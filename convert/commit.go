package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/xid"
)

// countingWriter tracks how many bytes reach the file.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// tempName returns a hidden sibling of path that no other run will pick.
func tempName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+"."+xid.New().String()+".tmp")
}

// commit runs write against a temporary file next to path and renames it
// over path once everything is on disk. On failure the temporary file is
// removed and path is left as it was.
func commit(ctx context.Context, path string, write func(io.Writer) error) (n int64, err error) {
	mode := os.FileMode(0o666)
	if fi, statErr := os.Stat(path); statErr == nil {
		if fi.IsDir() {
			return 0, fmt.Errorf("%w: %s is a directory", ErrWrite, path)
		}
		mode = fi.Mode().Perm()
	}

	tmp := tempName(path)
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	cw := &countingWriter{w: f}
	bw := bufio.NewWriterSize(cw, 1<<16)
	if err := write(bw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return cw.n, nil
}
