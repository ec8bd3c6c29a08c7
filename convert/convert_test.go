package convert

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kshedden/gonpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5csv/internal/h5test"
	"github.com/robert-malhotra/h5csv/internal/message"
)

// fixture writes a file shaped like the ANN benchmark files: train, test
// and neighbors datasets plus a nested group.
func fixture(t *testing.T, format h5test.Format) string {
	t.Helper()
	f := h5test.New(format)
	root := f.Root()
	root.Dataset("train", message.NewFloatDatatype(4), []uint64{4, 3},
		[]float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5, 5.5},
		h5test.WithChunks(2, 3), h5test.WithShuffle(), h5test.WithCompression(4))
	root.Dataset("test", message.NewFloatDatatype(4), []uint64{2, 3},
		[]float64{0.1, 0, 255, 1e-05, -2, 1e16})
	root.Dataset("neighbors", message.NewIntDatatype(4, true), []uint64{2, 2}, []float64{3, 1, 0, 2})
	root.Dataset("cube", message.NewFloatDatatype(8), []uint64{2, 1, 2}, []float64{1, 2, 3, 4})
	root.Group("extra").Dataset("ids", message.NewIntDatatype(1, false), []uint64{3}, []float64{7, 8, 9})
	return f.WriteTemp(t, "bench.hdf5")
}

func options(input, key, output string) Options {
	opts := DefaultOptions()
	opts.Input, opts.Key, opts.Output = input, key, output
	return opts
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "fashion-mnist-784-euclidean.hdf5", opts.Input)
	assert.Equal(t, "test", opts.Key)
	assert.Equal(t, "fmnist-test.csv", opts.Output)
	assert.Equal(t, FormatCSV, opts.Format)
	assert.Equal(t, ',', opts.Delimiter)
	assert.True(t, opts.Header)
	assert.NoError(t, opts.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"empty input", func(o *Options) { o.Input = "" }},
		{"empty key", func(o *Options) { o.Key = "" }},
		{"empty output", func(o *Options) { o.Output = "" }},
		{"unknown format", func(o *Options) { o.Format = "parquet" }},
		{"quote delimiter", func(o *Options) { o.Delimiter = '"' }},
		{"newline delimiter", func(o *Options) { o.Delimiter = '\n' }},
		{"zero delimiter", func(o *Options) { o.Delimiter = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			assert.ErrorIs(t, opts.Validate(), ErrOptions)
		})
	}

	opts := DefaultOptions()
	opts.Format, opts.Delimiter = FormatNPY, 0
	assert.NoError(t, opts.Validate())
}

func TestConvert(t *testing.T) {
	for _, ff := range []struct {
		name   string
		format h5test.Format
	}{{"v0", h5test.FormatV0}, {"latest", h5test.FormatLatest}} {
		t.Run(ff.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.csv")
			var log bytes.Buffer
			res, err := Convert(context.Background(), options(fixture(t, ff.format), "test", out), &log)
			require.NoError(t, err)

			assert.Equal(t, 2, res.Rows)
			assert.Equal(t, 3, res.Cols)
			assert.Equal(t, []string{"cube", "extra", "neighbors", "test", "train"}, res.Keys)
			assert.Equal(t, out, res.Output)
			assert.Contains(t, log.String(), "datasets: [cube extra neighbors test train]\n")

			got, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, "0,1,2\n0.1,0.0,255.0\n1e-05,-2.0,1e+16\n", string(got))
			assert.EqualValues(t, len(got), res.Bytes)
		})
	}
}

func TestConvertChunkedMatchesContiguous(t *testing.T) {
	input := fixture(t, h5test.FormatLatest)
	dir := t.TempDir()

	opts := options(input, "train", filepath.Join(dir, "train.csv"))
	opts.Quiet = true
	_, err := Convert(context.Background(), opts, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, "0,1,2\n0.0,0.5,1.0\n1.5,2.0,2.5\n3.0,3.5,4.0\n4.5,5.0,5.5\n", string(got))
}

func TestConvertIntegersAndNestedKeys(t *testing.T) {
	input := fixture(t, h5test.FormatV0)
	dir := t.TempDir()

	opts := options(input, "neighbors", filepath.Join(dir, "n.csv"))
	opts.Header = false
	opts.Delimiter = '\t'
	_, err := Convert(context.Background(), opts, nil)
	require.NoError(t, err)
	got, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, "3\t1\n0\t2\n", string(got))

	opts = options(input, "/extra/ids", filepath.Join(dir, "ids.csv"))
	res, err := Convert(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 1, res.Cols)
	got, err = os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, "0\n7\n8\n9\n", string(got))
}

func TestConvertQuiet(t *testing.T) {
	opts := options(fixture(t, h5test.FormatLatest), "test", filepath.Join(t.TempDir(), "q.csv"))
	opts.Quiet = true
	var log bytes.Buffer
	_, err := Convert(context.Background(), opts, &log)
	require.NoError(t, err)
	assert.Empty(t, log.String())
}

func TestConvertNPY(t *testing.T) {
	opts := options(fixture(t, h5test.FormatLatest), "train", filepath.Join(t.TempDir(), "train.npy"))
	opts.Format = FormatNPY
	_, err := Convert(context.Background(), opts, nil)
	require.NoError(t, err)

	r, err := gonpy.NewFileReader(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, r.Shape)
	got, err := r.GetFloat32()
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5, 5.5}, got)
}

func TestConvertReplacesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(out, []byte("stale contents that are longer than the new file\n"), 0o600))

	_, err := Convert(context.Background(), options(fixture(t, h5test.FormatV0), "neighbors", out), nil)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "0,1\n3,1\n0,2\n", string(got))

	fi, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

// assertUntouched checks that dir holds exactly the named files, so no
// output or temporary file was left behind.
func assertUntouched(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	assert.ElementsMatch(t, names, got)
}

func TestConvertErrors(t *testing.T) {
	input := fixture(t, h5test.FormatLatest)
	notHDF5 := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(notHDF5, []byte("just some text, not a container"), 0o644))

	tests := []struct {
		name  string
		input string
		key   string
		want  error
	}{
		{"missing input", filepath.Join(t.TempDir(), "nope.hdf5"), "test", ErrNotFound},
		{"not hdf5", notHDF5, "test", ErrNotFound},
		{"input is a directory", t.TempDir(), "test", ErrNotFound},
		{"missing key", input, "validation", ErrKeyNotFound},
		{"key is a group", input, "extra", ErrKeyNotFound},
		{"key through a dataset", input, "test/x", ErrKeyNotFound},
		{"parent reference", input, "../test", ErrKeyNotFound},
		{"rank 3", input, "cube", ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			out := filepath.Join(dir, "out.csv")
			_, err := Convert(context.Background(), options(tt.input, tt.key, out), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			for _, other := range []error{ErrNotFound, ErrKeyNotFound, ErrShape, ErrWrite, ErrOptions} {
				if other != tt.want {
					assert.NotErrorIs(t, err, other)
				}
			}
			assertUntouched(t, dir)
		})
	}
}

func TestConvertKeyErrorListsKeys(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(out, []byte("keep me"), 0o644))

	_, err := Convert(context.Background(), options(fixture(t, h5test.FormatV0), "validation", out), nil)
	require.ErrorIs(t, err, ErrKeyNotFound)
	assert.Contains(t, err.Error(), `"validation"`)
	assert.Contains(t, err.Error(), "cube, extra, neighbors, test, train")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))
	assertUntouched(t, dir, "out.csv")
}

func TestConvertWriteErrors(t *testing.T) {
	input := fixture(t, h5test.FormatLatest)

	t.Run("missing directory", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "no", "such", "dir", "out.csv")
		_, err := Convert(context.Background(), options(input, "test", out), nil)
		assert.ErrorIs(t, err, ErrWrite)
	})

	t.Run("output is a directory", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "out.csv")
		require.NoError(t, os.Mkdir(out, 0o755))
		_, err := Convert(context.Background(), options(input, "test", out), nil)
		assert.ErrorIs(t, err, ErrWrite)
		assertUntouched(t, dir, "out.csv")
	})
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	_, err := Convert(ctx, options(fixture(t, h5test.FormatLatest), "test", filepath.Join(dir, "out.csv")), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assertUntouched(t, dir)
}

func TestConvertInvalidOptions(t *testing.T) {
	_, err := Convert(context.Background(), Options{}, nil)
	assert.ErrorIs(t, err, ErrOptions)
}

func TestCommitRemovesTempOnFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	_, err := commit(context.Background(), out, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return assert.AnError
	})
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, assert.AnError)
	assertUntouched(t, dir)
}
