package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5csv/internal/h5test"
	"github.com/robert-malhotra/h5csv/internal/message"
)

func fixture(t *testing.T) string {
	t.Helper()
	f := h5test.New(h5test.FormatLatest)
	root := f.Root()
	root.Dataset("test", message.NewFloatDatatype(4), []uint64{2, 2}, []float64{0.5, 1, 1.5, 2})
	root.Dataset("train", message.NewIntDatatype(2, true), []uint64{3, 1}, []float64{-1, 0, 1},
		h5test.WithChunks(2, 1), h5test.WithCompression(6))
	root.Dataset("cube", message.NewFloatDatatype(8), []uint64{1, 1, 1}, []float64{1})
	root.Group("meta").Dataset("ids", message.NewIntDatatype(1, false), []uint64{2}, []float64{4, 5})
	return f.WriteTemp(t, "fixture.hdf5")
}

type result struct {
	code           int
	stdout, stderr string
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestPositional(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	res := execute(t, fixture(t), "test", out)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stderr, "datasets: [cube meta test train]")
	assert.Equal(t, "0,1\n0.5,1.0\n1.5,2.0\n", readFile(t, out))
}

func TestFlags(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.tsv")
	res := execute(t, "-i", fixture(t), "-k", "train", "-o", out, "--delimiter", `\t`, "--header=false", "-q")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Empty(t, res.stderr)
	assert.Equal(t, "-1\n0\n1\n", readFile(t, out))
}

func TestEnvironment(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	t.Setenv("H5CSV_KEY", "meta/ids")
	t.Setenv("H5CSV_OUTPUT", out)
	t.Setenv("H5CSV_QUIET", "true")

	res := execute(t, "--input", fixture(t))
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "0\n4\n5\n", readFile(t, out))

	// Flags override the environment.
	res = execute(t, "--input", fixture(t), "--key", "train")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "0\n-1\n0\n1\n", readFile(t, out))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "h5csv.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("key: test\ndelimiter: \";\"\nheader: false\nquiet: true\n"), 0o644))

	out := filepath.Join(dir, "out.csv")
	res := execute(t, "--config", cfg, "--output", out, fixture(t))
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "0.5;1.0\n1.5;2.0\n", readFile(t, out))

	res = execute(t, "--config", filepath.Join(dir, "missing.yaml"), fixture(t))
	assert.Equal(t, exitUsage, res.code)
}

func TestDotEnv(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "from-env.csv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("H5CSV_KEY=train\nH5CSV_OUTPUT="+out+"\n"), 0o644))

	// Unset for the duration of the test; cleanup removes what .env adds.
	for _, name := range []string{"H5CSV_KEY", "H5CSV_OUTPUT"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	input := fixture(t)
	chdir(t, dir)

	res := execute(t, "-q", input)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "0\n-1\n0\n1\n", readFile(t, out))
}

func TestDefaultsMissingInput(t *testing.T) {
	chdir(t, t.TempDir())
	res := execute(t)
	assert.Equal(t, exitNotFound, res.code)
	assert.Contains(t, res.stderr, "fashion-mnist-784-euclidean.hdf5")
	_, err := os.Stat("fmnist-test.csv")
	assert.True(t, os.IsNotExist(err))
}

func TestExitCodes(t *testing.T) {
	input := fixture(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing input", []string{filepath.Join(dir, "missing.h5"), "test", out}, exitNotFound},
		{"missing key", []string{input, "validation", out}, exitKey},
		{"group key", []string{input, "meta", out}, exitKey},
		{"unwritable output", []string{input, "test", filepath.Join(dir, "no", "dir", "out.csv")}, exitWrite},
		{"rank 3", []string{input, "cube", out}, exitShape},
		{"too many args", []string{input, "test", out, "extra"}, exitUsage},
		{"unknown flag", []string{"--bogus"}, exitUsage},
		{"unknown format", []string{"--format", "xlsx", input, "test", out}, exitUsage},
		{"long delimiter", []string{"--delimiter", "::", input, "test", out}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, tt.args...)
			assert.Equal(t, tt.want, res.code, res.stderr)
			assert.Contains(t, res.stderr, "h5csv:")
		})
	}
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "failed runs must not create the output")
}

func TestNPYFormat(t *testing.T) {
	out := filepath.Join(t.TempDir(), "test.npy")
	res := execute(t, "--format", "NPY", "-q", fixture(t), "test", out)
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Equal(t, "\x93NUMPY", readFile(t, out)[:6])
}

func TestList(t *testing.T) {
	input := fixture(t)
	res := execute(t, "list", input)
	require.Equal(t, exitOK, res.code, res.stderr)

	assert.Contains(t, res.stdout, "(superblock version 3)\n/\n")
	assert.Contains(t, res.stdout, "  cube [1 1 1] <f8 contiguous\n")
	assert.Contains(t, res.stdout, "  meta/\n    ids [2] |u1 contiguous\n")
	assert.Contains(t, res.stdout, "  train [3 1] <i2 chunked [deflate]\n")

	res = execute(t, "list", filepath.Join(t.TempDir(), "missing.h5"))
	assert.Equal(t, exitNotFound, res.code)
}

func TestVersion(t *testing.T) {
	res := execute(t, "version")
	require.Equal(t, exitOK, res.code)
	assert.Equal(t, "h5csv dev\n", res.stdout)
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{",": ',', ";": ';', `\t`: '\t', "tab": '\t', "|": '|', "§": '§'} {
		got, err := parseDelimiter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "ab"} {
		_, err := parseDelimiter(in)
		assert.Error(t, err, in)
	}
}
