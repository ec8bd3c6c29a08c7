package convert

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5csv/internal/h5test"
	"github.com/robert-malhotra/h5csv/internal/message"
)

// awkward returns n values spread over many decimal exponents, none of
// which has a short decimal form.
func awkward(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		scale := math.Pow(10, float64(i%13-6))
		out[i] = math.Sin(float64(i)+0.3) * scale / 3
	}
	return out
}

// readCSV parses path and returns its records after the header.
func readCSV(t *testing.T, path string, cols int) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)

	header := records[0]
	require.Len(t, header, cols)
	for j, label := range header {
		assert.Equal(t, strconv.Itoa(j), label)
	}
	return records[1:]
}

func TestConvertRoundTrip(t *testing.T) {
	const rows, cols = 37, 5
	train := awkward(rows * cols)
	test := awkward(rows * cols)
	for i := range test {
		test[i] = test[i]*1e9 + 1/float64(i+3)
	}

	for _, ff := range formats {
		t.Run(ff.name, func(t *testing.T) {
			f := h5test.New(ff.format)
			f.Root().Dataset("train", message.NewFloatDatatype(4), []uint64{rows, cols}, train,
				h5test.WithChunks(8, 2), h5test.WithShuffle(), h5test.WithCompression(5))
			f.Root().Dataset("test", message.NewFloatDatatype(8), []uint64{rows, cols}, test)
			input := f.WriteTemp(t, "roundtrip.hdf5")
			dir := t.TempDir()

			for _, ds := range []struct {
				key    string
				bits   int
				values []float64
			}{
				{"train", 32, train},
				{"test", 64, test},
			} {
				opts := options(input, ds.key, filepath.Join(dir, ds.key+".csv"))
				opts.Quiet = true
				_, err := Convert(context.Background(), opts, nil)
				require.NoError(t, err)

				records := readCSV(t, opts.Output, cols)
				require.Len(t, records, rows)
				for i, rec := range records {
					require.Len(t, rec, cols)
					for j, field := range rec {
						got, err := strconv.ParseFloat(field, ds.bits)
						require.NoError(t, err, "%s[%d][%d] = %q", ds.key, i, j, field)
						want := ds.values[i*cols+j]
						if ds.bits == 32 {
							assert.Equal(t, float32(want), float32(got), "%s[%d][%d] = %q", ds.key, i, j, field)
						} else {
							assert.Equal(t, want, got, "%s[%d][%d] = %q", ds.key, i, j, field)
						}
					}
				}
			}
		})
	}
}

var formats = []struct {
	name   string
	format h5test.Format
}{
	{"v0", h5test.FormatV0},
	{"latest", h5test.FormatLatest},
}

func TestConvertIdempotent(t *testing.T) {
	input := fixture(t, h5test.FormatLatest)
	out := filepath.Join(t.TempDir(), "train.csv")
	opts := options(input, "train", out)
	opts.Quiet = true

	_, err := Convert(context.Background(), opts, nil)
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)

	_, err = Convert(context.Background(), opts, nil)
	require.NoError(t, err)
	second, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestConvertSingleColumnNaN(t *testing.T) {
	f := h5test.New(h5test.FormatLatest)
	f.Root().Dataset("v", message.NewFloatDatatype(8), []uint64{3}, []float64{1, math.NaN(), 2})
	out := filepath.Join(t.TempDir(), "v.csv")

	_, err := Convert(context.Background(), options(f.WriteTemp(t, "nan.hdf5"), "v", out), nil)
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "0\n1.0\n\"\"\n2.0\n", string(got))

	records, err := csv.NewReader(bytes.NewReader(got)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0"}, {"1.0"}, {""}, {"2.0"}}, records)
}

func TestConvertOverflowingShape(t *testing.T) {
	f := h5test.New(h5test.FormatLatest)
	f.Root().RawDataset("huge", message.NewFloatDatatype(4), []uint64{1 << 32, 1 << 32}, nil, h5test.Unallocated())
	dir := t.TempDir()

	_, err := Convert(context.Background(), options(f.WriteTemp(t, "huge.hdf5"), "huge", filepath.Join(dir, "out.csv")), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
	assertUntouched(t, dir)
}
