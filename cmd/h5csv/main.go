// Package main is the h5csv command line tool. It converts one dataset of
// an HDF5 file to CSV:
//
//	h5csv fashion-mnist-784-euclidean.hdf5 test fmnist-test.csv
//	h5csv --input data.h5 --key train --format npy --output train.npy
//	h5csv list data.h5
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robert-malhotra/h5csv/convert"
)

// version is set at build time via ldflags.
var version = "dev"

// Exit statuses.
const (
	exitOK       = 0
	exitUsage    = 1
	exitNotFound = 2
	exitKey      = 3
	exitWrite    = 4
	exitShape    = 5
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, convert.ErrNotFound):
		return exitNotFound
	case errors.Is(err, convert.ErrKeyNotFound):
		return exitKey
	case errors.Is(err, convert.ErrWrite):
		return exitWrite
	case errors.Is(err, convert.ErrShape):
		return exitShape
	}
	return exitUsage
}

// app carries the per-invocation state shared by the commands.
type app struct {
	v              *viper.Viper
	stdout, stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	defaults := convert.DefaultOptions()

	root := &cobra.Command{
		Use:   "h5csv [INPUT [KEY [OUTPUT]]]",
		Short: "Convert an HDF5 dataset to CSV",
		Long: `h5csv reads one dataset from an HDF5 file and writes it as a table with
positional column labels, one row per record.

Flags take precedence over H5CSV_* environment variables, which take
precedence over h5csv.yaml in the working directory or ~/.config/h5csv.
A .env file in the working directory is loaded first.`,
		Args:          cobra.MaximumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		RunE: a.runConvert,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: ./h5csv.yaml or ~/.config/h5csv/h5csv.yaml)")
	pf.StringP("input", "i", defaults.Input, "HDF5 file to read")

	f := root.Flags()
	f.StringP("key", "k", defaults.Key, "dataset path within the file")
	f.StringP("output", "o", defaults.Output, "file to create or replace")
	f.String("format", defaults.Format, "output format: csv or npy")
	f.String("delimiter", string(defaults.Delimiter), `CSV field delimiter ("\t" for tab)`)
	f.Bool("header", defaults.Header, "write column labels as the first CSV record")
	f.BoolP("quiet", "q", false, "do not print the key listing or summary")

	for _, name := range []string{"input", "key", "output", "format", "delimiter", "header", "quiet"} {
		flag := root.Flags().Lookup(name)
		if flag == nil {
			flag = pf.Lookup(name)
		}
		// Lookup only fails for names not registered above.
		_ = a.v.BindPFlag(name, flag)
	}

	root.AddCommand(newListCmd(a), newVersionCmd(a))
	return root
}

// loadConfig reads .env and the config file into the app's viper.
func (a *app) loadConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	v := a.v
	v.SetEnvPrefix("H5CSV")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		return nil
	}

	v.SetConfigName("h5csv")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "h5csv"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// options resolves the conversion options. Positional arguments win over
// every other source.
func (a *app) options(args []string) (convert.Options, error) {
	v := a.v
	opts := convert.Options{
		Input:  v.GetString("input"),
		Key:    v.GetString("key"),
		Output: v.GetString("output"),
		Format: strings.ToLower(v.GetString("format")),
		Header: v.GetBool("header"),
		Quiet:  v.GetBool("quiet"),
	}
	delim, err := parseDelimiter(v.GetString("delimiter"))
	if err != nil {
		return opts, err
	}
	opts.Delimiter = delim

	for i, arg := range args {
		switch i {
		case 0:
			opts.Input = arg
		case 1:
			opts.Key = arg
		case 2:
			opts.Output = arg
		}
	}
	return opts, opts.Validate()
}

// parseDelimiter accepts a single character or the escapes \t and tab.
func parseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if s == "" || size != len(s) {
		return 0, fmt.Errorf("%w: delimiter must be one character, got %q", convert.ErrOptions, s)
	}
	return r, nil
}

func (a *app) runConvert(cmd *cobra.Command, args []string) error {
	opts, err := a.options(args)
	if err != nil {
		return err
	}
	_, err = convert.Convert(cmd.Context(), opts, a.stderr)
	return err
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "h5csv:", err)
	}
	return exitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
