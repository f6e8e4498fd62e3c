// Command flatten converts a local XML catalog feed into a ;-delimited table.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JonMunkholm/catalogflat/internal/artifact"
	"github.com/JonMunkholm/catalogflat/internal/catalog"
	"github.com/JonMunkholm/catalogflat/internal/config"
	"github.com/JonMunkholm/catalogflat/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type flattenFlags struct {
	dialect   string
	out       string
	chunkSize int
	workers   int
	maxSize   int64
	logLevel  string
	verbose   bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	flags := &flattenFlags{
		dialect:   "auto",
		out:       "data_files",
		chunkSize: catalog.DefaultChunkSize,
		maxSize:   104857600,
		logLevel:  "warn",
	}
	// Environment supplies the defaults, flags override them.
	if cfg, err := config.Load(); err == nil {
		flags.out = cfg.Output.Dir
		flags.chunkSize = cfg.Processing.ChunkSize
		flags.workers = cfg.Processing.Workers
		flags.maxSize = cfg.Upload.MaxFileSize
	}

	cmd := &cobra.Command{
		Use:   "flatten <file>",
		Short: "Flatten an XML catalog feed into a ;-delimited table",
		Long: `Flatten reads an XML catalog feed (offer, product, 1C directory or
service dialect), normalizes every record and writes a UTF-8 table with a
byte order mark into the output directory. The path of the table is printed
on stdout. Use "-" to read the feed from stdin.

Examples:
  flatten feed.xml
  flatten --dialect russian --out /tmp/tables export.xml
  curl -s https://shop.example/yml.xml | flatten -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runFlatten(cmd.Context(), flags, args[0], stdin, stdout, stderr)
			if err != nil {
				fmt.Fprintln(stderr, "flatten:", describe(err))
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.dialect, "dialect", flags.dialect, `feed dialect: "auto", "offer", "product", "russian" or "service"`)
	f.StringVar(&flags.out, "out", flags.out, "directory the table is written to")
	f.IntVar(&flags.chunkSize, "chunk-size", flags.chunkSize, "records flattened per task")
	f.IntVar(&flags.workers, "workers", flags.workers, "chunks flattened at once (0 = GOMAXPROCS)")
	f.Int64Var(&flags.maxSize, "max-size", flags.maxSize, "maximum feed size in bytes (0 = unlimited)")
	f.StringVar(&flags.logLevel, "log-level", flags.logLevel, "log level: debug, info, warn, error")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "print every extraction warning")

	return cmd
}

func runFlatten(ctx context.Context, flags *flattenFlags, file string, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := logging.New(stderr, flags.logLevel, "text")

	hint, err := catalog.ParseDialect(flags.dialect)
	if err != nil {
		return err
	}

	src := stdin
	source := "stdin"
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open feed: %w", err)
		}
		defer fh.Close()
		src, source = fh, file
	}

	data, err := catalog.ReadLimited(src, flags.maxSize)
	if err != nil {
		return err
	}

	store, err := artifact.New(flags.out)
	if err != nil {
		return err
	}

	processor := catalog.NewProcessor(store, nil, catalog.Options{
		ChunkSize: flags.chunkSize,
		Workers:   flags.workers,
		Logger:    logger,
	})

	res, err := processor.Process(ctx, catalog.Input{Data: data, SourceName: source, Hint: hint})
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "%s: %d records, %d columns, %d warnings (%s, %s)\n",
		res.Dialect, res.Records, len(res.Columns), len(res.Warnings), res.Encoding, res.Duration.Round(time.Millisecond))
	if flags.verbose {
		for _, w := range res.Warnings {
			fmt.Fprintln(stderr, "  warning:", w.Error())
		}
	}
	fmt.Fprintln(stdout, res.Path)
	return nil
}

// describe prefers the coded user message and falls back to the raw error.
func describe(err error) string {
	if catalog.IsUserFacing(err) {
		return catalog.FormatUserError(err) + ": " + err.Error()
	}
	return err.Error()
}
