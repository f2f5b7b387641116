package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/JonMunkholm/filterframes/internal/core"
	"github.com/JonMunkholm/filterframes/internal/dtaselect"
	"github.com/JonMunkholm/filterframes/internal/logging"
	"golang.org/x/sync/errgroup"
)

const usage = `usage: filterframes <command> [flags] file...

commands:
  summary    print row counts, groups and scan files of each report
  normalize  parse and re-serialize reports
  split      write the protein and peptide tables of each report as TSV

run "filterframes <command> -h" for command flags
`

// run executes the command line and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "summary":
		err = runSummary(rest, stdout, stderr)
	case "normalize":
		err = runNormalize(rest, stdout, stderr)
	case "split":
		err = runSplit(rest, stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "filterframes %s\n", dtaselect.Version)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "filterframes %s: %v\n", cmd, err)
		return 1
	}
}

var errUsage = errors.New("usage")

// commonFlags are accepted by every command.
type commonFlags struct {
	logLevel string
	jobs     int
}

func newFlagSet(name string, stderr io.Writer, c *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.IntVar(&c.jobs, "j", runtime.NumCPU(), "number of reports processed in parallel")
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, c *commonFlags, stderr io.Writer) ([]string, *slog.Logger, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, errUsage
	}
	if fs.NArg() == 0 {
		fmt.Fprintf(stderr, "%s: no input files\n", fs.Name())
		fs.Usage()
		return nil, nil, errUsage
	}
	if c.jobs < 1 {
		c.jobs = 1
	}
	return fs.Args(), logging.New(stderr, c.logLevel, "text"), nil
}

// parseFile parses one report, skipping a byte order mark and decoding
// UTF-16 files.
func parseFile(path string) (*dtaselect.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rep, err := dtaselect.ParseReader(core.WrapForStreaming(f, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rep, nil
}

// forEach parses every path with at most jobs reports in flight and calls fn
// with the results in input order.
func forEach(ctx context.Context, paths []string, jobs int, log *slog.Logger, fn func(path string, rep *dtaselect.Report) error) error {
	reports := make([]*dtaselect.Report, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep, err := parseFile(path)
			if err != nil {
				return err
			}
			log.Debug("parsed report", "path", path,
				"proteins", rep.Proteins.Len(), "peptides", rep.Peptides.Len())
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range paths {
		if err := fn(path, reports[i]); err != nil {
			return err
		}
	}
	return nil
}

func runSummary(args []string, stdout, stderr io.Writer) error {
	var c commonFlags
	fs := newFlagSet("summary", stderr, &c)
	asJSON := fs.Bool("json", false, "print one JSON object per report")
	paths, log, err := parseFlags(fs, args, &c, stderr)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	return forEach(context.Background(), paths, c.jobs, log, func(path string, rep *dtaselect.Report) error {
		sum := rep.Summarize()
		if *asJSON {
			return enc.Encode(struct {
				File string `json:"file"`
				dtaselect.Summary
			}{path, sum})
		}
		_, err := fmt.Fprintf(stdout, "%s\tproteins=%d\tpeptides=%d\tgroups=%d\tscan_files=%s\n",
			path, sum.Proteins, sum.Peptides, sum.Groups, strings.Join(sum.ScanFiles, ","))
		return err
	})
}

func runNormalize(args []string, stdout, stderr io.Writer) error {
	var c commonFlags
	fs := newFlagSet("normalize", stderr, &c)
	out := fs.String("o", "", "output file for a single report (default stdout)")
	outDir := fs.String("outdir", "", "output directory, required for several reports")
	paths, log, err := parseFlags(fs, args, &c, stderr)
	if err != nil {
		return err
	}
	if len(paths) > 1 && *outDir == "" {
		fmt.Fprintln(stderr, "normalize: -outdir is required for several reports")
		return errUsage
	}

	return forEach(context.Background(), paths, c.jobs, log, func(path string, rep *dtaselect.Report) error {
		text, err := dtaselect.Serialize(rep)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		switch {
		case *outDir != "":
			dst := filepath.Join(*outDir, filepath.Base(path))
			log.Info("writing report", "path", dst)
			return writeFile(dst, func(w io.Writer) error {
				_, err := io.WriteString(w, text)
				return err
			})
		case *out != "":
			return writeFile(*out, func(w io.Writer) error {
				_, err := io.WriteString(w, text)
				return err
			})
		default:
			_, err := io.WriteString(stdout, text)
			return err
		}
	})
}

func runSplit(args []string, stdout, stderr io.Writer) error {
	var c commonFlags
	fs := newFlagSet("split", stderr, &c)
	outDir := fs.String("outdir", ".", "output directory")
	paths, log, err := parseFlags(fs, args, &c, stderr)
	if err != nil {
		return err
	}

	return forEach(context.Background(), paths, c.jobs, log, func(path string, rep *dtaselect.Report) error {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for _, t := range []struct {
			suffix string
			table  *dtaselect.Table
		}{
			{".proteins.tsv", rep.Proteins},
			{".peptides.tsv", rep.Peptides},
		} {
			dst := filepath.Join(*outDir, base+t.suffix)
			if err := writeFile(dst, func(w io.Writer) error { return writeTSV(w, t.table) }); err != nil {
				return err
			}
			log.Info("wrote table", "path", dst, "rows", t.table.Len())
			fmt.Fprintln(stdout, dst)
		}
		return nil
	})
}

// writeTSV writes a table with a leading group column.
func writeTSV(w io.Writer, t *dtaselect.Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := append([]string{dtaselect.ProteinGroup}, t.Schema.Names()...)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range t.Rows {
		record[0] = strconv.Itoa(row.Group)
		for i, v := range row.Cells {
			record[i+1] = v.Format()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFile writes through a temporary file renamed into place, so a failed
// write never leaves a truncated output behind.
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
