// Command stemvolume evaluates every published stem volume formula over a
// tree inventory and writes one volume column per formula.
//
// Usage:
//
//	stemvolume [flags] <input.csv> <output.(csv|xlsx)>
//	stemvolume -db runs.db migrate <up|down|status>
//	stemvolume -db runs.db runs <list|show <id>|delete <id>>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/stemvolume/internal/config"
	"github.com/banshee-data/stemvolume/internal/db"
	"github.com/banshee-data/stemvolume/internal/fsutil"
	"github.com/banshee-data/stemvolume/internal/monitoring"
	"github.com/banshee-data/stemvolume/internal/pipeline"
	"github.com/banshee-data/stemvolume/internal/report"
	"github.com/banshee-data/stemvolume/internal/version"
)

type options struct {
	configPath  string
	dbPath      string
	metricsFile string
	plotPath    string
	summary     bool
	quiet       bool
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	var o options
	fs := flag.NewFlagSet("stemvolume", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to a JSON config file (default "+config.DefaultConfigPath+" if present)")
	fs.StringVar(&o.dbPath, "db", "", "record the run in this sqlite database")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write run metrics to this node exporter textfile")
	fs.StringVar(&o.plotPath, "plot", "", "write a volume-vs-diameter chart (png, svg or pdf)")
	fs.BoolVar(&o.summary, "summary", false, "print per-formula statistics")
	fs.BoolVar(&o.quiet, "quiet", false, "suppress diagnostic logging")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: stemvolume [flags] <input.csv> <output.(csv|xlsx)>")
		fmt.Fprintln(stderr, "       stemvolume -db <path> migrate <up|down|status>")
		fmt.Fprintln(stderr, "       stemvolume -db <path> runs <list|show <id>|delete <id>>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &o, fs.Args(), nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	if (fsutil.OSFileSystem{}).Exists(config.DefaultConfigPath) {
		return config.LoadConfig(config.DefaultConfigPath)
	}
	return config.EmptyConfig(), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, rest, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if opts.quiet {
		monitoring.SetLogger(nil)
	}

	if len(rest) > 0 && (rest[0] == "migrate" || rest[0] == "runs") {
		if opts.dbPath == "" {
			return fmt.Errorf("%s requires -db", rest[0])
		}
		if rest[0] == "runs" {
			return db.RunRunsCommand(ctx, rest[1:], opts.dbPath, stdout)
		}
		return db.RunMigrateCommand(rest[1:], opts.dbPath, stdout)
	}
	if len(rest) != 2 {
		return fmt.Errorf("expected <input> and <output>, got %d arguments", len(rest))
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	pOpts := pipeline.Options{}
	if opts.metricsFile != "" {
		pOpts.Metrics = monitoring.NewMetrics()
	}
	if opts.dbPath != "" {
		store, err := db.NewDB(opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open run store: %w", err)
		}
		defer store.Close()
		pOpts.Store = store
	}

	p, err := pipeline.New(cfg, pOpts)
	if err != nil {
		return err
	}
	rep, err := p.Run(ctx, pipeline.Request{Input: rest[0], Output: rest[1], Plot: opts.plotPath})
	if err != nil {
		return err
	}

	if rep.RunID != "" {
		monitoring.Logf("recorded run %s", rep.RunID)
	}
	monitoring.Logf("evaluated %d rows: %d volumes computed, %d failed", rep.Rows, rep.Computed, rep.Failed)
	if opts.summary {
		if err := report.WriteSummary(stdout, rep.Summaries()); err != nil {
			return err
		}
	}
	if pOpts.Metrics != nil {
		if err := pOpts.Metrics.WriteTextfile(opts.metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		stop()
		log.Fatalf("stemvolume: %v", err)
	}
}
