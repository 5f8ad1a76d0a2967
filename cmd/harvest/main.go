// Command harvest collects post titles for a search term, filters and
// normalizes them, and writes a token-per-row annotated corpus.
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
	"slices"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/cognicore/titlecorpus/internal/logger"
	"github.com/cognicore/titlecorpus/internal/proseengine"
	"github.com/cognicore/titlecorpus/internal/reddit"
	"github.com/cognicore/titlecorpus/internal/report"
	"github.com/cognicore/titlecorpus/internal/spacyapi"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/annotate"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/collect"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/config"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/export"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/langgate"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/normalize"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/pipeline"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/stats"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/stoplist"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/store/sqlite"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
	exitNoData = 3
)

type options struct {
	configPath string
	rawIn      string
	logLevel   string
	dryRun     bool
	noColor    bool
}

// deps are collaborators tests may replace. Nil fields select the
// production implementation.
type deps struct {
	searcher collect.Searcher
	detector langgate.Detector
	stderr   io.Writer
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Run config YAML (optional, defaults to the reference run)")
	flag.StringVar(&opts.rawIn, "raw-in", "", "Process a raw JSON file instead of collecting")
	flag.StringVar(&opts.logLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "Print the query plan and exit")
	flag.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flag.Parse()

	if !isTerminal(os.Stdout) {
		opts.noColor = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, opts, os.Stdout, deps{})
	stop()
	os.Exit(code)
}

func run(ctx context.Context, opts options, out io.Writer, d deps) int {
	if d.stderr == nil {
		d.stderr = os.Stderr
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return exitUsage
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid config: %v", err)
		return exitUsage
	}
	lg := logger.NewWithWriter(d.stderr, cfg.LogLevel)
	printer := report.New(out, opts.noColor)

	if opts.dryRun {
		fmt.Fprintf(out, "term %q, target %d\n", cfg.Collect.Term, cfg.Collect.Target)
		for i, q := range collect.Plan(cfg.Collect.Term, cfg.Collect.Limit) {
			fmt.Fprintf(out, "%2d  %s\n", i+1, q)
		}
		return exitOK
	}

	live := opts.rawIn == ""
	if live && d.searcher == nil {
		if err := cfg.ValidateCredentials(); err != nil {
			log.Printf("Invalid config: %v", err)
			return exitUsage
		}
	}

	stops, err := loadStoplist(cfg, lg)
	if err != nil {
		log.Printf("Failed to load stoplist: %v", err)
		return exitUsage
	}

	p, err := buildPipeline(cfg, stops, lg, live, d)
	if err != nil {
		log.Printf("Failed to build pipeline: %v", err)
		return exitUsage
	}

	started := time.Now().UTC()
	var res *pipeline.Result
	if live {
		res, err = p.Run(ctx, cfg.Collect.Term, cfg.Collect.Target)
	} else {
		var raw []record.Raw
		raw, err = export.LoadRawJSON(opts.rawIn)
		if err == nil {
			res, err = p.RunFrom(ctx, raw)
		} else if errors.Is(err, internalerr.ErrNoData) {
			res = &pipeline.Result{HaltedAt: pipeline.StageCollect}
		}
	}

	printer.Funnel(res)
	printer.Status(res, err)
	if err != nil {
		return exitCode(err)
	}

	written, err := save(ctx, cfg, stops, res, started)
	printer.Saved(written...)
	if err != nil {
		log.Printf("Failed to save results: %v", err)
		return exitFailed
	}

	if cfg.Output.TopK > 0 {
		a := stats.NewAnalyzer()
		a.Process(res.Tokens)
		printer.TopLemmas(a.Snapshot(), min(cfg.Output.TopK, 10))
	}
	return exitOK
}

func buildPipeline(cfg config.Config, stops *stoplist.Lexicon, lg *logger.Logger, live bool, d deps) (*pipeline.Pipeline, error) {
	detector := d.detector
	if detector == nil {
		detector = langgate.WhatLang{}
	}

	pc := pipeline.Config{
		Gate:       langgate.New(detector, cfg.Language.MinLength, lg),
		Normalizer: normalize.New(stops),
		Loader:     newLoader(cfg.Annotate),
		Model:      cfg.Annotate.Model,
		Keywords:   cfg.Keywords,
		Language:   cfg.Language.Target,
		FoldTitles: cfg.FoldTitles,
		Logger:     lg,
	}

	if live {
		searcher := d.searcher
		if searcher == nil {
			client, err := reddit.New(reddit.Config{
				ClientID:     cfg.Reddit.ClientID,
				ClientSecret: cfg.Reddit.ClientSecret,
				UserAgent:    cfg.Reddit.UserAgent,
				Subreddit:    cfg.Reddit.Subreddit,
				Interval:     cfg.Collect.Interval,
			})
			if err != nil {
				return nil, err
			}
			searcher = client
		}
		pc.Collector = collect.New(searcher,
			collect.WithDelay(cfg.Collect.Delay),
			collect.WithLimit(cfg.Collect.Limit),
			collect.WithLogger(lg),
		)
	}
	return pipeline.New(pc), nil
}

func loadStoplist(cfg config.Config, lg *logger.Logger) (*stoplist.Lexicon, error) {
	if cfg.Stoplist != "" {
		return stoplist.Load(cfg.Stoplist)
	}
	stops, err := stoplist.Builtin(cfg.Language.Target)
	if errors.Is(err, stoplist.ErrUnknownLanguage) {
		lg.Warn("no builtin stoplist, keeping all words", "language", cfg.Language.Target)
		return stoplist.New(nil), nil
	}
	return stops, err
}

func newLoader(cfg config.Annotate) annotate.Loader {
	if cfg.Model == proseengine.ModelName {
		return proseengine.Loader{}
	}
	return &spacyapi.Client{BaseURL: cfg.Endpoint}
}

// save writes every configured artifact and returns the paths written.
// The CSV goes first so a later failure still leaves the corpus.
func save(ctx context.Context, cfg config.Config, stops *stoplist.Lexicon, res *pipeline.Result, started time.Time) ([]string, error) {
	var written []string
	if err := export.SaveTokensCSV(cfg.Output.CSV, res.Tokens); err != nil {
		return written, fmt.Errorf("save csv: %w", err)
	}
	written = append(written, cfg.Output.CSV)

	if cfg.Output.RawJSON != "" {
		if err := export.SaveRawJSON(cfg.Output.RawJSON, res.Raw); err != nil {
			return written, fmt.Errorf("save raw json: %w", err)
		}
		written = append(written, cfg.Output.RawJSON)
	}

	if cfg.Output.Stats != "" {
		a := stats.NewAnalyzer()
		a.Process(res.Tokens)
		snap := a.Snapshot()
		summary := snap.Summarize(cfg.Output.TopK)
		summary.Candidates = snap.StopCandidates(0, func(lemma string) bool {
			return stops.IsStop(lemma) || slices.Contains(cfg.Keywords, lemma)
		})
		if err := summary.SaveYAML(cfg.Output.Stats); err != nil {
			return written, fmt.Errorf("save stats: %w", err)
		}
		written = append(written, cfg.Output.Stats)
	}

	if cfg.Output.SQLite != "" {
		store, err := sqlite.Open(ctx, cfg.Output.SQLite)
		if err != nil {
			return written, fmt.Errorf("open sqlite: %w", err)
		}
		defer store.Close()
		run := sqlite.Run{
			Term:      cfg.Collect.Term,
			Language:  cfg.Language.Target,
			Model:     cfg.Annotate.Model,
			StartedAt: started,
		}
		if _, err := store.SaveRun(ctx, run, res.Kept, res.Tokens); err != nil {
			return written, fmt.Errorf("save run: %w", err)
		}
		written = append(written, cfg.Output.SQLite)
	}
	return written, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrNoData):
		return exitNoData
	case errors.Is(err, internalerr.ErrInvalidConfig):
		return exitUsage
	default:
		return exitFailed
	}
}
