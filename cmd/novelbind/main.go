// Command novelbind fetches a serialized web novel chapter by chapter,
// translates it, and binds the result into an e-book. Point it at the
// first chapter URL and it walks the rest of the sequence itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/novelbind/internal/api"
	"github.com/dgallion1/novelbind/internal/config"
	"github.com/dgallion1/novelbind/internal/pipeline"
	"github.com/dgallion1/novelbind/internal/translate"
)

func main() {
	var (
		url     = flag.String("url", "", "first chapter URL, ending in _<n>.html")
		pages   = flag.Int("pages", 0, "maximum number of pages to fetch (0 = until the site runs out)")
		delay   = flag.Duration("delay", 0, "minimum delay between page requests (default 300ms)")
		chunk   = flag.Int("chunk", 0, "maximum translation chunk size in characters (default 4800)")
		from    = flag.String("from", "", "source language code (default auto)")
		to      = flag.String("to", "", "target language code (default en)")
		out     = flag.String("out", "", "output directory (default output)")
		formats = flag.String("format", "epub", "comma-separated output formats: epub, docx")
		retries = flag.Int("retries", 0, "extra fetch attempts per page before skipping it")
		batch   = flag.String("batch", "", "YAML file describing multiple runs")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := config.Load()
	if *out != "" {
		cfg.OutputDir = *out
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr := translate.NewGoogleClient(cfg.TranslateEndpoint)
	defer tr.Close()
	driver := pipeline.NewDriver(tr, cfg, log)

	var err error
	switch {
	case *batch != "":
		err = runBatch(ctx, driver, log, *batch)
	case *url != "":
		params, perr := singleParams(*url, *pages, *delay, *chunk, *from, *to, *formats, *retries)
		if perr != nil {
			fatal(log, perr)
		}
		err = runOne(ctx, driver, log, params)
	default:
		fmt.Fprintln(os.Stderr, "usage: novelbind -url https://host/novel_2.html [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err != nil {
		fatal(log, err)
	}
}

func fatal(log *slog.Logger, err error) {
	log.Error("novelbind failed", "error", err)
	os.Exit(1)
}

func singleParams(url string, pages int, delay time.Duration, chunk int, from, to, formats string, retries int) (pipeline.Params, error) {
	base, start, ok := api.SplitChapterURL(url)
	if !ok {
		return pipeline.Params{}, fmt.Errorf("url %q must end with _<number>.html", url)
	}
	return pipeline.Params{
		BaseURL:      base,
		StartPage:    start,
		MaxPages:     pages,
		Delay:        delay,
		MaxChunkSize: chunk,
		SourceLang:   from,
		TargetLang:   to,
		Formats:      splitFormats(formats),
		FetchRetries: retries,
	}, nil
}

func splitFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func runOne(ctx context.Context, driver *pipeline.Driver, log *slog.Logger, params pipeline.Params) error {
	run := pipeline.NewRun(params)
	log.Info("starting run", "run_id", run.ID, "base_url", params.BaseURL, "start_page", params.StartPage)

	if err := driver.Process(ctx, run); err != nil {
		return err
	}

	snap := run.Snapshot()
	log.Info("run finished",
		"run_id", run.ID,
		"status", snap.Status,
		"title", snap.Title,
		"pages", snap.Progress.PagesFetched,
		"skipped", snap.Progress.PagesSkipped,
		"fallback_chunks", snap.Progress.ChunksFallback,
	)
	fmt.Println(snap.ArtifactPath)
	for _, path := range snap.Outputs {
		fmt.Println(path)
	}
	return nil
}

// batchFile is the YAML schema for -batch mode.
type batchFile struct {
	// Concurrency caps parallel runs; defaults to 2. Pages within one
	// run are always fetched sequentially.
	Concurrency int        `yaml:"concurrency"`
	Runs        []batchRun `yaml:"runs"`
}

type batchRun struct {
	URL       string   `yaml:"url"`
	BaseURL   string   `yaml:"base_url"`
	StartPage int      `yaml:"start_page"`
	Pages     int      `yaml:"pages"`
	DelayMS   int      `yaml:"delay_ms"`
	Chunk     int      `yaml:"chunk"`
	From      string   `yaml:"from"`
	To        string   `yaml:"to"`
	Formats   []string `yaml:"formats"`
	Retries   int      `yaml:"retries"`
}

func (b batchRun) params() (pipeline.Params, error) {
	params := pipeline.Params{
		BaseURL:      b.BaseURL,
		StartPage:    b.StartPage,
		MaxPages:     b.Pages,
		Delay:        time.Duration(b.DelayMS) * time.Millisecond,
		MaxChunkSize: b.Chunk,
		SourceLang:   b.From,
		TargetLang:   b.To,
		Formats:      b.Formats,
		FetchRetries: b.Retries,
	}
	if b.URL != "" {
		base, start, ok := api.SplitChapterURL(b.URL)
		if !ok {
			return pipeline.Params{}, fmt.Errorf("url %q must end with _<number>.html", b.URL)
		}
		params.BaseURL = base
		params.StartPage = start
	}
	if params.BaseURL == "" {
		return pipeline.Params{}, fmt.Errorf("run needs url or base_url")
	}
	return params, nil
}

func runBatch(ctx context.Context, driver *pipeline.Driver, log *slog.Logger, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}
	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}
	if len(bf.Runs) == 0 {
		return fmt.Errorf("batch file %s has no runs", path)
	}
	if bf.Concurrency <= 0 {
		bf.Concurrency = 2
	}

	// Validate everything up front so a typo on run 7 doesn't surface
	// after six novels have already been fetched.
	params := make([]pipeline.Params, len(bf.Runs))
	for i, br := range bf.Runs {
		p, err := br.params()
		if err != nil {
			return fmt.Errorf("run %d: %w", i+1, err)
		}
		params[i] = p
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.Concurrency)
	for _, p := range params {
		g.Go(func() error {
			return runOne(gctx, driver, log, p)
		})
	}
	return g.Wait()
}
