package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/novelbind/internal/artifact"
	"github.com/dgallion1/novelbind/internal/book"
	"github.com/dgallion1/novelbind/internal/chunker"
	"github.com/dgallion1/novelbind/internal/config"
	"github.com/dgallion1/novelbind/internal/extract"
	"github.com/dgallion1/novelbind/internal/fetch"
	"github.com/dgallion1/novelbind/internal/translate"
)

// PageSource yields successive pages until fetch.ErrEndOfPages.
type PageSource interface {
	Next(ctx context.Context) (fetch.Page, error)
}

// Driver executes one run: pull pages from the source, extract paragraphs,
// translate in chunks, append to the artifact, and package the result.
// Pages are processed strictly sequentially; the artifact is the only state
// carried across iterations.
type Driver struct {
	translator translate.Translator
	cfg        config.Config
	log        *slog.Logger

	// Collaborators, replaceable in tests.
	newSource   func(opts fetch.Options, log *slog.Logger) PageSource
	extractPage func(rawHTML string) (extract.Result, error)
	packageBook func(title, lang string, paragraphs []string, basePath string, formats []string) (map[string]string, error)
}

// NewDriver wires the production collaborators.
func NewDriver(tr translate.Translator, cfg config.Config, log *slog.Logger) *Driver {
	return &Driver{
		translator: tr,
		cfg:        cfg,
		log:        log,
		newSource: func(opts fetch.Options, log *slog.Logger) PageSource {
			return fetch.NewCursor(opts, log)
		},
		extractPage: extract.Page,
		packageBook: book.WriteAll,
	}
}

// Process runs the full pipeline for a run. The returned error is non-nil
// only for fatal failures (artifact sink or packaging); per-page trouble is
// absorbed by skipping and translation trouble by verbatim fallback. The
// run's status mirrors the outcome either way.
func (d *Driver) Process(ctx context.Context, run *Run) error {
	params := d.normalize(run.Params)
	log := d.log.With("run_id", run.ID, "base_url", params.BaseURL)

	art, err := artifact.New(params.OutputDir, artifact.FallbackTitle(params.BaseURL))
	if err != nil {
		run.Fail(err)
		return err
	}
	defer art.Close()

	src := d.newSource(fetch.Options{
		BaseURL:   params.BaseURL,
		StartPage: params.StartPage,
		MaxPages:  params.MaxPages,
		Delay:     params.Delay,
		Retries:   params.FetchRetries,
	}, log)

	translateChunk := func(ctx context.Context, text string) (string, error) {
		return d.translator.Translate(ctx, text, params.SourceLang, params.TargetLang)
	}

	for {
		// Cancellation is honored between pages, never mid-page.
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("run canceled: %w", err)
			run.Fail(err)
			return err
		}

		run.SetStatus(StatusProbing)
		page, err := src.Next(ctx)
		if errors.Is(err, fetch.ErrEndOfPages) {
			break
		}
		if err != nil {
			// Skipped page: nothing appended, sequence continues.
			run.PageSkipped()
			continue
		}

		run.SetStatus(StatusExtracting)
		res, err := d.extractPage(page.Body)
		if err != nil {
			log.Warn("extraction failed, skipping page", "page", page.Index, "error", err)
			run.PageSkipped()
			continue
		}

		if res.Title != "" {
			set, err := art.SetTitleOnce(res.Title)
			if err != nil {
				run.Fail(err)
				return err
			}
			if set {
				run.SetTitle(res.Title)
				log.Info("title discovered", "title", res.Title, "page", page.Index)
			}
		}

		if len(res.Paragraphs) == 0 {
			log.Warn("no extractable content, skipping page", "page", page.Index)
			run.PageSkipped()
			continue
		}

		run.SetStatus(StatusTranslating)
		text, fallbacks := chunker.TranslateAll(ctx, res.Paragraphs, params.MaxChunkSize, translateChunk)
		if fallbacks > 0 {
			log.Warn("translation degraded", "page", page.Index, "fallback_chunks", fallbacks)
		}

		run.SetStatus(StatusAppending)
		if err := art.Append(text); err != nil {
			run.Fail(err)
			return err
		}
		run.PageFetched(page.Index, fallbacks)
		log.Info("page processed", "page", page.Index, "paragraphs", len(res.Paragraphs))
	}

	run.SetStatus(StatusPackaging)
	paragraphs, err := art.Paragraphs()
	if err != nil {
		run.Fail(err)
		return err
	}

	basePath := strings.TrimSuffix(art.Path(), ".txt")
	outputs, err := d.packageBook(art.Title(), params.TargetLang, paragraphs, basePath, params.Formats)
	if err != nil {
		err = fmt.Errorf("package document: %w", err)
		run.Fail(err)
		return err
	}

	snap := run.Snapshot()
	empty := snap.Progress.PagesFetched == 0
	run.Complete(art.Path(), outputs, empty)
	log.Info("run complete",
		"title", art.Title(),
		"pages", snap.Progress.PagesFetched,
		"skipped", snap.Progress.PagesSkipped,
		"empty", empty,
	)
	return nil
}

// normalize fills unset params from the configured defaults.
func (d *Driver) normalize(p Params) Params {
	if p.Delay == 0 {
		p.Delay = d.cfg.DefaultDelay
	}
	if p.MaxChunkSize <= 0 {
		p.MaxChunkSize = d.cfg.DefaultChunkSize
	}
	if p.SourceLang == "" {
		p.SourceLang = d.cfg.DefaultSource
	}
	if p.TargetLang == "" {
		p.TargetLang = d.cfg.DefaultTarget
	}
	if p.OutputDir == "" {
		p.OutputDir = d.cfg.OutputDir
	}
	if p.FetchRetries == 0 {
		p.FetchRetries = d.cfg.FetchRetries
	}
	return p
}
