// Package pipeline runs the staged batch: collect, keyword filter, title
// deduplication, language gate, normalization and annotation.
package pipeline

import (
	"context"
	"fmt"

	"github.com/cognicore/titlecorpus/internal/logger"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/annotate"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/filter"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/langgate"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/normalize"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// Stage names, as reported in the funnel and in errors.
const (
	StageCollect   = "collect"
	StageKeyword   = "keyword"
	StageDedupe    = "dedupe"
	StageLanguage  = "language"
	StageNormalize = "normalize"
	StageAnnotate  = "annotate"
)

// Collector gathers raw records for a term.
type Collector interface {
	Collect(ctx context.Context, term string, target int) ([]record.Raw, error)
}

// Config wires the pipeline's collaborators and run parameters.
type Config struct {
	Collector  Collector
	Gate       *langgate.Gate
	Normalizer *normalize.Normalizer
	Loader     annotate.Loader
	Model      string
	Keywords   []string
	Language   string
	FoldTitles bool
	Logger     *logger.Logger
}

// Pipeline orchestrates one batch run.
type Pipeline struct {
	cfg Config
	log *logger.Logger
}

// New creates a pipeline. A nil Gate detects with whatlanggo and a nil
// Normalizer removes no stopwords.
func New(cfg Config) *Pipeline {
	log := logger.OrDiscard(cfg.Logger)
	if cfg.Gate == nil {
		cfg.Gate = langgate.New(langgate.WhatLang{}, 0, log)
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = normalize.New(nil)
	}
	return &Pipeline{cfg: cfg, log: log}
}

// StageCount records how many items entered and left a stage.
type StageCount struct {
	Stage  string
	Before int
	After  int
}

// Result holds every intermediate output of a run.
type Result struct {
	Raw        []record.Raw
	Kept       []record.Raw
	Detected   []record.Detected
	Normalized []record.Normalized
	Tokens     []record.Token
	Funnel     []StageCount
	HaltedAt   string
}

func (r *Result) count(stage string, before, after int) {
	r.Funnel = append(r.Funnel, StageCount{Stage: stage, Before: before, After: after})
}

// Run collects records for term and processes them. On ErrNoData or an
// engine failure the partial Result is returned with the error so the
// caller can report where yield was lost.
func (p *Pipeline) Run(ctx context.Context, term string, target int) (*Result, error) {
	if p.cfg.Collector == nil {
		return nil, fmt.Errorf("%w: no collector configured", internalerr.ErrInvalidConfig)
	}
	raw, err := p.cfg.Collector.Collect(ctx, term, target)
	if err != nil {
		return &Result{Raw: raw, HaltedAt: StageCollect}, fmt.Errorf("collect: %w", err)
	}
	return p.process(ctx, raw, true)
}

// RunFrom processes records collected earlier.
func (p *Pipeline) RunFrom(ctx context.Context, raw []record.Raw) (*Result, error) {
	return p.process(ctx, raw, false)
}

func (p *Pipeline) process(ctx context.Context, raw []record.Raw, collected bool) (*Result, error) {
	res := &Result{Raw: raw}
	if collected {
		res.count(StageCollect, len(raw), len(raw))
	}
	if len(raw) == 0 {
		return p.halt(res, StageCollect)
	}

	kept := filter.ByKeywords(raw, p.cfg.Keywords)
	p.stageDone(res, StageKeyword, len(raw), len(kept))
	if len(kept) == 0 {
		return p.halt(res, StageKeyword)
	}

	deduped := filter.ByEarliestTitle(kept, p.cfg.FoldTitles)
	p.stageDone(res, StageDedupe, len(kept), len(deduped))
	res.Kept = deduped

	engine, err := p.loadEngine(ctx)
	if err != nil {
		res.HaltedAt = StageAnnotate
		p.log.Error("annotation engine unavailable, halting", "model", p.cfg.Model, "err", err)
		return res, err
	}

	res.Detected = p.cfg.Gate.Filter(deduped, p.cfg.Language)
	p.stageDone(res, StageLanguage, len(deduped), len(res.Detected))
	if len(res.Detected) == 0 {
		return p.halt(res, StageLanguage)
	}

	res.Normalized = p.cfg.Normalizer.Records(res.Detected)
	p.stageDone(res, StageNormalize, len(res.Detected), len(res.Normalized))

	tokens, err := annotate.NewExpander(engine, p.log).Expand(ctx, res.Normalized)
	if err != nil {
		res.HaltedAt = StageAnnotate
		return res, fmt.Errorf("annotate: %w", err)
	}
	res.Tokens = tokens
	p.stageDone(res, StageAnnotate, len(res.Normalized), len(tokens))
	if len(tokens) == 0 {
		return p.halt(res, StageAnnotate)
	}
	return res, nil
}

func (p *Pipeline) loadEngine(ctx context.Context) (annotate.Engine, error) {
	if p.cfg.Loader == nil {
		return nil, fmt.Errorf("%w: no loader configured", annotate.ErrEngineUnavailable)
	}
	engine, err := p.cfg.Loader.Load(ctx, p.cfg.Model)
	if err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: loader returned no engine for %q", annotate.ErrEngineUnavailable, p.cfg.Model)
	}
	return engine, nil
}

func (p *Pipeline) stageDone(res *Result, stage string, before, after int) {
	res.count(stage, before, after)
	p.log.Info("stage complete", "stage", stage, "before", before, "after", after)
}

func (p *Pipeline) halt(res *Result, stage string) (*Result, error) {
	res.HaltedAt = stage
	p.log.Warn("nothing to do, halting", "stage", stage)
	return res, fmt.Errorf("%w: no records left after %s", internalerr.ErrNoData, stage)
}
