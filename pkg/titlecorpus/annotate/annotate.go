// Package annotate expands normalized records into one row per token using
// an external annotation engine.
package annotate

import (
	"context"
	"errors"
	"fmt"

	"github.com/cognicore/titlecorpus/internal/logger"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// ErrEngineUnavailable means no annotation engine could be loaded. It halts
// the pipeline.
var ErrEngineUnavailable = errors.New("annotation engine unavailable")

// Annotation is the per-token output of an engine.
type Annotation struct {
	Text       string `json:"text"`
	Lemma      string `json:"lemma"`
	POS        string `json:"pos"`
	Tag        string `json:"tag"`
	Dep        string `json:"dep"`
	Head       string `json:"head"`
	EntityType string `json:"ent_type,omitempty"`
}

// Engine annotates one text.
type Engine interface {
	Annotate(ctx context.Context, text string) ([]Annotation, error)
}

// Loader loads an engine for a model name.
type Loader interface {
	Load(ctx context.Context, model string) (Engine, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, model string) (Engine, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, model string) (Engine, error) {
	return f(ctx, model)
}

// Expander turns records into token rows.
type Expander struct {
	engine Engine
	log    *logger.Logger
}

// NewExpander creates an expander around a loaded engine.
func NewExpander(e Engine, l *logger.Logger) *Expander {
	return &Expander{engine: e, log: logger.OrDiscard(l).With("stage", "annotate")}
}

// Expand annotates the original title of each record and emits one token
// per engine token, in engine order, records in input order. Any engine
// failure aborts the stage without partial output.
func (x *Expander) Expand(ctx context.Context, records []record.Normalized) ([]record.Token, error) {
	if x.engine == nil {
		return nil, ErrEngineUnavailable
	}

	x.log.Info("annotation started", "titles", len(records))
	var tokens []record.Token
	for i, r := range records {
		anns, err := x.engine.Annotate(ctx, r.Title)
		if err != nil {
			return nil, fmt.Errorf("annotate record %s (%d/%d): %w", r.ID, i+1, len(records), err)
		}
		for _, a := range anns {
			tokens = append(tokens, toToken(r, a))
		}
	}
	x.log.Info("annotation finished", "titles", len(records), "tokens", len(tokens))
	if tokens == nil {
		tokens = []record.Token{}
	}
	return tokens, nil
}

func toToken(r record.Normalized, a Annotation) record.Token {
	return record.Token{
		ID:              r.ID,
		Timestamp:       r.Timestamp,
		OriginalTitle:   r.Title,
		NormalizedTitle: r.NormalizedTitle,
		Text:            a.Text,
		Lemma:           a.Lemma,
		POS:             a.POS,
		Tag:             a.Tag,
		Dep:             a.Dep,
		HeadText:        a.Head,
		EntityType:      a.EntityType,
	}
}
