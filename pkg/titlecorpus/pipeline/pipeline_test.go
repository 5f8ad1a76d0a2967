package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/annotate"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/collect"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/langgate"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/normalize"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/stoplist"
)

var (
	t2 = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	t1 = t2.Add(24 * time.Hour)
	t3 = t1.Add(24 * time.Hour)
)

type wordEngine struct{}

func (wordEngine) Annotate(_ context.Context, text string) ([]annotate.Annotation, error) {
	var out []annotate.Annotation
	for _, w := range strings.Fields(text) {
		out = append(out, annotate.Annotation{Text: w, Lemma: strings.ToLower(w), POS: "X"})
	}
	return out, nil
}

func okLoader() annotate.Loader {
	return annotate.LoaderFunc(func(context.Context, string) (annotate.Engine, error) {
		return wordEngine{}, nil
	})
}

// portuguese detects every title as Portuguese and counts calls.
type portuguese struct{ calls int }

func (p *portuguese) Detect(string) (string, error) {
	p.calls++
	return "pt", nil
}

func scenarioSearcher() collect.Searcher {
	served := false
	return collect.SearchFunc(func(context.Context, collect.Query) ([]collect.Hit, error) {
		if served {
			return nil, nil
		}
		served = true
		return []collect.Hit{
			{ID: "a", CreatedAt: t1, Title: "Petrobras anuncia lucro"},
			{ID: "b", CreatedAt: t2, Title: "PETR4 sobe"},
			{ID: "a", CreatedAt: t3, Title: "duplicate-id ignored"},
		}, nil
	})
}

func newPipeline(t *testing.T, c Collector, det langgate.Detector, loader annotate.Loader) *Pipeline {
	t.Helper()
	lex, err := stoplist.Builtin("pt")
	require.NoError(t, err)
	// The scenario titles are 10 and 23 runes; a lower threshold lets both
	// reach the detector.
	return New(Config{
		Collector:  c,
		Gate:       langgate.New(det, 5, nil),
		Normalizer: normalize.New(lex),
		Loader:     loader,
		Model:      "fake",
		Keywords:   []string{"petrobras", "petr4"},
		Language:   "pt",
	})
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestEndToEndScenario(t *testing.T) {
	det := &portuguese{}
	col := collect.New(scenarioSearcher(), collect.WithSleep(noSleep))
	p := newPipeline(t, col, det, okLoader())

	res, err := p.Run(context.Background(), "'Petrobras' OR 'PETR4'", 1000)
	require.NoError(t, err)

	require.Len(t, res.Raw, 2, "id a appears once")
	assert.Equal(t, "Petrobras anuncia lucro", res.Raw[0].Title)

	require.Len(t, res.Kept, 2)
	assert.Equal(t, "b", res.Kept[0].ID, "ordered by timestamp ascending")
	assert.Equal(t, "a", res.Kept[1].ID)

	require.Len(t, res.Normalized, 2)
	assert.Equal(t, "petr4 sobe", res.Normalized[0].NormalizedTitle)
	assert.Equal(t, "petrobras anuncia lucro", res.Normalized[1].NormalizedTitle)
	assert.Equal(t, 2, det.calls)

	perTitle := map[string]int{}
	for _, tok := range res.Tokens {
		perTitle[tok.ID]++
	}
	assert.GreaterOrEqual(t, perTitle["a"], 1)
	assert.GreaterOrEqual(t, perTitle["b"], 1)
	assert.Equal(t, "b", res.Tokens[0].ID)
	assert.Equal(t, "PETR4", res.Tokens[0].Text)

	var stages []string
	for _, s := range res.Funnel {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{StageCollect, StageKeyword, StageDedupe, StageLanguage, StageNormalize, StageAnnotate}, stages)
	assert.Empty(t, res.HaltedAt)
}

func TestEndToEndScenarioDefaultThreshold(t *testing.T) {
	lex, err := stoplist.Builtin("pt")
	require.NoError(t, err)
	det := &portuguese{}
	p := New(Config{
		Collector:  collect.New(scenarioSearcher(), collect.WithSleep(noSleep)),
		Gate:       langgate.New(det, langgate.DefaultMinLength, nil),
		Normalizer: normalize.New(lex),
		Loader:     okLoader(),
		Model:      "fake",
		Keywords:   []string{"petrobras", "petr4"},
		Language:   "pt",
	})

	res, err := p.Run(context.Background(), "'Petrobras' OR 'PETR4'", 1000)
	require.NoError(t, err)

	require.Len(t, res.Kept, 2, "both titles survive keyword and dedupe")
	// "PETR4 sobe" is exactly 10 runes: tagged unknown without detection.
	assert.Equal(t, 1, det.calls)
	require.Len(t, res.Detected, 1)
	assert.Equal(t, "a", res.Detected[0].ID)
	for _, tok := range res.Tokens {
		assert.Equal(t, "a", tok.ID)
	}
	assert.Contains(t, res.Funnel, StageCount{Stage: StageLanguage, Before: 2, After: 1})
}

func TestEmptyCollectionHalts(t *testing.T) {
	col := collect.New(scenarioSearcher(), collect.WithSleep(noSleep))
	loaded := false
	loader := annotate.LoaderFunc(func(context.Context, string) (annotate.Engine, error) {
		loaded = true
		return wordEngine{}, nil
	})
	p := newPipeline(t, col, &portuguese{}, loader)

	res, err := p.Run(context.Background(), "q", 0)
	assert.ErrorIs(t, err, internalerr.ErrNoData)
	require.NotNil(t, res)
	assert.Empty(t, res.Raw)
	assert.Empty(t, res.Tokens)
	assert.Equal(t, StageCollect, res.HaltedAt)
	assert.False(t, loaded, "engine not loaded when there is nothing to annotate")
}

func TestNoKeywordMatchHalts(t *testing.T) {
	p := newPipeline(t, nil, &portuguese{}, okLoader())
	p.cfg.Keywords = []string{"vale3"}

	res, err := p.RunFrom(context.Background(), []record.Raw{record.NewRaw("a", t1, "Petrobras anuncia lucro")})
	assert.ErrorIs(t, err, internalerr.ErrNoData)
	assert.Equal(t, StageKeyword, res.HaltedAt)
	assert.Contains(t, err.Error(), StageKeyword)
}

func TestNoTargetLanguageHalts(t *testing.T) {
	det := langgate.DetectorFunc(func(string) (string, error) { return "en", nil })
	p := newPipeline(t, nil, det, okLoader())

	res, err := p.RunFrom(context.Background(), []record.Raw{record.NewRaw("a", t1, "Petrobras reports profit")})
	assert.ErrorIs(t, err, internalerr.ErrNoData)
	assert.Equal(t, StageLanguage, res.HaltedAt)
	assert.Empty(t, res.Tokens)
}

func TestEngineUnavailableIsFatalBeforeLanguageGate(t *testing.T) {
	det := &portuguese{}
	loader := annotate.LoaderFunc(func(context.Context, string) (annotate.Engine, error) {
		return nil, annotate.ErrEngineUnavailable
	})
	p := newPipeline(t, nil, det, loader)

	res, err := p.RunFrom(context.Background(), []record.Raw{record.NewRaw("a", t1, "Petrobras anuncia lucro")})
	assert.ErrorIs(t, err, annotate.ErrEngineUnavailable)
	assert.Equal(t, StageAnnotate, res.HaltedAt)
	assert.Zero(t, det.calls, "fails fast before detection")
	assert.Empty(t, res.Tokens)
}

func TestNilLoaderIsUnavailable(t *testing.T) {
	p := newPipeline(t, nil, &portuguese{}, nil)
	_, err := p.RunFrom(context.Background(), []record.Raw{record.NewRaw("a", t1, "Petrobras anuncia lucro")})
	assert.ErrorIs(t, err, annotate.ErrEngineUnavailable)
}

type failingEngine struct{}

func (failingEngine) Annotate(context.Context, string) ([]annotate.Annotation, error) {
	return nil, errors.New("model crashed")
}

func TestAnnotationFailureHalts(t *testing.T) {
	loader := annotate.LoaderFunc(func(context.Context, string) (annotate.Engine, error) {
		return failingEngine{}, nil
	})
	p := newPipeline(t, nil, &portuguese{}, loader)

	res, err := p.RunFrom(context.Background(), []record.Raw{record.NewRaw("a", t1, "Petrobras anuncia lucro")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
	assert.Equal(t, StageAnnotate, res.HaltedAt)
	assert.Nil(t, res.Tokens)
}

func TestRunWithoutCollector(t *testing.T) {
	p := New(Config{})
	_, err := p.Run(context.Background(), "q", 10)
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestCollectorCancellation(t *testing.T) {
	col := collect.New(scenarioSearcher(), collect.WithSleep(func(context.Context, time.Duration) error {
		return context.Canceled
	}))
	p := newPipeline(t, col, &portuguese{}, okLoader())

	res, err := p.Run(context.Background(), "q", 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageCollect, res.HaltedAt)
	assert.Len(t, res.Raw, 2)
}
