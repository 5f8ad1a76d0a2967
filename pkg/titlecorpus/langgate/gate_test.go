package langgate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

type countingDetector struct {
	calls []string
	lang  string
	err   error
}

func (d *countingDetector) Detect(text string) (string, error) {
	d.calls = append(d.calls, text)
	return d.lang, d.err
}

func raw(id, title string) record.Raw {
	return record.NewRaw(id, time.Unix(1700000000, 0), title)
}

func TestLanguageLengthBoundary(t *testing.T) {
	det := &countingDetector{lang: "pt"}
	g := New(det, 0, nil)

	assert.Equal(t, record.LangUnknown, g.Language("abcdefghij"), "exactly 10 chars is not detected")
	assert.Empty(t, det.calls)

	assert.Equal(t, "pt", g.Language("abcdefghijk"), "11 chars goes to detection")
	assert.Equal(t, []string{"abcdefghijk"}, det.calls)
}

func TestLanguageCountsRunesAfterTrim(t *testing.T) {
	det := &countingDetector{lang: "pt"}
	g := New(det, 10, nil)

	// ten accented runes, more than ten bytes
	assert.Equal(t, record.LangUnknown, g.Language("ãçãçãçãçãç"))
	assert.Equal(t, record.LangUnknown, g.Language("   curto   "))
	assert.Equal(t, record.LangUnknown, g.Language(""))
	assert.Empty(t, det.calls)
}

func TestLanguageDetectionError(t *testing.T) {
	g := New(&countingDetector{err: errors.New("no features")}, 10, nil)
	assert.Equal(t, record.LangError, g.Language("1234567890123"))
}

func TestFilterKeepsOnlyTarget(t *testing.T) {
	det := DetectorFunc(func(text string) (string, error) {
		switch text {
		case "Petrobras anuncia lucro recorde":
			return "pt", nil
		case "Petrobras reports record profit":
			return "en", nil
		default:
			return "", errors.New("undetectable")
		}
	})
	g := New(det, 10, nil)

	records := []record.Raw{
		raw("pt", "Petrobras anuncia lucro recorde"),
		raw("en", "Petrobras reports record profit"),
		raw("short", "PETR4 sobe"),
		raw("err", "#### 1234 ####"),
	}

	got := g.Filter(records, "pt")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "pt", got[0].ID)
		assert.Equal(t, "pt", got[0].Language)
	}

	all := g.Classify(records)
	langs := make([]string, len(all))
	for i, d := range all {
		langs[i] = d.Language
	}
	assert.Equal(t, []string{"pt", "en", record.LangUnknown, record.LangError}, langs)
}

func TestFilterShortTitleNotInTarget(t *testing.T) {
	g := New(&countingDetector{lang: "pt"}, 10, nil)
	got := g.Filter([]record.Raw{raw("a", "curto")}, "pt")
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestFilterSentinelTargetsKeepNothing(t *testing.T) {
	g := New(&countingDetector{err: errors.New("no features")}, 10, nil)
	in := []record.Raw{
		raw("short", "curto"),
		raw("failed", "a long enough title here"),
	}

	langs := make([]string, 0, len(in))
	for _, d := range g.Classify(in) {
		langs = append(langs, d.Language)
	}
	assert.Equal(t, []string{record.LangUnknown, record.LangError}, langs)

	for _, target := range []string{record.LangUnknown, record.LangError} {
		t.Run(target, func(t *testing.T) {
			got := g.Filter(in, target)
			assert.Empty(t, got)
			assert.NotNil(t, got)
		})
	}
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel(record.LangUnknown))
	assert.True(t, IsSentinel(record.LangError))
	assert.False(t, IsSentinel("pt"))
}

func TestWhatLangDetect(t *testing.T) {
	code, err := WhatLang{}.Detect("A Petrobras anunciou nesta quinta-feira um lucro líquido recorde no trimestre")
	assert.NoError(t, err)
	assert.Equal(t, "pt", code)

	_, err = WhatLang{}.Detect("   ")
	assert.ErrorIs(t, err, ErrUndetectable)
}
