// Package langgate tags records with their detected language and keeps
// only those written in the target language.
package langgate

import (
	"strings"
	"unicode/utf8"

	"github.com/cognicore/titlecorpus/internal/logger"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// DefaultMinLength is the longest trimmed title, in runes, that is still
// too short to detect.
const DefaultMinLength = 10

// Detector is the language detection capability.
type Detector interface {
	Detect(text string) (string, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(text string) (string, error)

// Detect calls f.
func (f DetectorFunc) Detect(text string) (string, error) {
	return f(text)
}

// Gate classifies and filters records by language.
type Gate struct {
	detector  Detector
	minLength int
	log       *logger.Logger
}

// New creates a gate. minLength <= 0 selects DefaultMinLength.
func New(d Detector, minLength int, l *logger.Logger) *Gate {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Gate{
		detector:  d,
		minLength: minLength,
		log:       logger.OrDiscard(l).With("stage", "language"),
	}
}

// Language returns the language code of title, LangUnknown when the
// trimmed title is not longer than the minimum length, or LangError when
// detection fails.
func (g *Gate) Language(title string) string {
	trimmed := strings.TrimSpace(title)
	if utf8.RuneCountInString(trimmed) <= g.minLength {
		return record.LangUnknown
	}
	lang, err := g.detector.Detect(title)
	if err != nil {
		g.log.Debug("detection failed", "title", title, "err", err)
		return record.LangError
	}
	return lang
}

// Classify tags every record with its language.
func (g *Gate) Classify(records []record.Raw) []record.Detected {
	result := make([]record.Detected, 0, len(records))
	for _, r := range records {
		result = append(result, record.Detected{Raw: r, Language: g.Language(r.Title)})
	}
	return result
}

// IsSentinel reports whether lang is one of the tags the gate assigns
// instead of a detected language.
func IsSentinel(lang string) bool {
	return lang == record.LangUnknown || lang == record.LangError
}

// Filter classifies records and keeps those tagged exactly target. Records
// tagged LangUnknown or LangError are always dropped, whatever the target.
func (g *Gate) Filter(records []record.Raw, target string) []record.Detected {
	detected := g.Classify(records)

	counts := make(map[string]int)
	result := make([]record.Detected, 0, len(detected))
	for _, d := range detected {
		counts[d.Language]++
		if d.Language == target && !IsSentinel(d.Language) {
			result = append(result, d)
		}
	}

	g.log.Info("language filter applied",
		"target", target,
		"before", len(records),
		"after", len(result),
		"removed", len(records)-len(result),
		"unknown", counts[record.LangUnknown],
		"errors", counts[record.LangError])
	if len(result) == 0 && len(records) > 0 {
		g.log.Warn("no records in target language", "target", target)
	}
	return result
}
