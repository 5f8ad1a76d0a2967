package normalize

import (
	"strings"
	"unicode"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/stoplist"
)

// Stoplist is the stopword lookup the normalizer consults.
type Stoplist interface {
	IsStop(token string) bool
}

// Normalizer lowercases titles, strips punctuation and removes stopwords.
type Normalizer struct {
	stops Stoplist
}

// New creates a normalizer. A nil stoplist removes nothing.
func New(stops Stoplist) *Normalizer {
	if stops == nil {
		stops = stoplist.New(nil)
	}
	return &Normalizer{stops: stops}
}

// Text normalizes one title. The result is lowercase, holds only word
// runes separated by single spaces, and contains no stopwords. It may be
// empty. Text(Text(s)) == Text(s).
func (n *Normalizer) Text(s string) string {
	if s == "" {
		return ""
	}
	var kept []string
	for _, word := range strings.Fields(stripPunct(strings.ToLower(s))) {
		if n.stops.IsStop(word) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// Records returns normalized copies of records, in the same order.
func (n *Normalizer) Records(records []record.Detected) []record.Normalized {
	result := make([]record.Normalized, 0, len(records))
	for _, r := range records {
		result = append(result, record.Normalized{
			Detected:        r,
			NormalizedTitle: n.Text(r.Title),
		})
	}
	return result
}

// stripPunct drops every rune that is neither a word rune nor whitespace.
func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isWord(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isWord matches letters, digits and underscore.
func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}
