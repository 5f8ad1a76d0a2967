package record

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
)

// TimestampLayout is the UTC timestamp form written by every sink.
const TimestampLayout = "2006-01-02 15:04:05"

// Language sentinels assigned by the language gate.
const (
	LangUnknown = "unknown"
	LangError   = "error"
)

// Raw is one collected post title. Values are immutable once built by NewRaw.
type Raw struct {
	ID        string
	Timestamp time.Time
	Title     string
}

// NewRaw builds a Raw record, normalizing the title and converting the
// timestamp to UTC.
func NewRaw(id string, createdAt time.Time, title string) Raw {
	return Raw{
		ID:        id,
		Timestamp: createdAt.UTC(),
		Title:     CleanTitle(title),
	}
}

// Validate checks that the record carries the provenance fields every
// later stage relies on.
func (r Raw) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: record id is required", internalerr.ErrInvalidInput)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: record %s has no timestamp", internalerr.ErrInvalidInput, r.ID)
	}
	return nil
}

// FormattedTimestamp renders the timestamp with TimestampLayout.
func (r Raw) FormattedTimestamp() string {
	return r.Timestamp.UTC().Format(TimestampLayout)
}

// CleanTitle unescapes HTML entities, drops control characters, turns line
// breaks into spaces, collapses whitespace runs and trims.
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}
	title = html.UnescapeString(title)

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Detected is a Raw record tagged with its detected language.
type Detected struct {
	Raw
	Language string
}

// Normalized carries the stopword-free, punctuation-free title alongside the
// original.
type Normalized struct {
	Detected
	NormalizedTitle string
}

// Token is one annotated token of a title, with the provenance of the
// record it came from. Field order matches the serialized column order.
type Token struct {
	ID              string
	Timestamp       time.Time
	OriginalTitle   string
	NormalizedTitle string
	Text            string
	Lemma           string
	POS             string
	Tag             string
	Dep             string
	HeadText        string
	EntityType      string // empty when the engine assigned none
}

// HasEntity reports whether the token carries a named-entity type.
func (t Token) HasEntity() bool {
	return t.EntityType != ""
}
