package stoplist

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var builtin embed.FS

// ErrUnknownLanguage is returned by Builtin for languages without a shipped list.
var ErrUnknownLanguage = errors.New("no builtin stoplist for language")

// builtinFiles maps ISO-639-1 codes to embedded lists.
var builtinFiles = map[string]string{
	"pt": "portuguese.yaml",
}

// File is the on-disk stoplist format.
type File struct {
	Terms []string `yaml:"terms"`
}

// Lexicon is a static stopword set. Terms are stored lowercased.
type Lexicon struct {
	stops map[string]struct{}
}

// New creates a lexicon from terms.
func New(terms []string) *Lexicon {
	stops := make(map[string]struct{}, len(terms))
	for _, s := range terms {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			stops[s] = struct{}{}
		}
	}
	return &Lexicon{stops: stops}
}

// IsStop checks if a token is a stopword. Tokens are expected lowercased.
func (l *Lexicon) IsStop(token string) bool {
	_, ok := l.stops[token]
	return ok
}

// Len returns the number of stopwords.
func (l *Lexicon) Len() int {
	return len(l.stops)
}

// All returns all stopwords, sorted.
func (l *Lexicon) All() []string {
	result := make([]string, 0, len(l.stops))
	for s := range l.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Load reads a YAML stoplist file.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data, path)
}

// Builtin returns the shipped stoplist for an ISO-639-1 language code.
func Builtin(lang string) (*Lexicon, error) {
	name, ok := builtinFiles[strings.ToLower(lang)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	data, err := builtin.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return parse(data, name)
}

func parse(data []byte, name string) (*Lexicon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w", name, err)
	}
	return New(f.Terms), nil
}
