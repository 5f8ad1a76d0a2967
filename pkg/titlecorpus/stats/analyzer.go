package stats

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// Analyzer aggregates title-level token statistics over an annotated corpus.
type Analyzer struct {
	titles       map[string]struct{}
	totalTokens  int64
	lemmaDF      map[string]int64
	lemmaFreq    map[string]int64
	posCounts    map[string]int64
	entityCounts map[string]int64
	bigramCounts map[pair]int64
}

type pair struct {
	A, B string
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		titles:       make(map[string]struct{}),
		lemmaDF:      make(map[string]int64),
		lemmaFreq:    make(map[string]int64),
		posCounts:    make(map[string]int64),
		entityCounts: make(map[string]int64),
		bigramCounts: make(map[pair]int64),
	}
}

// Process consumes the token rows of a corpus. Rows of one title must be
// contiguous, which is how the annotation stage emits them.
func (a *Analyzer) Process(tokens []record.Token) {
	var (
		current string
		seen    map[string]struct{}
	)
	for _, t := range tokens {
		if t.ID != current || seen == nil {
			current = t.ID
			seen = make(map[string]struct{})
			if _, ok := a.titles[t.ID]; !ok {
				a.titles[t.ID] = struct{}{}
				a.processNormalized(t.NormalizedTitle)
			}
		}

		a.totalTokens++
		if t.POS != "" {
			a.posCounts[t.POS]++
		}
		if t.HasEntity() {
			a.entityCounts[t.EntityType]++
		}

		lemma := strings.ToLower(t.Lemma)
		if lemma == "" || t.POS == "PUNCT" {
			continue
		}
		a.lemmaFreq[lemma]++
		if _, ok := seen[lemma]; !ok {
			seen[lemma] = struct{}{}
			a.lemmaDF[lemma]++
		}
	}
}

// processNormalized counts adjacent word pairs of a normalized title.
func (a *Analyzer) processNormalized(normalized string) {
	words := strings.Fields(normalized)
	for i := 0; i < len(words)-1; i++ {
		a.bigramCounts[pair{A: words[i], B: words[i+1]}]++
	}
}

// Stats is a snapshot of the aggregated counts.
type Stats struct {
	Titles       int64            `yaml:"titles"`
	Tokens       int64            `yaml:"tokens"`
	LemmaDF      map[string]int64 `yaml:"-"`
	LemmaFreq    map[string]int64 `yaml:"-"`
	POS          map[string]int64 `yaml:"pos"`
	Entities     map[string]int64 `yaml:"entities"`
	bigramCounts map[pair]int64
}

// Snapshot copies the current counts.
func (a *Analyzer) Snapshot() Stats {
	return Stats{
		Titles:       int64(len(a.titles)),
		Tokens:       a.totalTokens,
		LemmaDF:      copyCounts(a.lemmaDF),
		LemmaFreq:    copyCounts(a.lemmaFreq),
		POS:          copyCounts(a.posCounts),
		Entities:     copyCounts(a.entityCounts),
		bigramCounts: copyPairs(a.bigramCounts),
	}
}

// Term is a lemma or bigram with its counts.
type Term struct {
	Term  string `yaml:"term"`
	Count int64  `yaml:"count"`
	DF    int64  `yaml:"df,omitempty"`
}

// TopLemmas returns the k most frequent lemmas, ties broken alphabetically.
func (s Stats) TopLemmas(k int) []Term {
	terms := make([]Term, 0, len(s.LemmaFreq))
	for lemma, n := range s.LemmaFreq {
		terms = append(terms, Term{Term: lemma, Count: n, DF: s.LemmaDF[lemma]})
	}
	return topK(terms, k)
}

// TopBigrams returns the k most frequent normalized-title bigrams.
func (s Stats) TopBigrams(k int) []Term {
	terms := make([]Term, 0, len(s.bigramCounts))
	for p, n := range s.bigramCounts {
		terms = append(terms, Term{Term: p.A + " " + p.B, Count: n})
	}
	return topK(terms, k)
}

// Summary is the serialized corpus report.
type Summary struct {
	Stats      `yaml:",inline"`
	Lemmas     []Term      `yaml:"top_lemmas"`
	Bigrams    []Term      `yaml:"top_bigrams"`
	Candidates []Candidate `yaml:"stop_candidates,omitempty"`
}

// DefaultCandidateDFPercent is the title share above which a lemma is
// suggested as a stopword.
const DefaultCandidateDFPercent = 60.0

// Candidate is a lemma widespread enough across titles to be a stopword.
type Candidate struct {
	Term      string  `yaml:"term"`
	DF        int64   `yaml:"df"`
	DFPercent float64 `yaml:"df_percent"`
}

// StopCandidates returns lemmas present in more than minDFPercent of titles,
// skipping those excluded by skip, most widespread first. A non-positive
// minDFPercent selects DefaultCandidateDFPercent.
func (s Stats) StopCandidates(minDFPercent float64, skip func(string) bool) []Candidate {
	if s.Titles == 0 {
		return nil
	}
	if minDFPercent <= 0 {
		minDFPercent = DefaultCandidateDFPercent
	}
	var out []Candidate
	for lemma, df := range s.LemmaDF {
		if skip != nil && skip(lemma) {
			continue
		}
		pct := 100 * float64(df) / float64(s.Titles)
		if pct > minDFPercent {
			out = append(out, Candidate{Term: lemma, DF: df, DFPercent: pct})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DF != out[j].DF {
			return out[i].DF > out[j].DF
		}
		return out[i].Term < out[j].Term
	})
	return out
}

// Summarize builds a report with the top k lemmas and bigrams.
func (s Stats) Summarize(k int) Summary {
	return Summary{Stats: s, Lemmas: s.TopLemmas(k), Bigrams: s.TopBigrams(k)}
}

// SaveYAML writes the summary to path.
func (s Summary) SaveYAML(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func topK(terms []Term, k int) []Term {
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if k > 0 && len(terms) > k {
		terms = terms[:k]
	}
	return terms
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyPairs(m map[pair]int64) map[pair]int64 {
	out := make(map[pair]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
