// Package proseengine is an offline annotation engine built on prose. It
// supports English only and does no dependency parsing: Dep and Head are
// left empty.
package proseengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/annotate"
)

// ModelName selects this engine in the run configuration.
const ModelName = "prose"

// Loader loads the prose engine for ModelName.
type Loader struct{}

// Load returns the engine, or annotate.ErrEngineUnavailable for any other model.
func (Loader) Load(_ context.Context, model string) (annotate.Engine, error) {
	if model != ModelName {
		return nil, fmt.Errorf("%w: prose serves only model %q, got %q", annotate.ErrEngineUnavailable, ModelName, model)
	}
	return Engine{}, nil
}

// Engine tags tokens with Penn Treebank tags, mapped to universal POS for
// the coarse tag.
type Engine struct{}

// Annotate tokenizes, tags and runs entity extraction over text.
func (Engine) Annotate(ctx context.Context, text string) ([]annotate.Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}

	toks := doc.Tokens()
	out := make([]annotate.Annotation, 0, len(toks))
	for _, tok := range toks {
		out = append(out, annotate.Annotation{
			Text:       tok.Text,
			Lemma:      strings.ToLower(tok.Text),
			POS:        Universal(tok.Tag),
			Tag:        tok.Tag,
			EntityType: entityType(tok.Label),
		})
	}
	return out, nil
}

// entityType turns an IOB label such as "B-GPE" into "GPE"; "O" is none.
func entityType(label string) string {
	if label == "" || label == "O" {
		return ""
	}
	if i := strings.IndexByte(label, '-'); i >= 0 {
		return label[i+1:]
	}
	return label
}

var pennToUniversal = map[string]string{
	"CC": "CCONJ", "CD": "NUM", "DT": "DET", "EX": "PRON", "FW": "X",
	"IN": "ADP", "JJ": "ADJ", "JJR": "ADJ", "JJS": "ADJ", "LS": "X",
	"MD": "AUX", "NN": "NOUN", "NNS": "NOUN", "NNP": "PROPN", "NNPS": "PROPN",
	"PDT": "DET", "POS": "PART", "PRP": "PRON", "PRP$": "PRON", "RB": "ADV",
	"RBR": "ADV", "RBS": "ADV", "RP": "ADP", "SYM": "SYM", "TO": "PART",
	"UH": "INTJ", "VB": "VERB", "VBD": "VERB", "VBG": "VERB", "VBN": "VERB",
	"VBP": "VERB", "VBZ": "VERB", "WDT": "DET", "WP": "PRON", "WP$": "PRON",
	"WRB": "ADV", "$": "SYM", "#": "SYM",
	",": "PUNCT", ".": "PUNCT", ":": "PUNCT", "``": "PUNCT", "''": "PUNCT",
	"(": "PUNCT", ")": "PUNCT", "-LRB-": "PUNCT", "-RRB-": "PUNCT",
}

// Universal maps a Penn Treebank tag to a universal POS tag; unknown tags
// map to "X".
func Universal(tag string) string {
	if u, ok := pennToUniversal[tag]; ok {
		return u
	}
	return "X"
}
