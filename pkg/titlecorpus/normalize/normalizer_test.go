package normalize

import (
	"testing"
	"time"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/stoplist"
)

func ptNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	lex, err := stoplist.Builtin("pt")
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	return New(lex)
}

func TestText(t *testing.T) {
	n := ptNormalizer(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "stopwords removed", input: "Petrobras anuncia lucro de R$ 20 bi", want: "petrobras anuncia lucro r 20 bi"},
		{name: "punctuation stripped", input: "PETR4 sobe!!! (alta de 3,5%)", want: "petr4 sobe alta 35"},
		{name: "accented stopwords", input: "Você já viu a ação da Petrobras?", want: "viu ação petrobras"},
		{name: "underscore kept", input: "petr4_on dispara", want: "petr4_on dispara"},
		{name: "hyphen joins words", input: "pré-sal bate recorde", want: "présal bate recorde"},
		{name: "all stopwords", input: "O que é isso?", want: ""},
		{name: "only punctuation", input: "?!... --", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "whitespace runs", input: "lucro\t\n  recorde", want: "lucro recorde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextIdempotent(t *testing.T) {
	n := ptNormalizer(t)
	inputs := []string{
		"Petrobras anuncia lucro de R$ 20 bi",
		"Você já viu a ação da Petrobras?",
		"ÁGUA, ÓLEO & GÁS: o que muda?",
		"",
		"petr4 sobe",
	}
	for _, in := range inputs {
		once := n.Text(in)
		twice := n.Text(once)
		if once != twice {
			t.Errorf("Text not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNilStoplist(t *testing.T) {
	n := New(nil)
	if got := n.Text("A Petrobras, de novo."); got != "a petrobras de novo" {
		t.Errorf("Text = %q", got)
	}
}

func TestRecordsKeepsOriginal(t *testing.T) {
	n := ptNormalizer(t)
	in := []record.Detected{
		{Raw: record.NewRaw("a", time.Unix(10, 0), "A Petrobras sobe"), Language: "pt"},
		{Raw: record.NewRaw("b", time.Unix(20, 0), "de que"), Language: "pt"},
	}

	out := n.Records(in)

	if len(out) != 2 {
		t.Fatalf("Records returned %d, want 2", len(out))
	}
	if out[0].Title != "A Petrobras sobe" || out[0].NormalizedTitle != "petrobras sobe" {
		t.Errorf("record a = %+v", out[0])
	}
	if out[0].Language != "pt" || out[0].ID != "a" {
		t.Errorf("provenance lost: %+v", out[0])
	}
	if out[1].NormalizedTitle != "" {
		t.Errorf("all-stopword title should normalize to empty, got %q", out[1].NormalizedTitle)
	}
}
