package stoplist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLexiconIsStop(t *testing.T) {
	lex := New([]string{"de", " A ", "", "Para"})

	tests := []struct {
		token string
		want  bool
	}{
		{"de", true},
		{"a", true},
		{"para", true},
		{"Para", false}, // lookups expect lowercased tokens
		{"petrobras", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := lex.IsStop(tt.token); got != tt.want {
			t.Errorf("IsStop(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
	if lex.Len() != 3 {
		t.Errorf("Len() = %d, want 3", lex.Len())
	}
}

func TestLexiconAllSorted(t *testing.T) {
	got := New([]string{"que", "de", "a"}).All()
	want := []string{"a", "de", "que"}
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuiltinPortuguese(t *testing.T) {
	lex, err := Builtin("pt")
	if err != nil {
		t.Fatalf("Builtin(pt): %v", err)
	}
	if lex.Len() < 200 {
		t.Errorf("expected the full NLTK list, got %d terms", lex.Len())
	}
	for _, w := range []string{"de", "não", "é", "você", "também"} {
		if !lex.IsStop(w) {
			t.Errorf("expected %q to be a stopword", w)
		}
	}
	if lex.IsStop("petrobras") {
		t.Error("petrobras must not be a stopword")
	}
}

func TestBuiltinUnknownLanguage(t *testing.T) {
	_, err := Builtin("xx")
	if !errors.Is(err, ErrUnknownLanguage) {
		t.Errorf("Builtin(xx) error = %v, want ErrUnknownLanguage", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stops.yaml")
	if err := os.WriteFile(path, []byte("terms:\n  - the\n  - of\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lex, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !lex.IsStop("the") || !lex.IsStop("of") || lex.Len() != 2 {
		t.Errorf("unexpected lexicon: %v", lex.All())
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("terms: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}
