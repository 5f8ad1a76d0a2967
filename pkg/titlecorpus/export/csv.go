// Package export serializes pipeline output to flat files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// TokenHeader is the token table header, one column per record.Token field.
var TokenHeader = []string{
	"id_post",
	"data_utc",
	"titulo_original",
	"titulo_limpo",
	"token",
	"lemma",
	"pos_universal",
	"pos_detalhada",
	"dependencia_sintatica",
	"palavra_mae",
	"entidade_nomeada",
}

// WriteTokensCSV writes the header and one row per token.
func WriteTokensCSV(w io.Writer, tokens []record.Token) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TokenHeader); err != nil {
		return err
	}
	for _, t := range tokens {
		row := []string{
			t.ID,
			t.Timestamp.UTC().Format(record.TimestampLayout),
			t.OriginalTitle,
			t.NormalizedTitle,
			t.Text,
			t.Lemma,
			t.POS,
			t.Tag,
			t.Dep,
			t.HeadText,
			t.EntityType,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveTokensCSV writes tokens to path. Nothing is created when tokens is
// empty; ErrNothingToSave is returned instead.
func SaveTokensCSV(path string, tokens []record.Token) (err error) {
	if len(tokens) == 0 {
		return fmt.Errorf("%w: no tokens for %s", internalerr.ErrNothingToSave, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := WriteTokensCSV(f, tokens); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
