// Package report renders a run summary for the terminal.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/annotate"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/pipeline"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/stats"
)

// maxTermWidth caps display width of terms in the top-lemma list.
const maxTermWidth = 24

// Printer writes funnel tables and run status.
type Printer struct {
	w      io.Writer
	colors map[string]*color.Color
}

// New creates a printer. noColor disables ANSI sequences for this printer
// only.
func New(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w: w,
		colors: map[string]*color.Color{
			"ok":     color.New(color.FgGreen, color.Bold),
			"halt":   color.New(color.FgYellow, color.Bold),
			"fail":   color.New(color.FgRed, color.Bold),
			"header": color.New(color.FgCyan),
			"dim":    color.New(color.FgWhite),
		},
	}
	if noColor {
		for _, c := range p.colors {
			c.DisableColor()
		}
	}
	return p
}

// Funnel prints one row per stage with the counts entering and leaving it.
func (p *Printer) Funnel(res *pipeline.Result) {
	if res == nil {
		return
	}
	rows := [][]string{{"stage", "in", "out", "dropped"}}
	for _, sc := range res.Funnel {
		rows = append(rows, []string{
			sc.Stage,
			strconv.Itoa(sc.Before),
			strconv.Itoa(sc.After),
			strconv.Itoa(max(sc.Before-sc.After, 0)),
		})
	}
	lines := Table(rows)
	for i, line := range lines {
		if i == 0 {
			p.colors["header"].Fprintln(p.w, line)
			continue
		}
		fmt.Fprintln(p.w, line)
	}
}

// Status prints the outcome line for err.
func (p *Printer) Status(res *pipeline.Result, err error) {
	switch {
	case err == nil:
		tokens, titles := 0, 0
		if res != nil {
			tokens, titles = len(res.Tokens), len(res.Normalized)
		}
		p.colors["ok"].Fprintf(p.w, "OK")
		fmt.Fprintf(p.w, " %d tokens from %d titles\n", tokens, titles)
	case errors.Is(err, internalerr.ErrNoData):
		p.colors["halt"].Fprintf(p.w, "HALTED")
		fmt.Fprintf(p.w, " at %s: no data, nothing saved\n", haltedAt(res))
	case errors.Is(err, annotate.ErrEngineUnavailable):
		p.colors["fail"].Fprintf(p.w, "FAILED")
		fmt.Fprintf(p.w, " annotation engine unavailable: %v\n", err)
	default:
		p.colors["fail"].Fprintf(p.w, "FAILED")
		fmt.Fprintf(p.w, " at %s: %v\n", haltedAt(res), err)
	}
}

// TopLemmas prints the k most frequent lemmas as an aligned table.
func (p *Printer) TopLemmas(s stats.Stats, k int) {
	terms := s.TopLemmas(k)
	if len(terms) == 0 {
		return
	}
	rows := [][]string{{"lemma", "count", "titles"}}
	for _, t := range terms {
		rows = append(rows, []string{
			runewidth.Truncate(t.Term, maxTermWidth, "…"),
			strconv.FormatInt(t.Count, 10),
			strconv.FormatInt(t.DF, 10),
		})
	}
	for i, line := range Table(rows) {
		if i == 0 {
			p.colors["header"].Fprintln(p.w, line)
			continue
		}
		fmt.Fprintln(p.w, line)
	}
}

// Saved lists the artifacts written by the run.
func (p *Printer) Saved(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		p.colors["dim"].Fprintf(p.w, "  wrote %s\n", path)
	}
}

// Table aligns rows into columns by display width. The first row is
// followed by a dashed separator.
func Table(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	widths := make([]int, cols)
	for _, r := range rows {
		for i, cell := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	out := make([]string, 0, len(rows)+1)
	for ri, r := range rows {
		var sb strings.Builder
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(r) {
				cell = r[i]
			}
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		out = append(out, strings.TrimRight(sb.String(), " "))
		if ri == 0 {
			var sep strings.Builder
			for i, w := range widths {
				if i > 0 {
					sep.WriteString("  ")
				}
				sep.WriteString(strings.Repeat("-", w))
			}
			out = append(out, sep.String())
		}
	}
	return out
}

func haltedAt(res *pipeline.Result) string {
	if res == nil || res.HaltedAt == "" {
		return "startup"
	}
	return res.HaltedAt
}
