package export

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/internalerr"
	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// RawItem is the serialized form of a raw record.
type RawItem struct {
	ID    string `json:"id_post"`
	Date  string `json:"data_utc"`
	Title string `json:"titulo"`
}

// SaveRawJSON writes raw records as an indented JSON list. Nothing is
// created when records is empty; ErrNothingToSave is returned instead.
func SaveRawJSON(path string, records []record.Raw) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: no records for %s", internalerr.ErrNothingToSave, path)
	}
	items := make([]RawItem, len(records))
	for i, r := range records {
		items[i] = RawItem{ID: r.ID, Date: r.FormattedTimestamp(), Title: r.Title}
	}
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal raw records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadRawJSON reads a file written by SaveRawJSON. Items with a missing id
// or an unparseable date are skipped with a warning.
func LoadRawJSON(path string) ([]record.Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var items []RawItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	records := make([]record.Raw, 0, len(items))
	for i, item := range items {
		ts, err := time.ParseInLocation(record.TimestampLayout, item.Date, time.UTC)
		if err != nil {
			log.Printf("Warning: skipping item %d in %s: bad date %q", i, path, item.Date)
			continue
		}
		r := record.NewRaw(item.ID, ts, item.Title)
		if err := r.Validate(); err != nil {
			log.Printf("Warning: skipping item %d in %s: %v", i, path, err)
			continue
		}
		records = append(records, r)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no valid records in %s", internalerr.ErrNoData, path)
	}
	return records, nil
}
