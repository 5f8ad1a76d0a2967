// Package filter provides pure filter functions over collected records.
// All functions are simple: []record.Raw in, new []record.Raw out.
package filter

import (
	"sort"
	"strings"

	"github.com/cognicore/titlecorpus/pkg/titlecorpus/record"
)

// ByKeywords keeps records whose lowercased title contains at least one of
// the keywords as a substring. Keywords are matched case-insensitively and
// blank keywords are ignored; with no usable keyword nothing is kept.
func ByKeywords(records []record.Raw, keywords []string) []record.Raw {
	if len(records) == 0 {
		return []record.Raw{}
	}

	needles := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			needles = append(needles, kw)
		}
	}

	result := make([]record.Raw, 0, len(records))
	for _, r := range records {
		if containsAny(strings.ToLower(r.Title), needles) {
			result = append(result, r)
		}
	}
	return result
}

// containsAny checks every keyword before giving up.
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ByEarliestTitle collapses records sharing a title, keeping the one with
// the earliest timestamp. Output is ordered by ascending timestamp; records
// with equal timestamps keep their input order. When fold is true titles
// are compared lowercased, otherwise by exact text.
func ByEarliestTitle(records []record.Raw, fold bool) []record.Raw {
	if len(records) == 0 {
		return []record.Raw{}
	}

	sorted := make([]record.Raw, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	seen := make(map[string]struct{}, len(sorted))
	result := make([]record.Raw, 0, len(sorted))
	for _, r := range sorted {
		key := r.Title
		if fold {
			key = strings.ToLower(key)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, r)
	}
	return result
}
