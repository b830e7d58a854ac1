package quiz

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Separator joins record bodies in a Document.
const Separator = "\n---\n"

// OrderPolicy decides where records without a "Question N:" label land.
type OrderPolicy int

const (
	// UnparsedFirst sorts unlabelled records as index 0, ahead of every
	// labelled question.
	UnparsedFirst OrderPolicy = iota
	// UnparsedLast sorts unlabelled records after every labelled question.
	UnparsedLast
)

// ParseOrderPolicy maps the configuration value ("first" or "last").
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	switch s {
	case "", "first":
		return UnparsedFirst, nil
	case "last":
		return UnparsedLast, nil
	default:
		return UnparsedFirst, fmt.Errorf("unknown unparsed policy %q", s)
	}
}

func (p OrderPolicy) String() string {
	if p == UnparsedLast {
		return "last"
	}
	return "first"
}

// Aggregate serializes responses in question order using UnparsedFirst.
func Aggregate(texts []string) string {
	records := make([]Record, len(texts))
	for i, text := range texts {
		records[i] = NewRecord("", text, i)
	}
	return AggregateRecords(records, UnparsedFirst)
}

// AggregateRecords stable-sorts records by parsed index and joins their
// non-empty bodies with Separator. The input slice is not modified. Records
// with equal keys keep their relative order in records.
func AggregateRecords(records []Record, policy OrderPolicy) string {
	if len(records) == 0 {
		return ""
	}
	sorted := SortRecords(records, policy)
	bodies := make([]string, 0, len(sorted))
	for _, r := range sorted {
		if body := r.Body(); body != "" {
			bodies = append(bodies, body)
		}
	}
	return strings.Join(bodies, Separator)
}

// SortRecords returns a stably sorted copy of records.
func SortRecords(records []Record, policy OrderPolicy) []Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int {
		if policy == UnparsedLast && a.Parsed != b.Parsed {
			if a.Parsed {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return sorted
}

// Segment splits a Document back into trimmed, non-empty sections. Leading or
// trailing separators and CRLF line endings are accepted.
func Segment(document string) []string {
	document = strings.ReplaceAll(document, "\r\n", "\n")
	parts := strings.Split(document, Separator)
	sections := make([]string, 0, len(parts))
	for _, part := range parts {
		section := strings.TrimSpace(part)
		// A document that starts or ends with a separator leaves a bare "---".
		section = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(section, "---\n"), "\n---"))
		if section == "" || section == "---" {
			continue
		}
		sections = append(sections, section)
	}
	return sections
}

// Join serializes sections in the given order, without sorting.
func Join(sections []string) string {
	bodies := make([]string, 0, len(sections))
	for _, s := range sections {
		if body := NormalizeBody(s); body != "" {
			bodies = append(bodies, body)
		}
	}
	return strings.Join(bodies, Separator)
}
