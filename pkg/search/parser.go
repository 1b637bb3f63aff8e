package search

import (
	"strings"
)

// QueryFilters holds the filters extracted from a question and the text
// that remains to be answered.
type QueryFilters struct {
	DocumentID string
	Question   string
}

// ParseQuery extracts slash commands from the raw question.
// Supported:
// /doc:<id> OR /in:<id> -> restrict retrieval to one ingested document
// <text> -> the question itself
//
// Prefixes match case-insensitively; the id keeps its case. When the
// command repeats, the last one wins.
func ParseQuery(raw string) QueryFilters {
	filters := QueryFilters{}
	var cleanParts []string

	for _, part := range strings.Fields(raw) {
		lowerPart := strings.ToLower(part)

		switch {
		case strings.HasPrefix(lowerPart, "/doc:"):
			filters.DocumentID = part[len("/doc:"):]
		case strings.HasPrefix(lowerPart, "/in:"):
			filters.DocumentID = part[len("/in:"):]
		default:
			cleanParts = append(cleanParts, part)
		}
	}

	filters.Question = strings.Join(cleanParts, " ")
	return filters
}
