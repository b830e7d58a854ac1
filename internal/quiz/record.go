package quiz

import "strings"

// Record is one processed image: its source path, the model response and the
// question number parsed from that response.
type Record struct {
	Source string
	Text   string
	// Index is the parsed question number, 0 when Parsed is false.
	Index  int
	Parsed bool
	// Position is the input order, used as the tie-break.
	Position int
}

// NewRecord parses the question index out of text.
func NewRecord(source, text string, position int) Record {
	idx, ok := ParseIndex(text)
	return Record{
		Source:   source,
		Text:     text,
		Index:    idx,
		Parsed:   ok,
		Position: position,
	}
}

// Body is the normalized text written into a Document.
func (r Record) Body() string {
	return NormalizeBody(r.Text)
}

// NormalizeBody trims text, converts CRLF line endings to LF and rewrites separator lines (embedded, leading or
// trailing "---") to a Markdown "***" break so the body survives a Segment
// round trip.
func NormalizeBody(text string) string {
	body := strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	for strings.Contains(body, Separator) {
		body = strings.ReplaceAll(body, Separator, "\n***\n")
	}
	if body == "---" {
		return "***"
	}
	if strings.HasPrefix(body, "---\n") {
		body = "***" + body[3:]
	}
	if strings.HasSuffix(body, "\n---") {
		body = body[:len(body)-3] + "***"
	}
	return body
}
