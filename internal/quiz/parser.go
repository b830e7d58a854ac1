package quiz

import (
	"regexp"
	"strconv"
)

// questionLabel matches labels such as "Question 12:" anywhere in a response,
// including inside Markdown emphasis ("**Question 12:**").
var questionLabel = regexp.MustCompile(`Question\s+(\d+):`)

// ParseIndex returns the number of the first "Question N:" label in text and
// whether one was found. Digits that overflow an int count as not found.
func ParseIndex(text string) (int, bool) {
	m := questionLabel.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractIndex is ParseIndex with 0 as the fallback for unlabelled text.
func ExtractIndex(text string) int {
	n, _ := ParseIndex(text)
	return n
}

// HasLabel reports whether text carries a "Question N:" label.
func HasLabel(text string) bool {
	_, ok := ParseIndex(text)
	return ok
}
