// Package render converts Markdown documents to standalone HTML pages.
package render

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const pageHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
`

const pageFooter = `</body>
</html>
`

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToHTML renders markdown as an HTML fragment.
func ToHTML(markdown string) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Page wraps the rendered fragment in a minimal HTML document.
func Page(title, markdown string) ([]byte, error) {
	body, err := ToHTML(markdown)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, pageHeader, html.EscapeString(title))
	buf.Write(body)
	buf.WriteString(pageFooter)
	return buf.Bytes(), nil
}

// WriteFile renders markdown to path, creating parent directories.
func WriteFile(path, title, markdown string) error {
	page, err := Page(title, markdown)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create html dir: %w", err)
	}
	return os.WriteFile(path, page, 0o644)
}
