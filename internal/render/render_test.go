package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		contains []string
	}{
		{"separator becomes rule", "Question 1: A\n\n---\n\nQuestion 2: B", []string{"<hr>", "<p>Question 1: A</p>", "<p>Question 2: B</p>"}},
		{"code fence", "```python\nprint(1)\n```", []string{`<code class="language-python">`}},
		{"gfm table", "| a | b |\n| --- | --- |\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"raw html is not passed through", "<script>x</script>", []string{"<!-- raw HTML omitted -->"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ToHTML(tt.markdown)
			require.NoError(t, err)
			for _, c := range tt.contains {
				assert.Contains(t, string(out), c)
			}
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "html", "explanations.html")
	require.NoError(t, WriteFile(path, "Spark <answers>", "# Title"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(data)
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Spark &lt;answers&gt;</title>")
	assert.Contains(t, page, "<h1>Title</h1>")
	assert.True(t, strings.HasSuffix(page, "</html>\n"))
}
