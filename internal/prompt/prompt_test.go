package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, templates map[string]string) *Builder {
	t.Helper()
	dir := t.TempDir()
	for name, body := range templates {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(body), 0o644))
	}
	return NewBuilder(NewStore(dir))
}

func TestBuild(t *testing.T) {
	b := newTestBuilder(t, map[string]string{"clean": "\n  Fix the OCR text.  \n\n"})

	got, err := b.Build("  Question 1: dfwrite  \n", "clean")
	require.NoError(t, err)
	assert.Equal(t, "Fix the OCR text.\n\nQuestion 1: dfwrite", got)
}

func TestBuildTrimIsIdempotent(t *testing.T) {
	b := newTestBuilder(t, map[string]string{"clean": "Fix it."})

	padded, err := b.Build(" x ", "clean")
	require.NoError(t, err)
	bare, err := b.Build("x", "clean")
	require.NoError(t, err)
	assert.Equal(t, bare, padded)
}

func TestBuildMissingTemplate(t *testing.T) {
	b := newTestBuilder(t, map[string]string{"clean": "Fix it."})

	_, err := b.Build("text", "nonexistent")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestLoadRejectsPathNames(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, name := range []string{"", "../etc/passwd", "a/b", ".."} {
		_, err := s.Load(name)
		assert.ErrorIs(t, err, ErrTemplateNotFound, name)
	}
}

func TestLoadIsByteIdentical(t *testing.T) {
	body := "line one\r\n\tline two \n"
	b := newTestBuilder(t, map[string]string{"t": body})

	first, err := b.store.Load("t")
	require.NoError(t, err)
	second, err := b.store.Load("t")
	require.NoError(t, err)
	assert.Equal(t, body, first)
	assert.Equal(t, first, second)
}

func TestRequire(t *testing.T) {
	b := newTestBuilder(t, map[string]string{"clean": "a", "explain": "b"})

	assert.NoError(t, b.store.Require("clean", "explain"))
	assert.ErrorIs(t, b.store.Require("clean", "missing"), ErrTemplateNotFound)
}

func TestCompose(t *testing.T) {
	assert.Equal(t, "T\n\n", Compose(" T ", "   "))
}
