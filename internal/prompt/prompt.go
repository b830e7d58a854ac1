package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrTemplateNotFound is returned when a named template does not exist.
var ErrTemplateNotFound = errors.New("prompt template not found")

// templateExt is appended to template names to locate them on disk.
const templateExt = ".txt"

// Store loads named plain-text templates from a directory. Templates are read
// on every call; nothing is cached.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load returns the raw contents of template name.
func (s *Store) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid name %q", ErrTemplateNotFound, name)
	}
	path := filepath.Join(s.dir, name+templateExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}

// Require checks that every named template can be loaded. Used at startup so
// a missing template fails the run before any item is processed.
func (s *Store) Require(names ...string) error {
	for _, name := range names {
		if _, err := s.Load(name); err != nil {
			return err
		}
	}
	return nil
}

// Builder joins a template with item text.
type Builder struct {
	store *Store
}

// NewBuilder returns a Builder backed by store.
func NewBuilder(store *Store) *Builder {
	return &Builder{store: store}
}

// Build returns trim(template) + "\n\n" + trim(rawText).
func (b *Builder) Build(rawText, templateName string) (string, error) {
	tmpl, err := b.store.Load(templateName)
	if err != nil {
		return "", err
	}
	return Compose(tmpl, rawText), nil
}

// Require checks that the named templates exist.
func (b *Builder) Require(names ...string) error {
	return b.store.Require(names...)
}

// Compose is the delimiter contract of Build without the template lookup.
func Compose(template, rawText string) string {
	return strings.TrimSpace(template) + "\n\n" + strings.TrimSpace(rawText)
}
