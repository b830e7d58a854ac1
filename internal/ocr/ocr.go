// Package ocr turns input files into raw text. Engines do the recognition;
// the Extractor routes files to engines and turns every failure into an
// empty result so one unreadable image never stops a batch.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ImageFormat identifies the content type of an input.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
	ImageFormatBMP  ImageFormat = "image/bmp"
	FormatPDF       ImageFormat = "application/pdf"
)

// Input is a single file submitted for recognition.
type Input struct {
	Path      string
	Data      []byte
	Format    ImageFormat
	Languages []string
}

// Engine recognizes text in one input.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (string, error)
}

// FormatForPath maps a file extension to a format; "" when unknown.
func FormatForPath(path string) ImageFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ImageFormatPNG
	case ".jpg", ".jpeg":
		return ImageFormatJPEG
	case ".tif", ".tiff":
		return ImageFormatTIFF
	case ".bmp":
		return ImageFormatBMP
	case ".pdf":
		return FormatPDF
	default:
		return ""
	}
}

// Extractor reads files and dispatches them to the engine registered for
// their format, falling back to the default engine.
type Extractor struct {
	log       *slog.Logger
	fallback  Engine
	engines   map[ImageFormat]Engine
	languages []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithEngine routes format to engine.
func WithEngine(format ImageFormat, engine Engine) Option {
	return func(x *Extractor) { x.engines[format] = engine }
}

// WithLanguages sets language hints passed to engines.
func WithLanguages(langs ...string) Option {
	return func(x *Extractor) { x.languages = append([]string(nil), langs...) }
}

// NewExtractor returns an Extractor using fallback for unrouted formats.
func NewExtractor(log *slog.Logger, fallback Engine, opts ...Option) *Extractor {
	x := &Extractor{
		log:      log,
		fallback: fallback,
		engines:  make(map[ImageFormat]Engine),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract returns the text in the file at path, or "" on any failure. The
// failure is logged.
func (x *Extractor) Extract(ctx context.Context, path string) string {
	text, err := x.extract(ctx, path)
	if err != nil {
		x.log.Error("text extraction failed", "path", path, "err", err)
		return ""
	}
	return text
}

func (x *Extractor) extract(ctx context.Context, path string) (text string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}
	format := FormatForPath(path)
	engine, ok := x.engines[format]
	if !ok {
		engine = x.fallback
	}
	if engine == nil {
		return "", fmt.Errorf("no engine for %q", format)
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%s engine panicked: %v", engine.Name(), r)
		}
	}()
	return engine.Recognize(ctx, Input{
		Path:      path,
		Data:      data,
		Format:    format,
		Languages: x.languages,
	})
}
