package tesseract

import (
	"context"
	"os/exec"
	"testing"

	"quiz-digest/internal/ocr"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestEngineRejectsUndecodableImage(t *testing.T) {
	ensureTesseractAvailable(t)

	_, err := New().Recognize(context.Background(), ocr.Input{Data: []byte("not an image"), Languages: []string{"eng"}})
	if err == nil {
		t.Fatal("expected error for undecodable image")
	}
}

func TestEngineHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Recognize(ctx, ocr.Input{}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestEngineName(t *testing.T) {
	if got := New().Name(); got != "tesseract" {
		t.Fatalf("unexpected name %q", got)
	}
}
