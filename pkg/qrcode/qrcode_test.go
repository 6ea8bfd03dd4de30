package qrcode

import (
	"bytes"
	"testing"
)

func TestPNGProducesImage(t *testing.T) {
	png, err := PNG("TB-7QK2M9XW", 0)
	if err != nil {
		t.Fatalf("PNG returned error: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("expected png signature")
	}
}

func TestPNGRejectsEmptyContent(t *testing.T) {
	if _, err := PNG("  ", 128); err == nil {
		t.Fatal("expected error for empty content")
	}
}
