package upload

import (
	"bytes"
	"errors"
	"testing"
)

var pngHead = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestValidateReviewFileSizeBoundary(t *testing.T) {
	head := append([]byte("%PDF-1.7"), bytes.Repeat([]byte{' '}, 64)...)

	if _, err := ValidateReviewFile("deck.pdf", "application/pdf", MaxFileBytes, head); err != nil {
		t.Fatalf("file exactly at the limit rejected: %v", err)
	}
	_, err := ValidateReviewFile("deck.pdf", "application/pdf", MaxFileBytes+1, head)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("error = %v, want ErrFileTooLarge", err)
	}
}

func TestValidateReviewFilePDFMagicBytes(t *testing.T) {
	// Extension and declared type agree, but the content is not a PDF.
	_, err := ValidateReviewFile("deck.pdf", "application/pdf", 1024, []byte("MZ\x90\x00 not a pdf"))
	if !errors.Is(err, ErrContentMismatch) {
		t.Fatalf("error = %v, want ErrContentMismatch", err)
	}

	mime, err := ValidateReviewFile("deck.pdf", "application/pdf", 1024, []byte("%PDF-1.4\n%âãÏÓ"))
	if err != nil {
		t.Fatalf("genuine pdf rejected: %v", err)
	}
	if mime != "application/pdf" {
		t.Fatalf("mime = %q", mime)
	}
}

func TestValidateReviewFileExtensionWhitelist(t *testing.T) {
	tests := []struct {
		name     string
		declared string
	}{
		{name: "malware.exe", declared: "application/octet-stream"},
		{name: "page.html", declared: "text/html"},
		{name: "vector.svg", declared: "image/svg+xml"},
		{name: "archive.zip", declared: "application/zip"},
	}

	for _, tt := range tests {
		if _, err := ValidateReviewFile(tt.name, tt.declared, 100, []byte("anything")); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("ValidateReviewFile(%q) error = %v, want ErrUnsupportedType", tt.name, err)
		}
	}
}

func TestValidateReviewFileDeclaredTypeOutsideWhitelist(t *testing.T) {
	// Allowed extension but hostile declared type.
	if _, err := ValidateReviewFile("pic.png", "text/html", 100, pngHead); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestValidateReviewFileSniffsImages(t *testing.T) {
	mime, err := ValidateReviewFile("pic.png", "image/png", int64(len(pngHead)), pngHead)
	if err != nil {
		t.Fatalf("png rejected: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("mime = %q, want image/png", mime)
	}

	// Declared png but HTML content must not pass.
	if _, err := ValidateReviewFile("pic.png", "image/png", 100, []byte("<!DOCTYPE html><html>")); err == nil {
		t.Fatalf("html content behind png extension accepted")
	}
}

func TestValidateReviewFileContentTypeParameters(t *testing.T) {
	if _, err := ValidateReviewFile("pic.png", "image/png; charset=binary", int64(len(pngHead)), pngHead); err != nil {
		t.Fatalf("content-type parameters broke validation: %v", err)
	}
}
