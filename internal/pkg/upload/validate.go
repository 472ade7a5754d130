package upload

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxFileBytes is the ceiling for one review deliverable. A file exactly at
// the limit is accepted; one byte over is rejected.
const MaxFileBytes int64 = 10 << 20 // 10 MiB

var (
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedType = errors.New("file type is not supported")
	ErrContentMismatch = errors.New("file content does not match its declared type")
)

var allowedExt = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	// Note: SVG is intentionally excluded due to XSS risk without sanitization
}

var allowedMime = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
}

var pdfMagic = []byte("%PDF")

// ValidateReviewFile checks a deliverable's size, extension, declared MIME
// type and leading bytes against the whitelist. Declared types are never
// trusted on their own: a file claiming application/pdf must actually start
// with the PDF magic bytes. Returns the detected mime type.
func ValidateReviewFile(filename, declaredType string, size int64, head []byte) (string, error) {
	if size > MaxFileBytes {
		return "", ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}

	declared := strings.ToLower(strings.TrimSpace(declaredType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && !allowedMime[declared] {
		return "", ErrUnsupportedType
	}

	// PDF declarations are verified against the leading bytes; extension
	// and declared type agreeing is not enough.
	if declared == "application/pdf" || ext == ".pdf" {
		if !bytes.HasPrefix(head, pdfMagic) {
			return "", ErrContentMismatch
		}
		return "application/pdf", nil
	}

	detected := http.DetectContentType(head)

	// Block obvious scriptable types regardless of extension
	if strings.HasPrefix(detected, "text/html") || strings.HasPrefix(detected, "application/xhtml") {
		return "", ErrUnsupportedType
	}
	if strings.HasPrefix(detected, "text/xml") || strings.HasPrefix(detected, "application/xml") || detected == "image/svg+xml" {
		// Block SVG/XML until sanitizer is available
		return "", ErrUnsupportedType
	}

	if allowedMime[detected] {
		return detected, nil
	}

	return "", ErrContentMismatch
}
