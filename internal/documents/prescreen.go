package documents

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxUploadBytes caps uploads at 15 MB unless configured otherwise.
const DefaultMaxUploadBytes = 15 << 20

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/tiff":      true,
}

// preScreen rejects oversized, unsupported, or unopenable files before
// anything is persisted. The content type is sniffed from the bytes rather
// than trusted from the request. Returns the sniffed type.
func preScreen(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), maxBytes)
	}
	mime := normalizeMime(http.DetectContentType(data))
	if !allowedMimeTypes[mime] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, mime)
	}
	if mime == "application/pdf" {
		if err := checkPDF(data); err != nil {
			return "", err
		}
	}
	return mime, nil
}

// checkPDF verifies the file parses as a PDF with at least one page. Scanned
// image-only PDFs are fine; the analyzer handles OCR. The parser panics on
// some malformed inputs, so those are recovered into an error.
func checkPDF(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadableFile, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	if reader.NumPage() < 1 {
		return fmt.Errorf("%w: no pages", ErrUnreadableFile)
	}
	return nil
}

func normalizeMime(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
