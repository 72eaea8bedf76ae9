package documents

import (
	"bytes"
	"errors"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func TestPreScreenAcceptsImages(t *testing.T) {
	png := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x00}, 64)...)
	mime, err := preScreen(png, DefaultMaxUploadBytes)
	if err != nil {
		t.Fatalf("preScreen(png): %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("mime = %q, want image/png", mime)
	}

	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x00}, 64)...)
	mime, err = preScreen(jpeg, DefaultMaxUploadBytes)
	if err != nil {
		t.Fatalf("preScreen(jpeg): %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("mime = %q, want image/jpeg", mime)
	}
}

func TestPreScreenRejectsEmptyFile(t *testing.T) {
	if _, err := preScreen(nil, DefaultMaxUploadBytes); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestPreScreenRejectsOversizedFile(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x00}, 128)...)
	if _, err := preScreen(big, 64); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestPreScreenRejectsUnsupportedType(t *testing.T) {
	text := []byte("name,income\nJane Porter,42000\n")
	if _, err := preScreen(text, DefaultMaxUploadBytes); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("err = %v, want ErrUnsupportedFile", err)
	}
}

func TestPreScreenRejectsBrokenPDF(t *testing.T) {
	// Sniffs as a PDF but has no readable structure behind the header.
	broken := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte{0xDE, 0xAD}, 32)...)
	if _, err := preScreen(broken, DefaultMaxUploadBytes); !errors.Is(err, ErrUnreadableFile) {
		t.Fatalf("err = %v, want ErrUnreadableFile", err)
	}
}
