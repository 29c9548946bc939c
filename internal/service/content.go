package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentBytes bounds uploaded study material so a single upload
	// cannot blow up prompt sizes.
	MaxContentBytes = 100_000

	MinContentLength = 20
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrContentTooShort     = errors.New("content too short")
	ErrContentTooLarge     = errors.New("content too large")
	ErrContentNotText      = errors.New("content is not valid text")
)

// ExtractContent validates uploaded study material and returns the cleaned
// text. Only raw text is accepted; a filename, when present, must carry a
// .txt extension.
func ExtractContent(filename string, data []byte) (string, error) {
	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		if ext != ".txt" {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
		}
	}

	if len(data) > MaxContentBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrContentTooLarge, len(data))
	}
	if !utf8.Valid(data) {
		return "", ErrContentNotText
	}

	text := strings.TrimSpace(string(data))
	if len(text) < MinContentLength {
		return "", fmt.Errorf("%w: %d characters", ErrContentTooShort, len(text))
	}
	return text, nil
}
