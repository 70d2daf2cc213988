// Package tesseract is a local OCR recognizer backed by libtesseract.
// It lives in its own package so the cgo dependency is only linked when used.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/pantry-tracker/internal/scanning"
)

// Recognizer runs Tesseract over binarized receipt images
type Recognizer struct {
	language  string
	threshold uint8
}

// New creates a Recognizer for the given Tesseract language code
func New(language string, threshold uint8) *Recognizer {
	if language == "" {
		language = "eng"
	}
	if threshold == 0 {
		threshold = scanning.DefaultThreshold
	}
	return &Recognizer{language: language, threshold: threshold}
}

// RecognizeText transcribes a receipt image. Tesseract itself cannot be
// interrupted, so ctx is only checked before the engine starts.
func (r *Recognizer) RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prepared, err := scanning.PrepareForOCR(imageData, contentType, r.threshold)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("setting tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("loading image into tesseract: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("running tesseract: %w", err)
	}
	return text, nil
}

// Close is a no-op; a tesseract client is created per image
func (r *Recognizer) Close() error {
	return nil
}
