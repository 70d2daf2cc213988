package scanning

import "context"

// Recognizer turns a receipt image into raw text
type Recognizer interface {
	// RecognizeText runs OCR over one image/PDF and returns its text, line by line
	RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close releases resources held by the recognizer
	Close() error
}
