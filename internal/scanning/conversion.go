package scanning

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// DefaultThreshold is the gray level separating ink from paper during binarization
const DefaultThreshold = 128

// transcriptionPrompt is shared by the LLM recognizers
const transcriptionPrompt = `You are reading a photographed grocery receipt. Transcribe every line of text exactly as printed, top to bottom.

Rules:
- Keep one receipt line per output line, including item lines, prices, totals and the store header
- Keep prices, quantities and codes exactly as printed; do not correct or reformat them
- Do not summarize, translate or explain anything
- Do not use markdown code blocks
- Return only the transcribed text`

// enhancementPrompt asks for a better name, category and shelf life for one item
const enhancementPrompt = `You are helping catalog groceries bought at %q on %s.

Here is one item recognized from the receipt:
%s

Improve it:
1. **name**: expand receipt abbreviations into a readable product name (e.g. "GV WHL MLK" becomes "Whole Milk")
2. **category**: one of produce, dairy, meat, bakery, frozen, beverages, personal-care, household, pantry
3. **estimatedShelfLife**: typical number of days the item stays usable after purchase

Return ONLY valid JSON in this exact format:
{
  "items": [
    {"name": "Whole Milk", "category": "dairy", "estimatedShelfLife": 7}
  ]
}

Important:
- Return exactly one item
- estimatedShelfLife must be a whole number
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// pdfToImage converts the first page of a PDF to a PNG image
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// imageToPNG converts JPEG, GIF or HEIC data to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// prepareImageData converts PDFs and non-PNG images to PNG. The returned data is always PNG.
func prepareImageData(imageData []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	switch {
	case mimeType == "application/pdf":
		data, err := pdfToImage(imageData)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return data, nil
	case mimeType != "image/png" || isHEICFormat(imageData):
		data, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, fmt.Errorf("converting image to PNG: %w", err)
		}
		return data, nil
	}
	return imageData, nil
}

// binarize turns a PNG into black ink on white paper using a fixed gray threshold
func binarize(pngData []byte, threshold uint8) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decoding image for binarization: %w", err)
	}

	gray := imaging.Grayscale(img)
	bw := imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		if c.R >= threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	})

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, bw, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding binarized image: %w", err)
	}
	return buf.Bytes(), nil
}

// PrepareForOCR converts an upload to PNG and binarizes it for a local OCR engine
func PrepareForOCR(imageData []byte, contentType string, threshold uint8) ([]byte, error) {
	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}
	return binarize(pngData, threshold)
}
