package extraction

import (
	"log/slog"
	"strings"
	"unicode"
)

// Categorizer maps an item name to a category and an expected shelf life in days
type Categorizer interface {
	Categorize(name string) string
	ShelfLife(name string) int
}

// IDGenerator generates unique IDs for items and results
type IDGenerator interface {
	Generate() string
}

// Extractor turns a reconstructed product line into an item
type Extractor struct {
	stopwords     map[string]struct{}
	adjectives    map[string]struct{}
	blocklist     map[string]struct{}
	maxNameTokens int
	categorizer   Categorizer
	ids           IDGenerator
}

// NewExtractor creates an Extractor from the vocabulary tables
func NewExtractor(vocab Vocabulary, categorizer Categorizer, ids IDGenerator) *Extractor {
	return &Extractor{
		stopwords:     wordSet(vocab.Stopwords),
		adjectives:    wordSet(vocab.Adjectives),
		blocklist:     wordSet(vocab.NameBlocklist),
		maxNameTokens: vocab.MaxNameTokens,
		categorizer:   categorizer,
		ids:           ids,
	}
}

// Extract derives an item from a line's tokens and prices. It returns nil
// when no usable name survives or the price is missing or out of bounds.
func (e *Extractor) Extract(rec Reconstruction) *ExtractedItem {
	positive := rec.Positive()
	if len(positive) == 0 {
		return nil
	}
	price := positive[0]
	if !PriceInBounds(price.Amount) {
		slog.Debug("Dropping line with out of bounds price", "price", price.Amount.StringFixed(2), "tokens", rec.Tokens)
		return nil
	}

	name := e.name(rec)
	if name == "" {
		slog.Debug("Dropping line with no usable name", "tokens", rec.Tokens)
		return nil
	}

	amount := price.Amount.Round(2)
	return &ExtractedItem{
		ID:                 e.ids.Generate(),
		Name:               titleCase(name),
		Quantity:           1,
		Unit:               DefaultUnit,
		Price:              &amount,
		Category:           e.categorizer.Categorize(name),
		EstimatedShelfLife: e.categorizer.ShelfLife(name),
		Confidence:         price.Strategy.confidence(),
	}
}

func (e *Extractor) name(rec Reconstruction) string {
	var words []string
	for i, tok := range rec.Tokens {
		if rec.Consumed.Has(i) || e.noise(tok) {
			continue
		}
		words = append(words, strings.ToLower(tok))
		if len(words) == e.maxNameTokens {
			break
		}
	}

	cleaned := words[:0]
	for _, w := range words {
		if _, ok := e.adjectives[w]; ok {
			continue
		}
		cleaned = append(cleaned, w)
	}

	name := strings.Join(cleaned, " ")
	if len(name) < 2 {
		return ""
	}
	if _, ok := e.blocklist[name]; ok {
		return ""
	}
	return name
}

// noise reports whether a token cannot be part of an item name
func (e *Extractor) noise(tok string) bool {
	hasAlnum, hasDigit, allDigits := false, false, true
	for _, ch := range tok {
		switch {
		case unicode.IsDigit(ch):
			hasAlnum, hasDigit = true, true
		case unicode.IsLetter(ch):
			hasAlnum, allDigits = true, false
		default:
			allDigits = false
		}
	}
	if !hasAlnum {
		return true
	}
	if _, ok := e.stopwords[strings.ToLower(tok)]; ok {
		return true
	}
	// short OCR noise, unless it carries digits
	if !hasDigit && len([]rune(tok)) <= 2 {
		return true
	}
	// UPC and PLU codes
	return allDigits && len(tok) >= 5
}

func titleCase(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
