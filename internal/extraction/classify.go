package extraction

import (
	"regexp"
	"strings"
)

// LineKind is the classification of a single receipt line
type LineKind int

const (
	Product LineKind = iota
	Promotional
	Total
)

func (k LineKind) String() string {
	switch k {
	case Product:
		return "product"
	case Promotional:
		return "promotional"
	case Total:
		return "total"
	default:
		return "unknown"
	}
}

var (
	leadingNegativeAmount = regexp.MustCompile(`^(?:-\s*\$?\d+[.,]\d{2}|\$?\d+[.,]\d{2}-)`)
	productWord           = regexp.MustCompile(`[A-Za-z]{3,}`)
)

// Classifier separates product lines from promotional and total/payment lines
type Classifier struct {
	promoMarkers    []string
	totalIndicators []string
}

// NewClassifier creates a Classifier from the vocabulary tables
func NewClassifier(vocab Vocabulary) *Classifier {
	c := &Classifier{}
	for _, m := range vocab.PromoMarkers {
		c.promoMarkers = append(c.promoMarkers, strings.ToLower(m))
	}
	for _, t := range vocab.TotalIndicators {
		c.totalIndicators = append(c.totalIndicators, strings.ToLower(t))
	}
	return c
}

// Classify returns the kind of line. The promotional check runs first, so a
// line matching both promotional and total rules is Promotional.
func (c *Classifier) Classify(line string) LineKind {
	trimmed := strings.TrimSpace(line)
	if c.isPromotional(trimmed) {
		return Promotional
	}
	if c.isTotal(trimmed) {
		return Total
	}
	return Product
}

func (c *Classifier) isPromotional(line string) bool {
	head := strings.ToLower(strings.TrimLeft(line, "* "))
	for _, marker := range c.promoMarkers {
		if strings.HasPrefix(head, marker) {
			return true
		}
	}

	// markdown line: a leading negative amount with no product text after it
	loc := leadingNegativeAmount.FindStringIndex(line)
	if loc == nil {
		return false
	}
	return !productWord.MatchString(line[loc[1]:])
}

func (c *Classifier) isTotal(line string) bool {
	for _, word := range strings.Fields(strings.ToLower(line)) {
		for _, indicator := range c.totalIndicators {
			if strings.Contains(word, indicator) {
				return true
			}
		}
	}
	return false
}
