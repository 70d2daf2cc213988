package extraction

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Retailer maps a substring found near the top of a receipt to a display name
type Retailer struct {
	Match string `yaml:"match"`
	Name  string `yaml:"name"`
}

// Confusion is a single OCR letter-to-digit correction rule
type Confusion struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Vocabulary holds the hand-tuned lookup tables used by the receipt pipeline.
// The defaults are calibrated against US grocery receipts; a YAML file can
// replace any table wholesale.
type Vocabulary struct {
	PromoMarkers    []string    `yaml:"promo_markers"`
	TotalIndicators []string    `yaml:"total_indicators"`
	Stopwords       []string    `yaml:"stopwords"`
	Adjectives      []string    `yaml:"adjectives"`
	NameBlocklist   []string    `yaml:"name_blocklist"`
	Retailers       []Retailer  `yaml:"retailers"`
	Confusions      []Confusion `yaml:"confusions"`
	MaxNameTokens   int         `yaml:"max_name_tokens"`
	MaxItems        int         `yaml:"max_items"`
	StoreScanLines  int         `yaml:"store_scan_lines"`
}

// DefaultVocabulary returns the built-in tables
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		PromoMarkers: []string{
			"promo", "promotion", "discount", "coupon", "save $", "save$",
			"instant savings", "markdown", "you saved",
		},
		TotalIndicators: []string{
			"total", "subtotal", "balance", "due", "tender", "cash", "change",
			"visa", "mastercard", "amex", "discover", "debit", "credit", "ebt",
			"tax", "fee", "payment", "auth", "approved",
		},
		Stopwords: []string{
			// particles
			"the", "of", "and", "for", "with", "w", "a", "an", "to", "in",
			// measurements
			"ea", "each", "lb", "lbs", "oz", "kg", "ct", "pk", "pkg", "qty", "gal", "@",
			// receipt artifacts
			"reg", "tx", "tf", "nt", "sc", "item", "items", "price", "net", "wt",
			"walmart", "wal", "mart", "kroger", "safeway", "costco", "target",
			"publix", "aldi", "heb", "wegmans", "supercenter", "market", "store",
		},
		Adjectives: []string{
			"organic", "fresh", "grade", "select", "choice", "promo", "sale",
			"discount", "coupon", "bonus",
		},
		NameBlocklist: []string{
			"tax", "fee", "total", "sub", "cash", "card", "order", "store",
		},
		Retailers: []Retailer{
			{Match: "walmart", Name: "Walmart"},
			{Match: "wal-mart", Name: "Walmart"},
			{Match: "target", Name: "Target"},
			{Match: "kroger", Name: "Kroger"},
			{Match: "safeway", Name: "Safeway"},
			{Match: "costco", Name: "Costco"},
			{Match: "whole foods", Name: "Whole Foods"},
			{Match: "trader joe", Name: "Trader Joe's"},
			{Match: "aldi", Name: "Aldi"},
			{Match: "publix", Name: "Publix"},
			{Match: "wegmans", Name: "Wegmans"},
			{Match: "h-e-b", Name: "H-E-B"},
			{Match: "heb", Name: "H-E-B"},
			{Match: "meijer", Name: "Meijer"},
			{Match: "sprouts", Name: "Sprouts"},
		},
		Confusions: []Confusion{
			{From: "S", To: "5"},
			{From: "s", To: "5"},
			{From: "l", To: "1"},
			{From: "I", To: "1"},
			{From: "O", To: "0"},
			{From: "o", To: "0"},
		},
		MaxNameTokens:  4,
		MaxItems:       20,
		StoreScanLines: 5,
	}
}

// LoadVocabulary reads a YAML file on top of the default tables. An empty
// path returns the defaults.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return vocab, fmt.Errorf("reading vocabulary file: %w", err)
	}
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return vocab, fmt.Errorf("parsing vocabulary file: %w", err)
	}
	if vocab.MaxNameTokens <= 0 || vocab.MaxItems <= 0 || vocab.StoreScanLines <= 0 {
		return vocab, fmt.Errorf("vocabulary limits must be positive")
	}
	for _, c := range vocab.Confusions {
		if len([]rune(c.From)) != 1 || len([]rune(c.To)) != 1 {
			return vocab, fmt.Errorf("confusion rule %q -> %q must map one character to one character", c.From, c.To)
		}
	}
	return vocab, nil
}

// wordSet builds a lowercase lookup set
func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
