package extraction

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemTime struct{}

func (systemTime) Now() time.Time {
	return time.Now()
}

// DefaultStoreName is used when no known retailer appears at the top of the receipt
const DefaultStoreName = "Store"

var (
	totalAmountPattern = regexp.MustCompile(`(?i)TOTAL[\s:]*(\d+\.?\d*)`)
	datePatterns       = []struct {
		re     *regexp.Regexp
		layout string
	}{
		{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), "2006-01-02"},
		{regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`), "1/2/2006"},
		{regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2})\b`), "1/2/06"},
	}
)

// LineTrace records what the pipeline did with one line
type LineTrace struct {
	Line           RawLine
	Kind           LineKind
	Reconstruction *Reconstruction
	Item           *ExtractedItem
}

// Parser is the receipt pipeline: classify, reconstruct, extract, merge
type Parser struct {
	vocab         Vocabulary
	classifier    *Classifier
	reconstructor *Reconstructor
	extractor     *Extractor
	ids           IDGenerator
	timeSource    TimeSource
}

// NewParser creates a Parser with random IDs and the system clock
func NewParser(vocab Vocabulary, categorizer Categorizer) *Parser {
	return NewParserWithDeps(vocab, categorizer, uuidGenerator{}, systemTime{})
}

// NewParserWithDeps creates a Parser with custom dependencies for testing
func NewParserWithDeps(vocab Vocabulary, categorizer Categorizer, ids IDGenerator, timeSrc TimeSource) *Parser {
	return &Parser{
		vocab:         vocab,
		classifier:    NewClassifier(vocab),
		reconstructor: NewReconstructor(vocab.Confusions),
		extractor:     NewExtractor(vocab, categorizer, ids),
		ids:           ids,
		timeSource:    timeSrc,
	}
}

// SplitLines splits OCR text into lines, skipping blank lines but keeping their index
func SplitLines(text string) []RawLine {
	var lines []RawLine
	for i, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, RawLine{Index: i, Text: line})
	}
	return lines
}

// Trace runs classification and extraction over every line. Only product
// lines reach price reconstruction and extraction.
func (p *Parser) Trace(text string) []LineTrace {
	var traces []LineTrace
	for _, line := range SplitLines(text) {
		trace := LineTrace{Line: line, Kind: p.classifier.Classify(line.Text)}
		if trace.Kind == Product {
			rec := p.reconstructor.Reconstruct(line.Text)
			trace.Reconstruction = &rec
			trace.Item = p.extractor.Extract(rec)
		} else {
			slog.Debug("Skipping non-product line", "index", line.Index, "kind", trace.Kind)
		}
		traces = append(traces, trace)
	}
	return traces
}

// Parse turns OCR text into a ProcessingResult
func (p *Parser) Parse(text string) *ProcessingResult {
	merger := NewMerger()
	for _, trace := range p.Trace(text) {
		if trace.Item != nil {
			merger.Add(*trace.Item)
		}
	}
	items := merger.Items(p.vocab.MaxItems)

	return &ProcessingResult{
		ReceiptID:    p.ids.Generate(),
		StoreName:    p.storeName(text),
		PurchaseDate: p.purchaseDate(text),
		TotalAmount:  totalAmount(text),
		Items:        items,
		Confidence:   AggregateConfidence(items),
	}
}

func (p *Parser) storeName(text string) string {
	lines := SplitLines(text)
	if len(lines) > p.vocab.StoreScanLines {
		lines = lines[:p.vocab.StoreScanLines]
	}
	for _, line := range lines {
		lower := strings.ToLower(line.Text)
		for _, r := range p.vocab.Retailers {
			if strings.Contains(lower, strings.ToLower(r.Match)) {
				return r.Name
			}
		}
	}
	return DefaultStoreName
}

func (p *Parser) purchaseDate(text string) string {
	type hit struct {
		pos  int
		date time.Time
	}
	var first *hit
	for _, dp := range datePatterns {
		for _, m := range dp.re.FindAllStringSubmatchIndex(text, -1) {
			t, err := time.Parse(dp.layout, text[m[2]:m[3]])
			if err != nil {
				continue
			}
			if first == nil || m[2] < first.pos {
				first = &hit{pos: m[2], date: t}
			}
			break
		}
	}
	if first == nil {
		return p.timeSource.Now().Format("2006-01-02")
	}
	return first.date.Format("2006-01-02")
}

func totalAmount(text string) *decimal.Decimal {
	m := totalAmountPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	amount, err := decimal.NewFromString(strings.TrimSuffix(m[1], "."))
	if err != nil {
		return nil
	}
	return &amount
}
