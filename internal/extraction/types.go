package extraction

import (
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Confidence levels assigned by source
const (
	ManualConfidence    = 100
	DictationConfidence = 85
	baseLineConfidence  = 60
)

// DefaultUnit is used whenever no unit was recognized
const DefaultUnit = "each"

var (
	// MinPrice and MaxPrice are exclusive bounds for any item price
	MinPrice = decimal.RequireFromString("0.01")
	MaxPrice = decimal.RequireFromString("100.00")
)

// RawLine is one line of OCR text and its position in the document
type RawLine struct {
	Index int
	Text  string
}

// ExtractedItem is a purchasable item recognized from a receipt, a dictation or manual entry
type ExtractedItem struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Quantity           int              `json:"quantity"`
	Unit               string           `json:"unit"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	Category           string           `json:"category"`
	EstimatedShelfLife int              `json:"estimatedShelfLife"`
	Confidence         int              `json:"confidence"`
}

// ProcessingResult is the outcome of one image batch or one dictation session
type ProcessingResult struct {
	ReceiptID    string           `json:"receiptId"`
	StoreName    string           `json:"storeName,omitempty"`
	PurchaseDate string           `json:"purchaseDate"`
	TotalAmount  *decimal.Decimal `json:"totalAmount,omitempty"`
	Items        []ExtractedItem  `json:"items"`
	Confidence   int              `json:"confidence"`
}

// ManualItem is the lighter record produced by manual entry and dictation
type ManualItem struct {
	Name               string           `json:"name"`
	Quantity           int              `json:"quantity"`
	Unit               string           `json:"unit"`
	Price              *decimal.Decimal `json:"price,omitempty"`
	Category           string           `json:"category"`
	EstimatedShelfLife int              `json:"estimatedShelfLife"`
	Confidence         int              `json:"confidence"`
}

// Promote converts a manual item into the shared ExtractedItem shape with a fresh ID
func (m ManualItem) Promote() ExtractedItem {
	unit := m.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	return ExtractedItem{
		ID:                 uuid.NewString(),
		Name:               m.Name,
		Quantity:           max(m.Quantity, 1),
		Unit:               unit,
		Price:              clonePrice(m.Price),
		Category:           m.Category,
		EstimatedShelfLife: m.EstimatedShelfLife,
		Confidence:         m.Confidence,
	}
}

// PriceInBounds reports whether p lies strictly between MinPrice and MaxPrice
func PriceInBounds(p decimal.Decimal) bool {
	return p.GreaterThan(MinPrice) && p.LessThan(MaxPrice)
}

// CloneItems returns a deep copy of items
func CloneItems(items []ExtractedItem) []ExtractedItem {
	if items == nil {
		return nil
	}
	out := make([]ExtractedItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Price = clonePrice(item.Price)
	}
	return out
}

// Clone returns a deep copy of the result
func (r ProcessingResult) Clone() ProcessingResult {
	c := r
	c.Items = CloneItems(r.Items)
	c.TotalAmount = clonePrice(r.TotalAmount)
	return c
}

// AggregateConfidence is the rounded mean of the item confidences, 0 for no items
func AggregateConfidence(items []ExtractedItem) int {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, item := range items {
		sum += item.Confidence
	}
	return int(math.Round(float64(sum) / float64(len(items))))
}

func clonePrice(p *decimal.Decimal) *decimal.Decimal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
