package extraction

import (
	"strings"

	"github.com/shopspring/decimal"
)

// priceTolerance is the largest difference treated as the same price
var priceTolerance = decimal.RequireFromString("0.01")

// Merger collapses repeated items by case-insensitive name as they are produced
type Merger struct {
	items []ExtractedItem
	index map[string]int
	seen  map[string]int
}

// NewMerger creates an empty Merger
func NewMerger() *Merger {
	return &Merger{
		index: make(map[string]int),
		seen:  make(map[string]int),
	}
}

// Add records one occurrence of item. A repeat increments the quantity and,
// when the price differs by more than a cent, replaces the price with the
// running mean of every occurrence so far.
func (m *Merger) Add(item ExtractedItem) {
	key := strings.ToLower(item.Name)
	pos, ok := m.index[key]
	if !ok {
		item.Quantity = max(item.Quantity, 1)
		item.Price = clonePrice(item.Price)
		m.index[key] = len(m.items)
		m.seen[key] = 1
		m.items = append(m.items, item)
		return
	}

	m.seen[key]++
	n := m.seen[key]
	existing := &m.items[pos]
	existing.Quantity++
	existing.Confidence = max(existing.Confidence, item.Confidence)

	switch {
	case item.Price == nil:
	case existing.Price == nil:
		existing.Price = clonePrice(item.Price)
	case existing.Price.Sub(*item.Price).Abs().GreaterThan(priceTolerance):
		total := existing.Price.Mul(decimal.NewFromInt(int64(n - 1))).Add(*item.Price)
		mean := total.DivRound(decimal.NewFromInt(int64(n)), 2)
		existing.Price = &mean
	}
}

// Items returns a copy of the merged items, truncated to limit when limit > 0
func (m *Merger) Items(limit int) []ExtractedItem {
	items := m.items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := CloneItems(items)
	if out == nil {
		out = []ExtractedItem{}
	}
	return out
}

// Merge collapses a batch of items in order
func Merge(items []ExtractedItem) []ExtractedItem {
	m := NewMerger()
	for _, item := range items {
		m.Add(item)
	}
	return m.Items(0)
}
