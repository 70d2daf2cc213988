// Package enhance sends extracted items to an AI service one at a time and
// falls back to local categorization whenever the service cannot help.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/pantry-tracker/internal/extraction"
)

// UnavailableNotice is shown to the user when any item fell back to local categorization
const UnavailableNotice = "AI enhancement is unavailable, using local categorization"

// DefaultDelay is the pause between two AI calls
const DefaultDelay = 250 * time.Millisecond

// Request is the payload for a single enhancement call; Items always has length 1
type Request struct {
	Items        []extraction.ExtractedItem `json:"items"`
	StoreName    string                     `json:"storeName"`
	PurchaseDate string                     `json:"purchaseDate"`
}

// Response is the AI service's answer; a usable response has exactly one item
type Response struct {
	Items []extraction.ExtractedItem `json:"items"`
}

// Enhancer improves an item's name, category and shelf life
type Enhancer interface {
	EnhanceItems(ctx context.Context, req Request) (*Response, error)
}

// Fallback is the local categorizer used when the enhancer fails
type Fallback interface {
	Categorize(name string) string
	ShelfLife(name string) int
}

// Progress is called after each item with the number of items done so far
type Progress func(done, total int)

// Outcome summarizes an enhancement pass
type Outcome struct {
	Enhanced int    `json:"enhanced"`
	FellBack int    `json:"fellBack"`
	Notice   string `json:"notice,omitempty"`
}

// Gateway calls the enhancer sequentially, one item per request
type Gateway struct {
	enhancer Enhancer
	fallback Fallback
	delay    time.Duration
}

// NewGateway creates a Gateway. A nil enhancer means every item uses the fallback.
func NewGateway(enhancer Enhancer, fallback Fallback, delay time.Duration) *Gateway {
	return &Gateway{enhancer: enhancer, fallback: fallback, delay: delay}
}

// Enhance returns a new result with enhanced items; result itself is not modified.
// Cancelling ctx stops further AI calls and the remaining items fall back.
func (g *Gateway) Enhance(ctx context.Context, result *extraction.ProcessingResult, progress Progress) (*extraction.ProcessingResult, Outcome) {
	out := result.Clone()
	var outcome Outcome
	total := len(out.Items)

	for i := range out.Items {
		if i > 0 && g.enhancer != nil && ctx.Err() == nil {
			g.wait(ctx)
		}

		enhanced, err := g.enhanceOne(ctx, out.Items[i], result.StoreName, result.PurchaseDate)
		if err != nil {
			slog.Warn("Falling back to local categorization", "item", out.Items[i].Name, "error", err)
			out.Items[i] = g.local(out.Items[i])
			outcome.FellBack++
		} else {
			out.Items[i] = enhanced
			outcome.Enhanced++
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	if outcome.FellBack > 0 {
		outcome.Notice = UnavailableNotice
	}
	out.Confidence = extraction.AggregateConfidence(out.Items)
	return &out, outcome
}

func (g *Gateway) wait(ctx context.Context) {
	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (g *Gateway) enhanceOne(ctx context.Context, item extraction.ExtractedItem, store, date string) (extraction.ExtractedItem, error) {
	if g.enhancer == nil {
		return item, fmt.Errorf("no enhancer configured")
	}
	if err := ctx.Err(); err != nil {
		return item, err
	}

	resp, err := g.enhancer.EnhanceItems(ctx, Request{
		Items:        []extraction.ExtractedItem{item},
		StoreName:    store,
		PurchaseDate: date,
	})
	if err != nil {
		return item, fmt.Errorf("enhancing item: %w", err)
	}
	if resp == nil || len(resp.Items) != 1 {
		return item, fmt.Errorf("expected exactly one item in response")
	}

	got := resp.Items[0]
	if got.Category == "" {
		return item, fmt.Errorf("response item has no category")
	}

	enhanced := item
	if got.Name != "" {
		enhanced.Name = got.Name
	}
	enhanced.Category = got.Category
	if got.EstimatedShelfLife > 0 {
		enhanced.EstimatedShelfLife = got.EstimatedShelfLife
	}
	return enhanced, nil
}

func (g *Gateway) local(item extraction.ExtractedItem) extraction.ExtractedItem {
	item.Category = g.fallback.Categorize(item.Name)
	item.EstimatedShelfLife = g.fallback.ShelfLife(item.Name)
	return item
}
