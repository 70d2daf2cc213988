package receipt

import (
	"time"

	"github.com/zombor/pantry-tracker/internal/extraction"
)

// Source is where the items of a run came from
type Source string

const (
	SourceReceipt   Source = "receipt"
	SourceDictation Source = "dictation"
	SourceManual    Source = "manual"
)

// StoredImage is a receipt image kept in local storage
type StoredImage struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Run is one processing run: a receipt image batch, a dictation session or a manual entry
type Run struct {
	ID                string                      `json:"id"`
	Source            Source                      `json:"source"`
	Result            extraction.ProcessingResult `json:"result"`
	Reviewed          bool                        `json:"reviewed"`
	ReviewItems       []extraction.ExtractedItem  `json:"reviewItems"`  // user edits, on a copy of Result.Items
	Text              string                      `json:"text,omitempty"` // OCR text or dictation transcript
	Images            []StoredImage               `json:"images,omitempty"`
	EnhancementNotice string                      `json:"enhancementNotice,omitempty"`
	CommittedAt       *time.Time                  `json:"committedAt,omitempty"`
	CreatedAt         time.Time                   `json:"createdAt"`
	UpdatedAt         time.Time                   `json:"updatedAt"`
}

// Items returns a copy of the items to commit: the reviewed list once the
// user edited it, even when they removed every item, otherwise the extracted items
func (r *Run) Items() []extraction.ExtractedItem {
	if r.Reviewed {
		return extraction.CloneItems(r.ReviewItems)
	}
	return extraction.CloneItems(r.Result.Items)
}

// Committed reports whether the run was already sent to the inventory
func (r *Run) Committed() bool {
	return r.CommittedAt != nil
}
