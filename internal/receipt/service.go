package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/pantry-tracker/internal/enhance"
	"github.com/zombor/pantry-tracker/internal/extraction"
	"github.com/zombor/pantry-tracker/internal/inventory"
	"github.com/zombor/pantry-tracker/internal/scanning"
)

// IDGenerator generates unique IDs for runs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// ReceiptParser turns OCR text into a result
type ReceiptParser interface {
	Parse(text string) *extraction.ProcessingResult
}

// DictationParser turns a spoken transcript into items
type DictationParser interface {
	Parse(transcript string) []extraction.ManualItem
}

// Enhancer runs the AI enhancement pass over a result
type Enhancer interface {
	Enhance(ctx context.Context, result *extraction.ProcessingResult, progress enhance.Progress) (*extraction.ProcessingResult, enhance.Outcome)
}

// Committer sends the final item list to the inventory
type Committer interface {
	Commit(ctx context.Context, commit inventory.CommitRequest) error
}

// ProgressFunc reports progress of a processing stage ("ocr" or "enhance")
type ProgressFunc func(stage string, done, total int)

// Upload is one submitted receipt image
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Options holds the pipelines and collaborators used by the Service
type Options struct {
	Parser    ReceiptParser
	Dictation DictationParser
	// Categorizer fills in category and shelf life for manual items that lack them
	Categorizer extraction.Categorizer
	// Enhancer is optional; without it receipt runs keep local categorization
	Enhancer  Enhancer
	Committer Committer
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles processing runs from capture to commit
type Service struct {
	db          DB
	recognizer  scanning.Recognizer
	storage     Storage
	opts        Options
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, recognizer scanning.Recognizer, storage Storage, opts Options) *Service {
	return NewServiceWithDeps(db, recognizer, storage, opts, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer scanning.Recognizer, storage Storage, opts Options, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		storage:     storage,
		opts:        opts,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

func (p ProgressFunc) report(stage string, done, total int) {
	if p != nil {
		p(stage, done, total)
	}
}

// ProcessImages stores the images, runs OCR on each in order and extracts items
// from the combined text. A recognizer failure is ErrProcessingFailed; no
// usable items is ErrNoItemsFound. In both cases the images are removed.
func (s *Service) ProcessImages(ctx context.Context, uploads []Upload, progress ProgressFunc) (*Run, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", ErrInvalidInput)
	}

	id := s.idGenerator.Generate()
	images := make([]StoredImage, 0, len(uploads))
	for i, up := range uploads {
		name, err := s.storage.Save(fmt.Sprintf("%s_%d_%s", id, i, sanitizeFilename(up.Filename)), up.Data)
		if err != nil {
			s.removeImages(images)
			return nil, fmt.Errorf("saving image: %w", err)
		}
		images = append(images, StoredImage{Filename: name, ContentType: up.ContentType})
	}

	texts := make([]string, 0, len(uploads))
	for i, up := range uploads {
		text, err := s.recognizer.RecognizeText(ctx, up.Data, up.ContentType)
		if err != nil {
			slog.Error("Failed to recognize receipt text",
				"filename", up.Filename,
				"content_type", up.ContentType,
				"file_size", len(up.Data),
				"error", err,
			)
			s.removeImages(images)
			return nil, fmt.Errorf("%w: recognizing %s: %w", ErrProcessingFailed, up.Filename, err)
		}
		texts = append(texts, text)
		progress.report("ocr", i+1, len(uploads))
	}

	run, err := s.processText(ctx, id, strings.Join(texts, "\n"), images, progress)
	if err != nil {
		s.removeImages(images)
		return nil, err
	}
	return run, nil
}

// ProcessText extracts items from OCR text that was recognized elsewhere
func (s *Service) ProcessText(ctx context.Context, text string, progress ProgressFunc) (*Run, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	return s.processText(ctx, s.idGenerator.Generate(), text, nil, progress)
}

func (s *Service) processText(ctx context.Context, id, text string, images []StoredImage, progress ProgressFunc) (*Run, error) {
	result := s.opts.Parser.Parse(text)
	result.ReceiptID = id
	if len(result.Items) == 0 {
		return nil, ErrNoItemsFound
	}

	var notice string
	if s.opts.Enhancer != nil {
		enhanced, outcome := s.opts.Enhancer.Enhance(ctx, result, func(done, total int) {
			progress.report("enhance", done, total)
		})
		if outcome.Notice != "" {
			slog.Warn("Enhancement degraded", "run", id, "fell_back", outcome.FellBack, "enhanced", outcome.Enhanced)
		}
		result, notice = enhanced, outcome.Notice
	}

	now := s.timeSource.Now()
	run := &Run{
		ID:                id,
		Source:            SourceReceipt,
		Result:            *result,
		Text:              text,
		Images:            images,
		EnhancementNotice: notice,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.db.SaveRun(run); err != nil {
		return nil, fmt.Errorf("saving run to database: %w", err)
	}
	return run, nil
}

// ProcessDictation parses a finalized dictation transcript
func (s *Service) ProcessDictation(ctx context.Context, transcript string) (*Run, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript is empty", ErrInvalidInput)
	}

	manual := s.opts.Dictation.Parse(transcript)
	if len(manual) == 0 {
		return nil, ErrNoItemsFound
	}

	items := make([]extraction.ExtractedItem, 0, len(manual))
	for _, m := range manual {
		items = append(items, m.Promote())
	}
	return s.saveItemsRun(SourceDictation, transcript, items)
}

// ProcessManual records items typed in by the user, the last fallback tier
func (s *Service) ProcessManual(ctx context.Context, manual []extraction.ManualItem) (*Run, error) {
	if len(manual) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}

	items := make([]extraction.ExtractedItem, 0, len(manual))
	for i, m := range manual {
		m.Name = strings.TrimSpace(m.Name)
		if err := validateItem(m.Name, max(m.Quantity, 1), m.Price); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if m.Category == "" && s.opts.Categorizer != nil {
			m.Category = s.opts.Categorizer.Categorize(m.Name)
		}
		if m.EstimatedShelfLife <= 0 && s.opts.Categorizer != nil {
			m.EstimatedShelfLife = s.opts.Categorizer.ShelfLife(m.Name)
		}
		m.Confidence = extraction.ManualConfidence
		items = append(items, m.Promote())
	}
	return s.saveItemsRun(SourceManual, "", items)
}

func (s *Service) saveItemsRun(source Source, text string, items []extraction.ExtractedItem) (*Run, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()
	run := &Run{
		ID:     id,
		Source: source,
		Result: extraction.ProcessingResult{
			ReceiptID:    id,
			PurchaseDate: now.Format("2006-01-02"),
			Items:        items,
			Confidence:   extraction.AggregateConfidence(items),
		},
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.SaveRun(run); err != nil {
		return nil, fmt.Errorf("saving run to database: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs
func (s *Service) ListRuns(ctx context.Context) ([]*Run, error) {
	runs, err := s.db.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its images
func (s *Service) DeleteRun(ctx context.Context, id string) error {
	run, err := s.db.GetRun(id)
	if err != nil {
		return fmt.Errorf("getting run for deletion: %w", err)
	}

	s.removeImages(run.Images)

	if err := s.db.DeleteRun(id); err != nil {
		return fmt.Errorf("deleting run from database: %w", err)
	}
	return nil
}

// GetRunImage returns one stored image of a run and its content type
func (s *Service) GetRunImage(ctx context.Context, id string, index int) ([]byte, string, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting run: %w", err)
	}
	if index < 0 || index >= len(run.Images) {
		return nil, "", fmt.Errorf("image %d of run %s: %w", index, id, ErrNotFound)
	}

	img := run.Images[index]
	data, err := s.storage.Get(img.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting run image: %w", err)
	}
	return data, img.ContentType, nil
}

// ReviewItems stores the user's edited item list. The extracted result is
// left untouched; edits live on their own copy.
func (s *Service) ReviewItems(ctx context.Context, id string, items []extraction.ExtractedItem) (*Run, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	if run.Committed() {
		return nil, ErrAlreadyCommitted
	}

	reviewed := extraction.CloneItems(items)
	if reviewed == nil {
		reviewed = []extraction.ExtractedItem{}
	}
	for i := range reviewed {
		item := &reviewed[i]
		item.Name = strings.TrimSpace(item.Name)
		if err := validateItem(item.Name, item.Quantity, item.Price); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if item.Unit == "" {
			item.Unit = extraction.DefaultUnit
		}
	}

	run.Reviewed = true
	run.ReviewItems = reviewed
	run.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveRun(run); err != nil {
		return nil, fmt.Errorf("saving reviewed items: %w", err)
	}
	return run, nil
}

// Commit sends the run's items to the inventory. A run can be committed once.
func (s *Service) Commit(ctx context.Context, id string) (*Run, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	if run.Committed() {
		return nil, ErrAlreadyCommitted
	}
	items := run.Items()
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: run %s has no items to commit", ErrInvalidInput, id)
	}

	err = s.opts.Committer.Commit(ctx, inventory.CommitRequest{
		ReceiptID:    run.Result.ReceiptID,
		Items:        items,
		PurchaseDate: run.Result.PurchaseDate,
	})
	if err != nil {
		return nil, fmt.Errorf("committing run: %w", err)
	}

	now := s.timeSource.Now()
	run.CommittedAt = &now
	run.UpdatedAt = now
	if err := s.db.SaveRun(run); err != nil {
		return nil, fmt.Errorf("saving committed run: %w", err)
	}
	return run, nil
}

func (s *Service) removeImages(images []StoredImage) {
	for _, img := range images {
		if err := s.storage.Delete(img.Filename); err != nil {
			slog.Warn("Failed to delete image", "filename", img.Filename, "error", err)
		}
	}
}

func validateItem(name string, quantity int, price *decimal.Decimal) error {
	if name == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if price != nil && !extraction.PriceInBounds(*price) {
		return fmt.Errorf("%w: price %s is out of range", ErrInvalidInput, price.StringFixed(2))
	}
	return nil
}
