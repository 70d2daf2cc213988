package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/pantry-tracker/internal/enhance"
)

// Gemini recognizes receipt text and enhances items using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini client
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// RecognizeText transcribes a receipt image
func (g *Gemini) RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	// genai.ImageData expects the format suffix, and the data is always PNG here
	text, err := g.generate(ctx, genai.ImageData("png", finalImageData), genai.Text(transcriptionPrompt))
	if err != nil {
		return "", err
	}
	return cleanTranscription(text), nil
}

// EnhanceItems asks Gemini for a better name, category and shelf life
func (g *Gemini) EnhanceItems(ctx context.Context, req enhance.Request) (*enhance.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt, err := enhancementPromptFor(req)
	if err != nil {
		return nil, err
	}

	text, err := g.generate(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	resp, err := parseEnhancementJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing enhancement: %w", err)
	}
	return resp, nil
}

func (g *Gemini) generate(ctx context.Context, parts ...genai.Part) (string, error) {
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}
	return responseText.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
