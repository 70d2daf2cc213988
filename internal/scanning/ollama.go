package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zombor/pantry-tracker/internal/enhance"
)

// Ollama recognizes receipt text and enhances items using a local Ollama server.
// Vision models such as llava or qwen2-vl are needed for recognition.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a new Ollama client
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: baseURL,
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second, // vision models are slow
		},
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// RecognizeText transcribes a receipt image
func (o *Ollama) RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	finalImageData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	text, err := o.chat(ctx, ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading receipts. You transcribe text from images exactly as printed.",
			},
			{
				Role:    "user",
				Content: transcriptionPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(finalImageData)},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return cleanTranscription(text), nil
}

// EnhanceItems asks the model for a better name, category and shelf life
func (o *Ollama) EnhanceItems(ctx context.Context, req enhance.Request) (*enhance.Response, error) {
	prompt, err := enhancementPromptFor(req)
	if err != nil {
		return nil, err
	}

	text, err := o.chat(ctx, ollamaChatRequest{
		Model:    o.model,
		Format:   "json",
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}

	resp, err := parseEnhancementJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing enhancement: %w", err)
	}
	return resp, nil
}

func (o *Ollama) chat(ctx context.Context, reqBody ollamaChatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/api/chat", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return chatResp.Message.Content, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
