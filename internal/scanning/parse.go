package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/pantry-tracker/internal/enhance"
	"github.com/zombor/pantry-tracker/internal/extraction"
)

// stripCodeFences removes markdown code block markers around a model response
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// cleanTranscription normalizes the text returned by an LLM recognizer
func cleanTranscription(text string) string {
	text = strings.ReplaceAll(stripCodeFences(text), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// parseEnhancementJSON parses an enhancement response. Models sometimes answer
// with a bare item object instead of {"items": [...]}; both are accepted.
func parseEnhancementJSON(text string) (*enhance.Response, error) {
	text = stripCodeFences(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var resp enhance.Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	if len(resp.Items) == 0 {
		var item extraction.ExtractedItem
		if err := json.Unmarshal([]byte(text), &item); err == nil && item.Category != "" {
			resp.Items = []extraction.ExtractedItem{item}
		}
	}

	for i := range resp.Items {
		resp.Items[i].Name = strings.TrimSpace(resp.Items[i].Name)
		resp.Items[i].Category = strings.ToLower(strings.TrimSpace(resp.Items[i].Category))
	}
	return &resp, nil
}

// enhancementPromptFor renders the prompt for a single-item request
func enhancementPromptFor(req enhance.Request) (string, error) {
	if len(req.Items) != 1 {
		return "", fmt.Errorf("enhancement requests carry exactly one item, got %d", len(req.Items))
	}
	item, err := json.Marshal(req.Items[0])
	if err != nil {
		return "", fmt.Errorf("marshaling item: %w", err)
	}
	return fmt.Sprintf(enhancementPrompt, req.StoreName, req.PurchaseDate, item), nil
}
