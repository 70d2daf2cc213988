// Package inventory commits reviewed items to the external inventory API.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/pantry-tracker/internal/extraction"
)

// ErrCommitRejected is returned when the inventory API answers with a non-2xx status
var ErrCommitRejected = errors.New("inventory rejected the commit")

// CommitRequest is the payload accepted by the inventory API
type CommitRequest struct {
	ReceiptID    string                     `json:"receiptId"`
	Items        []extraction.ExtractedItem `json:"items"`
	PurchaseDate string                     `json:"purchaseDate"`
}

// Client posts commits to the inventory API
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Client. An empty token sends no Authorization header.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Commit sends the items to the inventory
func (c *Client) Commit(ctx context.Context, commit CommitRequest) error {
	jsonData, err := json.Marshal(commit)
	if err != nil {
		return fmt.Errorf("marshaling commit: %w", err)
	}

	url := fmt.Sprintf("%s/api/receipts/commit", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling inventory API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w (status %d): %s", ErrCommitRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
