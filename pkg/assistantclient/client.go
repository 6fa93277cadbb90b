/**
 * @description
 * This package provides a client for the external AI assistant process — the
 * separate service that translates natural language into database queries and
 * executes them. This repository contributes no query-translation logic, only
 * transport: the message is forwarded unmodified and the upstream JSON response
 * is relayed verbatim.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package assistantclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Client is a client for the assistant backend process.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new assistant client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ChatRequest is the payload sent to the assistant's /chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// Chat forwards the message to the assistant process and returns its raw JSON
// response. Connection failures, non-2xx statuses, and malformed bodies all
// surface as errors; the caller decides how to degrade.
func (c *Client) Chat(ctx context.Context, message string) (json.RawMessage, error) {
	body, err := json.Marshal(ChatRequest{Message: message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach assistant backend: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read assistant response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=assistant_client op=chat status=%d msg=\"non-2xx response\"", resp.StatusCode)
		return nil, fmt.Errorf("assistant backend returned status %d", resp.StatusCode)
	}

	if !json.Valid(bodyBytes) {
		return nil, fmt.Errorf("assistant backend returned malformed JSON")
	}
	return json.RawMessage(bodyBytes), nil
}
