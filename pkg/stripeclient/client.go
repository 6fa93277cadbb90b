/**
 * @description
 * This package provides a client for the Stripe API, covering the two calls the
 * banking service needs: creating a PaymentIntent to fund a deposit, and
 * retrieving it to confirm the charge succeeded before the ledger is credited.
 * Payment capture itself is Stripe's responsibility; this client is transport only.
 *
 * @dependencies
 * - context, net/http, net/url, strconv, time: Standard Go libraries.
 */
package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public Stripe API endpoint.
const DefaultBaseURL = "https://api.stripe.com"

// Client is a client for the Stripe API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new Stripe API client. An empty baseURL selects the
// public endpoint; tests point it at a local server.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PaymentIntent is the subset of Stripe's PaymentIntent object the service reads.
type PaymentIntent struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status"` // e.g. 'requires_payment_method', 'succeeded'
	ClientSecret string            `json:"client_secret"`
	Metadata     map[string]string `json:"metadata"`
}

// ErrorResponse represents an error returned by the Stripe API.
type ErrorResponse struct {
	ErrorDetail struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	if e.ErrorDetail.Message != "" {
		return fmt.Sprintf("stripe api error: %s - %s", e.ErrorDetail.Type, e.ErrorDetail.Message)
	}
	return "unknown stripe api error"
}

// CreatePaymentIntent creates a PaymentIntent for a deposit. Metadata keys tie
// the intent back to the funding account.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", strings.ToLower(currency))
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	return c.do(ctx, "POST", "/v1/payment_intents", form)
}

// GetPaymentIntent retrieves a PaymentIntent by id.
func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	return c.do(ctx, "GET", "/v1/payment_intents/"+url.PathEscape(intentID), nil)
}

// do executes a form-encoded Stripe request and decodes the PaymentIntent response.
func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*PaymentIntent, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute stripe request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=stripe_client path=%s status=%d msg=\"non-2xx response (unparsable error body)\"", path, resp.StatusCode)
			return nil, fmt.Errorf("failed to decode stripe error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=stripe_client path=%s status=%d code=%q msg=%q", path, resp.StatusCode, errResp.ErrorDetail.Code, errResp.ErrorDetail.Message)
		return nil, &errResp
	}

	var intent PaymentIntent
	if err := json.Unmarshal(bodyBytes, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return &intent, nil
}
