package stripeclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_123" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.PostForm.Get("amount"); got != "2500" {
			t.Errorf("unexpected amount %q", got)
		}
		if got := r.PostForm.Get("currency"); got != "usd" {
			t.Errorf("expected lowercased currency, got %q", got)
		}
		if got := r.PostForm.Get("metadata[account_id]"); got != "acc-1" {
			t.Errorf("unexpected metadata %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","amount":2500,"currency":"usd","status":"requires_payment_method","client_secret":"pi_123_secret"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123")
	intent, err := client.CreatePaymentIntent(context.Background(), 2500, "USD", map[string]string{"account_id": "acc-1"})
	if err != nil {
		t.Fatalf("CreatePaymentIntent returned error: %v", err)
	}
	if intent.ID != "pi_123" || intent.ClientSecret != "pi_123_secret" {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestGetPaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/payment_intents/pi_123" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"pi_123","amount":2500,"currency":"usd","status":"succeeded","metadata":{"account_id":"acc-1","user_id":"user-1"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123")
	intent, err := client.GetPaymentIntent(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("GetPaymentIntent returned error: %v", err)
	}
	if intent.Status != "succeeded" {
		t.Errorf("expected succeeded status, got %q", intent.Status)
	}
	if intent.Metadata["user_id"] != "user-1" || intent.Metadata["account_id"] != "acc-1" {
		t.Errorf("unexpected metadata: %v", intent.Metadata)
	}
}

func TestErrorResponseSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123")
	_, err := client.GetPaymentIntent(context.Background(), "pi_bad")
	if err == nil {
		t.Fatal("expected an error for a declined card")
	}
	var stripeErr *ErrorResponse
	if !errors.As(err, &stripeErr) {
		t.Fatalf("expected *ErrorResponse, got %T", err)
	}
	if stripeErr.ErrorDetail.Code != "card_declined" {
		t.Errorf("unexpected error code %q", stripeErr.ErrorDetail.Code)
	}
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client := NewClient("", "sk_test_123")
	if client.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base URL, got %q", client.BaseURL)
	}
}
