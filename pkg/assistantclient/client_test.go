package assistantclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChat_ForwardsMessageAndReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Message != "list my recent transactions" {
			t.Errorf("unexpected message %q", req.Message)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"here you go","rows":3}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	raw, err := client.Chat(context.Background(), "list my recent transactions")
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	var resp struct {
		Response string `json:"response"`
		Rows     int    `json:"rows"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Response != "here you go" || resp.Rows != 3 {
		t.Errorf("unexpected response payload: %+v", resp)
	}
}

func TestChat_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Chat(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}

func TestChat_MalformedJSONIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Chat(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error for a malformed body")
	}
}

func TestChat_ConnectionRefusedIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)
	if _, err := client.Chat(context.Background(), "hello"); err == nil {
		t.Fatal("expected an error when the assistant is unreachable")
	}
}
