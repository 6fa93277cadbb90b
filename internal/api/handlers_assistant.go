/**
 * @description
 * HTTP handler for the AI banking assistant proxy. The endpoint forwards the
 * caller's free-text message to the external assistant process and relays its
 * JSON response unmodified. Any upstream failure — connection refused, non-2xx,
 * malformed body — degrades to a canned human-readable apology with an error
 * status. No retries.
 */

package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vaultbank/banking-service/internal/app"
	"github.com/vaultbank/banking-service/pkg/assistantclient"
)

// assistantUnavailableMessage is returned whenever the upstream process cannot
// produce a usable response.
const assistantUnavailableMessage = "Sorry, the AI assistant is currently unavailable. Please try again later."

// AssistantHandlers holds the assistant client and the chat rate limiter.
type AssistantHandlers struct {
	banking           *Handlers
	client            *assistantclient.Client
	limiter           *app.RedisRateLimiter
	requestsPerMinute int
}

// NewAssistantHandlers creates a new instance of AssistantHandlers. A nil
// limiter or non-positive limit disables throttling.
func NewAssistantHandlers(banking *Handlers, client *assistantclient.Client, limiter *app.RedisRateLimiter, requestsPerMinute int) *AssistantHandlers {
	return &AssistantHandlers{
		banking:           banking,
		client:            client,
		limiter:           limiter,
		requestsPerMinute: requestsPerMinute,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

// ChatHandler proxies POST /api/py/chat to the external assistant process.
func (h *AssistantHandlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.banking.caller(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "assistant_chat", profile.ID.String(), h.requestsPerMinute, time.Minute)
	if err != nil {
		// A limiter outage never blocks chat; log and continue.
		log.Printf("level=warn component=api endpoint=chat msg=\"rate limiter unavailable\" err=%v", err)
	} else if h.requestsPerMinute > 0 && count > h.requestsPerMinute {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusTooManyRequests, "Too many assistant requests. Please slow down.")
		return
	}

	response, err := h.client.Chat(r.Context(), req.Message)
	if err != nil {
		log.Printf("level=warn component=api endpoint=chat outcome=degraded user_id=%s err=%v", profile.ID, err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"response": assistantUnavailableMessage})
		return
	}

	// Relay the upstream JSON verbatim.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(response)
}
