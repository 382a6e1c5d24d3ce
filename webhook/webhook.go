// Package webhook posts verdict events to a configured URL.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/truthlens/models"
)

// EventVerdictCompleted is sent after every /predict verdict.
const EventVerdictCompleted = "verdict.completed"

// SignatureHeader carries "sha256=<hex HMAC of the body>" when a secret is set.
const SignatureHeader = "X-Truthlens-Signature"

// Event is the webhook payload.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// VerdictData is the Data of a verdict.completed event.
type VerdictData struct {
	Header string                       `json:"header"`
	Result *models.ClassificationResult `json:"result"`
	Cached bool                         `json:"cached"`
}

// NewVerdictEvent wraps a verdict in an event with a fresh ID.
func NewVerdictEvent(header string, result *models.ClassificationResult, cached bool) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      EventVerdictCompleted,
		Timestamp: time.Now().Unix(),
		Data:      VerdictData{Header: header, Result: result, Cached: cached},
	}
}

// Notifier delivers events to one URL.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
}

// NewNotifier returns nil when url is empty; a nil *Notifier drops events.
func NewNotifier(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Deliver sends event once.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Truthlens-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify delivers event in the background, retrying after 1s, 5s and 30s.
func (n *Notifier) Notify(event *Event) {
	if n == nil {
		return
	}
	go func() {
		for attempt, delay := range n.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, event)
			cancel()
			if err == nil {
				slog.Debug("webhook delivered", "event", event.Type, "id", event.ID, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed",
				"event", event.Type, "id", event.ID, "attempt", attempt+1, "error", err)
		}
		slog.Error("webhook delivery exhausted all retries", "event", event.Type, "id", event.ID)
	}()
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
