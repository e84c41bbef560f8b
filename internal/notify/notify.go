// Package notify delivers engine events (conflict escalations, backup
// failures) to the notification collaborator. Delivery is fire-and-forget:
// failures are logged and never block the sync path.
package notify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event kinds surfaced to the collaborator.
const (
	KindConflictEscalation = "conflict_escalation"
	KindBackupFailure      = "backup_failure"
)

// Notifier is the narrow contract the engine depends on.
type Notifier interface {
	Notify(userID, eventKind string, payload any)
}

// Payload is the POST body sent to the notification endpoint.
type Payload struct {
	UserID    string `json:"user_id"`
	EventKind string `json:"event_kind"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Webhook posts events to an HTTP endpoint, optionally signing each
// request with an HMAC-SHA256 secret.
type Webhook struct {
	URL    string
	Secret string
	client *http.Client
}

// NewWebhook creates a webhook notifier for the given endpoint.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		URL:    url,
		Secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the event in a goroutine. Errors are logged, never returned.
func (w *Webhook) Notify(userID, eventKind string, payload any) {
	if w.URL == "" {
		return
	}
	p := Payload{
		UserID:    userID,
		EventKind: eventKind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      payload,
	}
	go func() {
		if err := w.dispatch(p); err != nil {
			slog.Warn("notification dispatch failed", "kind", eventKind, "user", userID, "err", err)
		}
	}()
}

// dispatch performs the synchronous HTTP POST. Returns nil on 2xx.
func (w *Webhook) dispatch(p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "brewsync-notify/1")

	unixTS := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("X-Brewsync-Timestamp", unixTS)

	if w.Secret != "" {
		mac := hmac.New(sha256.New, []byte(w.Secret))
		mac.Write([]byte(unixTS))
		mac.Write([]byte("."))
		mac.Write(body)
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("X-Brewsync-Signature", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", w.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", w.URL, resp.StatusCode)
	}
	return nil
}

// Discard is a Notifier that drops every event. Used when no endpoint is
// configured.
type Discard struct{}

// Notify implements Notifier.
func (Discard) Notify(userID, eventKind string, payload any) {}
