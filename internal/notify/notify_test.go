package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDispatch(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeaders = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "s3cret")
	p := Payload{
		UserID:    "u1",
		EventKind: KindBackupFailure,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      map[string]string{"error": "disk full"},
	}
	if err := w.dispatch(p); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	var decoded Payload
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if decoded.UserID != "u1" || decoded.EventKind != KindBackupFailure {
		t.Errorf("unexpected payload: %+v", decoded)
	}
	if gotHeaders.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %s", gotHeaders.Get("Content-Type"))
	}
	if gotHeaders.Get("X-Brewsync-Timestamp") == "" {
		t.Error("timestamp header missing")
	}

	// Signature covers timestamp dot body.
	sig := gotHeaders.Get("X-Brewsync-Signature")
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("signature = %q", sig)
	}
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte(gotHeaders.Get("X-Brewsync-Timestamp")))
	mac.Write([]byte("."))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if sig != want {
		t.Errorf("signature mismatch:\n got %s\nwant %s", sig, want)
	}
}

func TestDispatchNoSecret(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "")
	if err := w.dispatch(Payload{UserID: "u1", EventKind: KindConflictEscalation}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if gotHeaders.Get("X-Brewsync-Signature") != "" {
		t.Error("unsigned webhook should not carry a signature")
	}
}

func TestDispatchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "")
	if err := w.dispatch(Payload{UserID: "u1"}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestNotifyDelivers(t *testing.T) {
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(done)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "")
	w.Notify("u1", KindBackupFailure, nil)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notification never arrived")
	}
}

func TestDiscard(t *testing.T) {
	// Must simply not panic.
	Discard{}.Notify("u1", KindBackupFailure, map[string]string{"error": "x"})
}
