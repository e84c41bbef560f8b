package engine

import (
	"fmt"
	"testing"

	"github.com/brewlab/brewsync/internal/models"
)

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory(8)
	for i := 0; i < 3; i++ {
		h.Add(models.SyncSession{SessionID: fmt.Sprintf("s%d", i), UserID: "u1"})
	}

	got := h.ForUser("u1")
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i, want := range []string{"s2", "s1", "s0"} {
		if got[i].SessionID != want {
			t.Errorf("got[%d] = %s, want %s", i, got[i].SessionID, want)
		}
	}
}

func TestHistoryEviction(t *testing.T) {
	h := NewHistory(4)
	for i := 0; i < 10; i++ {
		h.Add(models.SyncSession{SessionID: fmt.Sprintf("s%d", i), UserID: "u1"})
	}

	got := h.ForUser("u1")
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].SessionID != "s9" || got[3].SessionID != "s6" {
		t.Errorf("unexpected window: %+v", got)
	}
}

func TestHistoryPerUser(t *testing.T) {
	h := NewHistory(8)
	h.Add(models.SyncSession{SessionID: "a", UserID: "u1"})
	h.Add(models.SyncSession{SessionID: "b", UserID: "u2"})
	h.Add(models.SyncSession{SessionID: "c", UserID: "u1"})

	if got := h.ForUser("u1"); len(got) != 2 {
		t.Errorf("u1 sessions = %d", len(got))
	}
	if got := h.ForUser("u2"); len(got) != 1 || got[0].SessionID != "b" {
		t.Errorf("u2 sessions = %+v", got)
	}
}
