package collector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/store"
)

func newTestCollector(t *testing.T) (*Collector, Stores, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	stores := MemoryStores()
	return New(stores, st), stores, st
}

func TestChecksumStable(t *testing.T) {
	a := Checksum([]byte(`{"x":1}`))
	b := Checksum([]byte(`{"x":1}`))
	if a != b {
		t.Fatal("checksum must be deterministic")
	}
	if a == Checksum([]byte(`{"x":2}`)) {
		t.Fatal("different payloads must not collide")
	}
	if len(a) != 64 {
		t.Errorf("unexpected digest length: %d", len(a))
	}
}

func TestCollectFromExternalStore(t *testing.T) {
	c, stores, _ := newTestCollector(t)
	ctx := context.Background()

	stores[models.CategoryProfile].Set(ctx, "u1", json.RawMessage(`{"name":"alice"}`))

	records, errs := c.Collect(ctx, "u1", "dev_1", []models.Category{models.CategoryProfile})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Category != models.CategoryProfile {
		t.Errorf("category = %s", rec.Category)
	}
	if rec.Checksum != Checksum(rec.Payload) {
		t.Error("checksum mismatch")
	}
	if !rec.Sensitive {
		t.Error("profile records are sensitive")
	}
	if !rec.Compressible {
		t.Error("JSON objects are compressible")
	}
}

func TestCollectPrefersDeviceValue(t *testing.T) {
	c, stores, st := newTestCollector(t)
	ctx := context.Background()

	stores[models.CategoryRecipes].Set(ctx, "u1", json.RawMessage(`{"stale":true}`))

	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	st.PutDeviceValue(&store.DeviceValue{
		DeviceID: "dev_1", Category: models.CategoryRecipes,
		Payload: json.RawMessage(`{"fresh":true}`), Version: 3,
		Checksum: Checksum([]byte(`{"fresh":true}`)), UpdatedAt: ts,
	})

	records, errs := c.Collect(ctx, "u1", "dev_1", []models.Category{models.CategoryRecipes})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(records) != 1 || string(records[0].Payload) != `{"fresh":true}` {
		t.Fatalf("device value should win: %+v", records)
	}
	if !records[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp must come from the device value: %v", records[0].Timestamp)
	}
	if records[0].Version != 3 {
		t.Errorf("version = %d, want 3", records[0].Version)
	}
}

func TestCollectSkipsEmptyCategories(t *testing.T) {
	c, _, _ := newTestCollector(t)

	records, errs := c.Collect(context.Background(), "u1", "dev_1", models.AllCategories())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if len(records) != 0 {
		t.Fatalf("nothing stored, expected no records: %+v", records)
	}
}

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (json.RawMessage, error) { return nil, f.err }
func (f failingStore) Set(context.Context, string, json.RawMessage) error   { return f.err }

func TestCollectAccumulatesErrors(t *testing.T) {
	c, stores, _ := newTestCollector(t)
	ctx := context.Background()

	stores[models.CategoryRecipes] = failingStore{err: errors.New("store down")}
	stores[models.CategoryProfile].Set(ctx, "u1", json.RawMessage(`{"n":"a"}`))

	records, errs := c.Collect(ctx, "u1", "dev_1",
		[]models.Category{models.CategoryRecipes, models.CategoryProfile})
	if len(errs) != 1 || errs[0].Category != models.CategoryRecipes {
		t.Fatalf("expected one recipes error: %+v", errs)
	}
	if len(records) != 1 || records[0].Category != models.CategoryProfile {
		t.Fatalf("sibling category should still collect: %+v", records)
	}
}

func TestApplyWritesBothStores(t *testing.T) {
	c, stores, st := newTestCollector(t)
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"grind":"fine"}`)
	rec := models.SyncRecord{
		Category: models.CategoryCalculator, Payload: payload, Version: 2,
		Checksum: Checksum(payload), SizeBytes: int64(len(payload)), Timestamp: ts,
	}
	if err := c.Apply(ctx, "u1", "dev_2", rec); err != nil {
		t.Fatalf("apply: %v", err)
	}

	v, err := st.GetDeviceValue("dev_2", models.CategoryCalculator)
	if err != nil || v == nil {
		t.Fatalf("device value not written: %v", err)
	}
	if !v.UpdatedAt.Equal(ts) || v.Version != 2 {
		t.Errorf("unexpected device value: %+v", v)
	}

	ext, _ := stores[models.CategoryCalculator].Get(ctx, "u1")
	if string(ext) != string(payload) {
		t.Errorf("external store not updated: %s", ext)
	}
}

func TestIsStructured(t *testing.T) {
	cases := []struct {
		payload string
		want    bool
	}{
		{`{"a":1}`, true},
		{`  [1,2]`, true},
		{`"text"`, false},
		{`42`, false},
		{``, false},
	}
	for _, tc := range cases {
		if got := isStructured([]byte(tc.payload)); got != tc.want {
			t.Errorf("isStructured(%q) = %v, want %v", tc.payload, got, tc.want)
		}
	}
}
