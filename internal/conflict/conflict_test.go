package conflict

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brewlab/brewsync/internal/collector"
	"github.com/brewlab/brewsync/internal/models"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func record(payload string, ts time.Time) models.SyncRecord {
	p := json.RawMessage(payload)
	return models.SyncRecord{
		Category:  models.CategoryRecipes,
		Payload:   p,
		Checksum:  collector.Checksum(p),
		Timestamp: ts,
	}
}

func targetValue(payload string, ts time.Time) *TargetValue {
	p := json.RawMessage(payload)
	return &TargetValue{
		DeviceID:  "dev_target",
		Timestamp: ts,
		Checksum:  collector.Checksum(p),
		Value:     p,
	}
}

func TestDetectNoTargetValue(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base), "dev_source", nil, models.ConflictPolicy{})
	if c != nil {
		t.Fatal("no target value means no conflict")
	}
}

func TestDetectAgreement(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base), "dev_source",
		targetValue(`{"a":1}`, base), models.ConflictPolicy{})
	if c != nil {
		t.Fatal("identical values at identical timestamps must not conflict")
	}
}

func TestDetectWithinSkewTolerance(t *testing.T) {
	policy := models.ConflictPolicy{SkewTolerance: 2 * time.Second}
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Second)), "dev_source",
		targetValue(`{"a":1}`, base), policy)
	if c != nil {
		t.Fatal("equal checksums within skew tolerance must not conflict")
	}

	// Outside the tolerance the timestamps diverge even with equal data.
	c = Detect("u1", "s1", record(`{"a":1}`, base.Add(5*time.Second)), "dev_source",
		targetValue(`{"a":1}`, base), policy)
	if c == nil {
		t.Fatal("expected conflict beyond skew tolerance")
	}
}

func TestDetectZeroToleranceDefault(t *testing.T) {
	// Default tolerance is zero: any timestamp difference conflicts.
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Millisecond)), "dev_source",
		targetValue(`{"a":1}`, base), models.ConflictPolicy{})
	if c == nil {
		t.Fatal("expected conflict with zero tolerance")
	}
}

func TestDetectDivergentValues(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	if c == nil {
		t.Fatal("expected conflict")
	}
	if c.Category != models.CategoryRecipes {
		t.Errorf("category = %s", c.Category)
	}
	if c.Source.DeviceID != "dev_source" || c.Target.DeviceID != "dev_target" {
		t.Errorf("sides mixed up: %+v", c)
	}
	if Ambiguous(c) {
		t.Error("distinct timestamps are not ambiguous")
	}
}

func TestAmbiguousConflict(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	if c == nil {
		t.Fatal("expected conflict")
	}
	if !Ambiguous(c) {
		t.Fatal("equal timestamps with different checksums are ambiguous")
	}

	// No strategy may auto-resolve an ambiguous conflict.
	for _, s := range []models.ConflictStrategy{
		models.StrategyLatestWins, models.StrategyMerge,
		models.StrategyDevicePriority, models.StrategyManual,
	} {
		res, err := Resolve(c, s, models.ConflictPolicy{DevicePriority: []string{"dev_source"}})
		if err != nil {
			t.Fatalf("resolve %s: %v", s, err)
		}
		if res != nil {
			t.Errorf("strategy %s resolved an ambiguous conflict", s)
		}
	}
}

func TestLatestWins(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})

	res, err := Resolve(c, models.StrategyLatestWins, models.ConflictPolicy{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res == nil {
		t.Fatal("expected resolution")
	}
	if res.WinnerID != "dev_source" {
		t.Errorf("winner = %s, want dev_source", res.WinnerID)
	}
	if string(res.Result) != `{"a":1}` {
		t.Errorf("result = %s", res.Result)
	}

	// Reversed timestamps pick the other side.
	c2 := Detect("u1", "s1", record(`{"a":1}`, base), "dev_source",
		targetValue(`{"a":2}`, base.Add(time.Minute)), models.ConflictPolicy{})
	res2, _ := Resolve(c2, models.StrategyLatestWins, models.ConflictPolicy{})
	if res2.WinnerID != "dev_target" {
		t.Errorf("winner = %s, want dev_target", res2.WinnerID)
	}
}

func TestLatestWinsDeterministic(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	first, _ := Resolve(c, models.StrategyLatestWins, models.ConflictPolicy{})
	for i := 0; i < 5; i++ {
		again, _ := Resolve(c, models.StrategyLatestWins, models.ConflictPolicy{})
		if again.WinnerID != first.WinnerID || string(again.Result) != string(first.Result) {
			t.Fatal("resolution must be deterministic for identical inputs")
		}
	}
}

func TestMergeFieldUnion(t *testing.T) {
	// Newer side: source. Overlapping key "b" takes the newer value.
	c := Detect("u1", "s1", record(`{"a":1,"b":2}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"b":9,"c":3}`, base), models.ConflictPolicy{})

	res, err := Resolve(c, models.StrategyMerge, models.ConflictPolicy{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(res.Result, &merged); err != nil {
		t.Fatalf("parse merged result: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("merged keys = %d, want 3: %s", len(merged), res.Result)
	}
	if string(merged["b"]) != "2" {
		t.Errorf("overlapping key b = %s, want newer value 2", merged["b"])
	}
	if string(merged["a"]) != "1" || string(merged["c"]) != "3" {
		t.Errorf("union lost fields: %s", res.Result)
	}
}

func TestMergeScalarDegradesToLatestWins(t *testing.T) {
	c := Detect("u1", "s1", record(`42`, base.Add(time.Minute)), "dev_source",
		targetValue(`7`, base), models.ConflictPolicy{})

	res, err := Resolve(c, models.StrategyMerge, models.ConflictPolicy{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res == nil {
		t.Fatal("expected degraded resolution")
	}
	if string(res.Result) != `42` || res.WinnerID != "dev_source" {
		t.Errorf("unexpected degraded resolution: %+v", res)
	}
}

func TestDevicePriority(t *testing.T) {
	// Target outranks source despite an older timestamp.
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	policy := models.ConflictPolicy{DevicePriority: []string{"dev_target", "dev_source"}}

	res, err := Resolve(c, models.StrategyDevicePriority, policy)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.WinnerID != "dev_target" {
		t.Errorf("winner = %s, want dev_target", res.WinnerID)
	}
}

func TestDevicePriorityFallback(t *testing.T) {
	// Neither device ranked: falls back to latest-wins.
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	policy := models.ConflictPolicy{DevicePriority: []string{"dev_other"}}

	res, err := Resolve(c, models.StrategyDevicePriority, policy)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.WinnerID != "dev_source" {
		t.Errorf("fallback winner = %s, want dev_source", res.WinnerID)
	}
}

func TestManualNeverAutoResolves(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	res, err := Resolve(c, models.StrategyManual, models.ConflictPolicy{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res != nil {
		t.Fatal("manual strategy must not produce a resolution")
	}
}

func TestResolveUnknownStrategy(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	if _, err := Resolve(c, "newest-wins", models.ConflictPolicy{}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestResolvedRecord(t *testing.T) {
	c := Detect("u1", "s1", record(`{"a":1}`, base.Add(time.Minute)), "dev_source",
		targetValue(`{"a":2}`, base), models.ConflictPolicy{})
	res, _ := Resolve(c, models.StrategyLatestWins, models.ConflictPolicy{})

	rec := ResolvedRecord(c, res)
	if rec.Category != models.CategoryRecipes {
		t.Errorf("category = %s", rec.Category)
	}
	if !rec.Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("timestamp = %v, want the later side", rec.Timestamp)
	}
	if rec.Checksum != collector.Checksum(res.Result) {
		t.Error("checksum must cover the resolved payload")
	}
}

func TestEscalations(t *testing.T) {
	now := base
	policy := models.ConflictPolicy{PendingThreshold: 2, EscalationTimeout: time.Hour}

	fresh := models.Conflict{ConflictID: "cf_fresh", DetectedAt: now.Add(-10 * time.Minute)}
	stale := models.Conflict{ConflictID: "cf_stale", Category: models.CategoryProfile, DetectedAt: now.Add(-3 * time.Hour)}

	// Under threshold, one stale conflict: timeout escalation only.
	out := Escalations("u1", []models.Conflict{fresh, stale}, policy, now)
	if len(out) != 1 || out[0].Kind != "timeout" || out[0].ConflictID != "cf_stale" {
		t.Fatalf("unexpected escalations: %+v", out)
	}

	// Over threshold adds a threshold escalation.
	pending := []models.Conflict{fresh, fresh, stale}
	out = Escalations("u1", pending, policy, now)
	if len(out) != 2 {
		t.Fatalf("expected threshold and timeout escalations, got %+v", out)
	}
	if out[0].Kind != "threshold" || out[0].Pending != 3 {
		t.Errorf("unexpected threshold escalation: %+v", out[0])
	}
}
