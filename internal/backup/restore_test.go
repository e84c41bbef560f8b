package backup

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/brewlab/brewsync/internal/models"
)

func TestRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	created, err := f.manager.CreateBackup(ctx, "u1", models.BackupFull)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Local data drifts after the backup.
	f.stores[models.CategoryRecipes].Set(ctx, "u1", json.RawMessage(`{"brews":[]}`))
	f.stores[models.CategoryProfile].Set(ctx, "u1", json.RawMessage(`{"name":"mallory"}`))

	res, err := f.manager.RestoreBackup(ctx, "u1", created.BackupID, RestoreOptions{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(res.Restored) != 3 {
		t.Fatalf("restored = %v", res.Restored)
	}
	if res.Outcome != models.OutcomeOK {
		t.Errorf("outcome = %s, warnings %v", res.Outcome, res.Warnings)
	}

	recipes, _ := f.stores[models.CategoryRecipes].Get(ctx, "u1")
	if string(recipes) != `{"brews":[1,2,3]}` {
		t.Errorf("recipes not restored: %s", recipes)
	}
	profile, _ := f.stores[models.CategoryProfile].Get(ctx, "u1")
	if string(profile) != `{"name":"alice"}` {
		t.Errorf("profile not restored: %s", profile)
	}
}

func TestRestoreCategoryFilter(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	created, err := f.manager.CreateBackup(ctx, "u1", models.BackupFull)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.stores[models.CategoryRecipes].Set(ctx, "u1", json.RawMessage(`{"brews":[]}`))
	f.stores[models.CategoryProfile].Set(ctx, "u1", json.RawMessage(`{"name":"mallory"}`))

	res, err := f.manager.RestoreBackup(ctx, "u1", created.BackupID, RestoreOptions{
		Categories: []models.Category{models.CategoryRecipes},
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(res.Restored) != 1 || res.Restored[0] != models.CategoryRecipes {
		t.Fatalf("restored = %v", res.Restored)
	}

	// Unlisted categories keep their current values.
	profile, _ := f.stores[models.CategoryProfile].Get(ctx, "u1")
	if string(profile) != `{"name":"mallory"}` {
		t.Errorf("filtered category was touched: %s", profile)
	}
}

func TestRestorePreserveLocal(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	created, err := f.manager.CreateBackup(ctx, "u1", models.BackupFull)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Recipes emptied locally; profile still has a value.
	f.stores[models.CategoryRecipes].Set(ctx, "u1", nil)
	f.stores[models.CategoryProfile].Set(ctx, "u1", json.RawMessage(`{"name":"local"}`))

	res, err := f.manager.RestoreBackup(ctx, "u1", created.BackupID, RestoreOptions{PreserveLocal: true})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored := make(map[models.Category]bool)
	for _, cat := range res.Restored {
		restored[cat] = true
	}
	if !restored[models.CategoryRecipes] {
		t.Error("empty category should be restored")
	}
	if restored[models.CategoryProfile] {
		t.Error("populated category should be preserved")
	}

	profile, _ := f.stores[models.CategoryProfile].Get(ctx, "u1")
	if string(profile) != `{"name":"local"}` {
		t.Errorf("local value lost: %s", profile)
	}
}

func TestRestoreCorruptedBackup(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	created, err := f.manager.CreateBackup(ctx, "u1", models.BackupFull)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.stores[models.CategoryRecipes].Set(ctx, "u1", json.RawMessage(`{"brews":["current"]}`))

	b, _ := f.store.GetBackup(created.BackupID)
	if !f.backend.Corrupt(b.BlobKey, 5) {
		t.Fatal("corrupt hook failed")
	}

	res, err := f.manager.RestoreBackup(ctx, "u1", created.BackupID, RestoreOptions{})
	if err != nil {
		t.Fatalf("restore should not hard-fail on corruption: %v", err)
	}
	if len(res.Restored) != 0 {
		t.Fatalf("corrupted backup restored data: %v", res.Restored)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "integrity") {
		t.Fatalf("expected integrity warning, got %v", res.Warnings)
	}

	// Current data untouched.
	recipes, _ := f.stores[models.CategoryRecipes].Get(ctx, "u1")
	if string(recipes) != `{"brews":["current"]}` {
		t.Errorf("corrupted restore mutated data: %s", recipes)
	}
}

func TestRestoreWrongUser(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	ctx := context.Background()

	created, err := f.manager.CreateBackup(ctx, "u1", models.BackupFull)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.manager.RestoreBackup(ctx, "u2", created.BackupID, RestoreOptions{}); err != models.ErrBackupNotFound {
		t.Fatalf("expected ErrBackupNotFound for foreign user, got %v", err)
	}
}

func TestRestoreUnknownBackup(t *testing.T) {
	f := newFixture(t)
	if _, err := f.manager.RestoreBackup(context.Background(), "u1", "bak_missing", RestoreOptions{}); err != models.ErrBackupNotFound {
		t.Fatalf("expected ErrBackupNotFound, got %v", err)
	}
}
