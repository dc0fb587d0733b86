package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/beacon/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func testRecord(callID string) *models.IncidentRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.IncidentRecord{
		CallID:     callID,
		Severity:   models.SeverityCritical,
		Confidence: 0.92,
		CallType:   "Structure Fire",
		Summary:    "Fire reported at a two-story residence",
		Status:     models.StatusComplete,
		Transcript: []models.Utterance{
			{Speaker: models.SpeakerCaller, Text: "my house is on fire", Seq: 0, Timestamp: now},
		},
		Dispatch:  &models.Dispatch{Fire: true, Ambulance: true, Priority: "IMMEDIATE"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c", "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestSaveAndGetIncident(t *testing.T) {
	db := setupTestDB(t)

	rec := testRecord("call-1")
	if err := db.SaveSnapshot(rec); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := db.GetIncident("call-1")
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if got.Severity != models.SeverityCritical {
		t.Errorf("severity = %s", got.Severity)
	}
	if got.CallType != "Structure Fire" {
		t.Errorf("call type = %q", got.CallType)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].Text != "my house is on fire" {
		t.Errorf("transcript = %+v", got.Transcript)
	}
	if got.Dispatch == nil || !got.Dispatch.Fire {
		t.Errorf("dispatch = %+v", got.Dispatch)
	}
}

func TestGetIncidentNotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetIncident("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveSnapshotUpserts(t *testing.T) {
	db := setupTestDB(t)

	rec := testRecord("call-2")
	rec.Status = models.StatusActive
	if err := db.SaveSnapshot(rec); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	rec.Status = models.StatusDegraded
	rec.Degraded = true
	if err := db.SaveSnapshot(rec); err != nil {
		t.Fatalf("SaveSnapshot update: %v", err)
	}

	got, err := db.GetIncident("call-2")
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if got.Status != models.StatusDegraded || !got.Degraded {
		t.Errorf("got %+v after upsert", got)
	}

	summaries, err := db.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("ListRecent returned %d rows, want 1", len(summaries))
	}
}

func TestSaveSnapshotRejectsEmpty(t *testing.T) {
	db := setupTestDB(t)
	if err := db.SaveSnapshot(nil); err == nil {
		t.Error("nil snapshot accepted")
	}
	if err := db.SaveSnapshot(&models.IncidentRecord{}); err == nil {
		t.Error("snapshot without call id accepted")
	}
}

func TestListRecentOrdersNewestFirst(t *testing.T) {
	db := setupTestDB(t)

	old := testRecord("call-old")
	old.CreatedAt = time.Now().Add(-time.Hour)
	if err := db.SaveSnapshot(old); err != nil {
		t.Fatal(err)
	}
	fresh := testRecord("call-new")
	if err := db.SaveSnapshot(fresh); err != nil {
		t.Fatal(err)
	}

	summaries, err := db.ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d rows", len(summaries))
	}
	if summaries[0].CallID != "call-new" {
		t.Errorf("first row = %s, want call-new", summaries[0].CallID)
	}
}

func TestPurgeOldIncidents(t *testing.T) {
	db := setupTestDB(t)

	old := testRecord("call-old")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	if err := db.SaveSnapshot(old); err != nil {
		t.Fatal(err)
	}
	fresh := testRecord("call-new")
	if err := db.SaveSnapshot(fresh); err != nil {
		t.Fatal(err)
	}

	n, err := db.PurgeOldIncidents(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldIncidents: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d rows, want 1", n)
	}
	if _, err := db.GetIncident("call-new"); err != nil {
		t.Errorf("fresh incident gone: %v", err)
	}
}
