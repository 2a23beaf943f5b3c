package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/himanishpuri/MediaDNA/pkg/models"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_mediadna.sqlite3")
	t.Setenv("MEDIADNA_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func testRecord(title string, withAudio bool) *models.MediaRecord {
	rec := &models.MediaRecord{
		Title:           title,
		Source:          "/media/" + title + ".mp4",
		Kind:            models.KindVideo,
		DurationMs:      4000,
		FrameCount:      2,
		RobustVideoHash: "a3f1c0de" + title,
	}
	if withAudio {
		audio := "b4e2d1ef" + title
		rec.RobustAudioHash = &audio
		rec.SegmentCount = 1
	}
	return rec
}

func testHashes() []models.UnitHash {
	return []models.UnitHash{
		{Modality: models.ModalityFrame, Position: 1, Hash: "0110"},
		{Modality: models.ModalityFrame, Position: 0, Hash: "1001"},
		{Modality: models.ModalitySegment, Position: 0, Hash: "1111"},
	}
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil {
		t.Fatal("Expected non-nil GORM DB handle")
	}
	if client.db == nil {
		t.Fatal("Expected non-nil sql.DB handle")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientWithCustomPath(t *testing.T) {
	customPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(customPath)
	if err != nil {
		t.Fatalf("Failed to create DB with custom path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(customPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", customPath)
	}
}

func TestSaveAndGetMedia(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	id, err := client.SaveMedia(ctx, testRecord("clip", true), testHashes())
	if err != nil {
		t.Fatalf("SaveMedia failed: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("Expected UUID id, got %q", id)
	}

	rec, err := client.GetMediaByID(ctx, id)
	if err != nil {
		t.Fatalf("GetMediaByID failed: %v", err)
	}
	if rec.Title != "clip" || rec.Kind != models.KindVideo || rec.FrameCount != 2 {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if !rec.HasAudio() || *rec.RobustAudioHash != "b4e2d1efclip" {
		t.Errorf("Expected audio hash to round trip, got %v", rec.RobustAudioHash)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestSaveMediaWithoutAudio(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	id, err := client.SaveMedia(ctx, testRecord("silent", false), nil)
	if err != nil {
		t.Fatalf("SaveMedia failed: %v", err)
	}
	rec, _ := client.GetMediaByID(ctx, id)
	if rec.HasAudio() {
		t.Errorf("Expected no audio hash, got %v", *rec.RobustAudioHash)
	}
}

func TestGetUnitHashesOrdered(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	id, _ := client.SaveMedia(ctx, testRecord("clip", true), testHashes())
	hashes, err := client.GetUnitHashes(ctx, id)
	if err != nil {
		t.Fatalf("GetUnitHashes failed: %v", err)
	}
	if len(hashes) != 3 {
		t.Fatalf("Expected 3 hashes, got %d", len(hashes))
	}
	want := []string{"1001", "0110", "1111"}
	for i, h := range hashes {
		if h.Hash != want[i] || h.MediaID != id {
			t.Errorf("Hash %d: expected %s for %s, got %+v", i, want[i], id, h)
		}
	}
}

func TestGetMediaNotFound(t *testing.T) {
	client, _ := setupTestDB(t)

	_, err := client.GetMediaByID(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMediaByID(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	id, _ := client.SaveMedia(ctx, testRecord("clip", true), testHashes())
	if err := client.DeleteMediaByID(ctx, id); err != nil {
		t.Fatalf("DeleteMediaByID failed: %v", err)
	}

	if _, err := client.GetMediaByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected record to be gone, got %v", err)
	}
	hashes, _ := client.GetUnitHashes(ctx, id)
	if len(hashes) != 0 {
		t.Errorf("Expected unit hashes to be deleted, got %d", len(hashes))
	}

	if err := client.DeleteMediaByID(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFindByRobustHashAndList(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	client.SaveMedia(ctx, testRecord("a", false), nil)
	client.SaveMedia(ctx, testRecord("b", false), nil)

	found, err := client.FindByRobustHash(ctx, "a3f1c0deb")
	if err != nil {
		t.Fatalf("FindByRobustHash failed: %v", err)
	}
	if len(found) != 1 || found[0].Title != "b" {
		t.Errorf("Expected record b, got %+v", found)
	}

	all, err := client.ListMedia(ctx)
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 records, got %d", len(all))
	}
	if n, _ := client.CountMedia(ctx); n != 2 {
		t.Errorf("Expected count 2, got %d", n)
	}
}

func TestNilClientMethods(t *testing.T) {
	var client *DBClient
	ctx := context.Background()

	if _, err := client.SaveMedia(ctx, testRecord("x", false), nil); err == nil {
		t.Error("Expected error from nil client SaveMedia")
	}
	if _, err := client.GetMediaByID(ctx, "x"); err == nil {
		t.Error("Expected error from nil client GetMediaByID")
	}
	if err := client.DeleteMediaByID(ctx, "x"); err == nil {
		t.Error("Expected error from nil client DeleteMediaByID")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	client, _ := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			title := string(rune('a' + idx))
			if _, err := client.SaveMedia(ctx, testRecord(title, idx%2 == 0), testHashes()); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent save failed: %v", err)
	}
	if n, _ := client.CountMedia(ctx); n != 5 {
		t.Errorf("Expected 5 records, got %d", n)
	}
}
