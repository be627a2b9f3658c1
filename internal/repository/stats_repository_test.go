package repository

import (
	"context"
	"path/filepath"
	"testing"

	"imsheet-go/pkg/database"
)

func setupStats(t *testing.T) StatsRepository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "images.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStatsRepository(db)
}

func TestStatsRepository_SeedRow(t *testing.T) {
	repo := setupStats(t)

	stats, err := repo.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stats.Size != 0 || stats.Quantity != 0 || stats.LastHash != "null" {
		t.Errorf("seed stats = %+v, want size=0 quantity=0 last_hash=null", stats)
	}
}

func TestStatsRepository_ApplyDelta(t *testing.T) {
	repo := setupStats(t)
	ctx := context.Background()

	if err := repo.ApplyDelta(ctx, 100, 2); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if err := repo.ApplyDelta(ctx, -30, -1); err != nil {
		t.Fatalf("ApplyDelta negative: %v", err)
	}

	stats, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stats.Size != 70 {
		t.Errorf("size = %d, want 70", stats.Size)
	}
	if stats.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", stats.Quantity)
	}
}

func TestStatsRepository_Hash(t *testing.T) {
	repo := setupStats(t)
	ctx := context.Background()

	hash, err := repo.GetHash(ctx)
	if err != nil {
		t.Fatalf("GetHash: %v", err)
	}
	if hash != "null" {
		t.Errorf("initial hash = %q, want \"null\"", hash)
	}

	if err := repo.UpdateHash(ctx, "abc123"); err != nil {
		t.Fatalf("UpdateHash: %v", err)
	}
	hash, err = repo.GetHash(ctx)
	if err != nil {
		t.Fatalf("GetHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("hash = %q, want abc123", hash)
	}
}
