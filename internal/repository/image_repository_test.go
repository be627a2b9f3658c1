package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"imsheet-go/internal/model"
	"imsheet-go/pkg/database"
)

func setupRepo(t *testing.T) (ImageRepository, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "images.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewImageRepository(db), db
}

func insertImage(t *testing.T, repo ImageRepository, name string, size int64, state int, createTime int64) int64 {
	t.Helper()
	id, err := repo.Insert(context.Background(), &model.ImageRecord{
		ImageName:     name,
		ImageLocation: "https://example.com/ImSheet/" + name,
		ImagePath:     "ImSheet/" + name,
		ImageSize:     size,
		ImageState:    state,
		CreateTime:    createTime,
	})
	if err != nil {
		t.Fatalf("insert %s: %v", name, err)
	}
	return id
}

func TestImageRepository_InsertAndFind(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	id := insertImage(t, repo, "a.png", 123, model.StateActive, 1700000000000)
	if id == 0 {
		t.Fatal("Insert returned id 0")
	}

	rec, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if rec.ImageName != "a.png" || rec.ImagePath != "ImSheet/a.png" ||
		rec.ImageSize != 123 || rec.ImageState != model.StateActive {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestImageRepository_FindByID_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)

	_, err := repo.FindByID(context.Background(), 999)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("FindByID(999) error = %v, want ErrRecordNotFound", err)
	}
}

func TestImageRepository_Insert_DuplicatePathFails(t *testing.T) {
	repo, _ := setupRepo(t)

	insertImage(t, repo, "a.png", 1, model.StateActive, 1)
	_, err := repo.Insert(context.Background(), &model.ImageRecord{
		ImageName:  "a.png",
		ImagePath:  "ImSheet/a.png",
		ImageState: model.StateActive,
	})
	if err == nil {
		t.Fatal("duplicate image_path insert succeeded, want unique constraint error")
	}
}

func TestImageRepository_List_OrderAndPaging(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	insertImage(t, repo, "old.png", 1, model.StateActive, 100)
	insertImage(t, repo, "mid.png", 1, model.StateActive, 200)
	insertImage(t, repo, "new.png", 1, model.StateActive, 300)
	insertImage(t, repo, "trash.png", 1, model.StateTrashed, 400)

	page1, err := repo.List(ctx, 1, 2, model.StateActive, nil)
	if err != nil {
		t.Fatalf("List page 1: %v", err)
	}
	if len(page1) != 2 || page1[0].ImageName != "new.png" || page1[1].ImageName != "mid.png" {
		t.Errorf("page 1 = %v, want [new.png mid.png]", names(page1))
	}

	page2, err := repo.List(ctx, 2, 2, model.StateActive, nil)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].ImageName != "old.png" {
		t.Errorf("page 2 = %v, want [old.png]", names(page2))
	}
}

func TestImageRepository_List_TimeRange(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	insertImage(t, repo, "a.png", 1, model.StateActive, 100)
	insertImage(t, repo, "b.png", 1, model.StateActive, 200)
	insertImage(t, repo, "c.png", 1, model.StateActive, 300)

	got, err := repo.List(ctx, 1, 10, model.StateActive, &model.TimeRange{From: 150, To: 250})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ImageName != "b.png" {
		t.Errorf("List in range = %v, want [b.png]", names(got))
	}

	count, err := repo.Count(ctx, model.StateActive, &model.TimeRange{From: 150, To: 350})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("Count in range = %d, want 2", count)
	}
}

func TestImageRepository_UpdateState(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	id := insertImage(t, repo, "a.png", 1, model.StateActive, 100)

	if err := repo.UpdateState(ctx, id, model.StateTrashed, 999); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	rec, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if rec.ImageState != model.StateTrashed {
		t.Errorf("state = %d, want %d", rec.ImageState, model.StateTrashed)
	}
	if rec.CreateTime != 999 {
		t.Errorf("create_time = %d, want 999 (rewritten on state change)", rec.CreateTime)
	}
}

func TestImageRepository_UpdateState_NotFound(t *testing.T) {
	repo, _ := setupRepo(t)

	err := repo.UpdateState(context.Background(), 42, model.StateTrashed, 1)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("UpdateState(42) error = %v, want ErrRecordNotFound", err)
	}
}

func TestImageRepository_TrashFlow(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	insertImage(t, repo, "keep.png", 1, model.StateActive, 100)
	insertImage(t, repo, "t1.png", 10, model.StateTrashed, 200)
	insertImage(t, repo, "t2.png", 20, model.StateTrashed, 300)

	trashed, err := repo.FindTrashed(ctx)
	if err != nil {
		t.Fatalf("FindTrashed: %v", err)
	}
	if len(trashed) != 2 {
		t.Fatalf("trashed = %d, want 2", len(trashed))
	}

	if err := repo.DeleteTrashed(ctx); err != nil {
		t.Fatalf("DeleteTrashed: %v", err)
	}

	remaining, err := repo.Count(ctx, model.StateActive, nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if remaining != 1 {
		t.Errorf("active after purge = %d, want 1", remaining)
	}
	trashedCount, err := repo.Count(ctx, model.StateTrashed, nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if trashedCount != 0 {
		t.Errorf("trashed after purge = %d, want 0", trashedCount)
	}
}

func TestImageRepository_DeleteByID(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	id := insertImage(t, repo, "a.png", 1, model.StateTrashed, 100)
	if err := repo.DeleteByID(ctx, id); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := repo.FindByID(ctx, id); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("FindByID after delete error = %v, want ErrRecordNotFound", err)
	}
}

func names(recs []model.ImageRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ImageName)
	}
	return out
}
