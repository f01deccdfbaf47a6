package clip

import (
	"context"
	"testing"
)

// only returns the single clip in repo.
func only(t *testing.T, repo *MemoryRepository) *Clip {
	t.Helper()
	clips, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(clips))
	}
	return clips[0]
}

func TestMemoryRepository_SaveAndList(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	c := New(1, "a.png", "")

	if err := repo.Save(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved := only(t, repo)
	if saved.ID != c.ID {
		t.Errorf("expected ID %s, got %s", c.ID, saved.ID)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	c := New(1, "a.png", "")

	_ = repo.Save(ctx, c)
	_ = c.Submitted("p", "job-1")
	_ = repo.Save(ctx, c)

	saved := only(t, repo)
	if saved.Status != StatusSubmitted {
		t.Errorf("expected status %s, got %s", StatusSubmitted, saved.Status)
	}
	if saved.JobID != "job-1" {
		t.Errorf("expected job ID job-1, got %s", saved.JobID)
	}
}

func TestMemoryRepository_IsolatesStoredCopy(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	c := New(1, "a.png", "")
	_ = repo.Save(ctx, c)

	c.ImagePath = "mutated.png"

	saved := only(t, repo)
	if saved.ImagePath != "a.png" {
		t.Errorf("stored clip was mutated: %s", saved.ImagePath)
	}
}

func TestMemoryRepository_List_Empty(t *testing.T) {
	clips, err := NewMemoryRepository().List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clips) != 0 {
		t.Errorf("expected no clips, got %d", len(clips))
	}
}

func TestMemoryRepository_List_OrderedByNumber(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, n := range []int{5, 2, 9, 1} {
		_ = repo.Save(ctx, New(n, "x.png", ""))
	}

	clips, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(clips) != 4 {
		t.Fatalf("expected 4 clips, got %d", len(clips))
	}

	want := []int{1, 2, 5, 9}
	for i, c := range clips {
		if c.Number != want[i] {
			t.Errorf("position %d: expected clip %d, got %d", i, want[i], c.Number)
		}
	}
}
