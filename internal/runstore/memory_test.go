package runstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"comfybridge/pkg/types"
)

func newRecord(id string, created time.Time) *types.JobRecord {
	return &types.JobRecord{
		ID:        id,
		Status:    types.JobStatusQueued,
		CreatedAt: created,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	rec := newRecord("job-1", time.Now())
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != "job-1" || got.Status != types.JobStatusQueued {
		t.Errorf("unexpected record %+v", got)
	}
}

func TestMemoryStore_CreateDuplicate(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	rec := newRecord("job-1", time.Now())
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Create(ctx, rec); err == nil {
		t.Error("expected error on duplicate create")
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore(nil)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	rec := newRecord("job-1", time.Now())
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	rec.Status = types.JobStatusSucceeded
	rec.ImageCount = 2
	if err := s.Update(ctx, rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != types.JobStatusSucceeded || got.ImageCount != 2 {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestMemoryStore_UpdateNotFound(t *testing.T) {
	s := NewMemoryStore(nil)

	err := s.Update(context.Background(), newRecord("missing", time.Now()))
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	rec := newRecord("job-1", time.Now())
	if err := s.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, _ := s.Get(ctx, "job-1")
	got.Status = types.JobStatusFailed

	again, _ := s.Get(ctx, "job-1")
	if again.Status != types.JobStatusQueued {
		t.Error("mutating a returned record leaked into the store")
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		rec := newRecord(fmt.Sprintf("job-%d", i), base.Add(time.Duration(i)*time.Second))
		if err := s.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].ID != "job-2" || recs[2].ID != "job-0" {
		t.Errorf("records not sorted newest first: %s, %s, %s", recs[0].ID, recs[1].ID, recs[2].ID)
	}
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	s := NewMemoryStore(&Config{MaxRecords: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := newRecord(fmt.Sprintf("job-%d", i), time.Now())
		if err := s.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if _, err := s.Get(ctx, "job-0"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected oldest record evicted, got %v", err)
	}
	if _, err := s.Get(ctx, "job-2"); err != nil {
		t.Errorf("expected newest record kept, got %v", err)
	}
}
