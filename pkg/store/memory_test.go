package store

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryStore_MessagesScopedByUser(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	id, err := s.InsertThread(ctx, "u1", "t")
	if err != nil {
		t.Fatalf("InsertThread returned error: %v", err)
	}

	base := time.Now()
	rows := []MessageRecord{
		{ThreadID: id, UserID: "u1", Role: "user", Content: "mine", CreatedAt: base},
		{ThreadID: id, UserID: "u2", Role: "user", Content: "theirs", CreatedAt: base.Add(time.Second)},
	}
	if err := s.InsertMessages(ctx, rows); err != nil {
		t.Fatalf("InsertMessages returned error: %v", err)
	}

	got, err := s.ListMessages(ctx, "u1", id)
	if err != nil {
		t.Fatalf("ListMessages returned error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "mine" {
		t.Fatalf("expected only u1 messages, got %+v", got)
	}

	if err := s.DeleteMessages(ctx, "u1", id); err != nil {
		t.Fatalf("DeleteMessages returned error: %v", err)
	}
	remaining, err := s.ListMessages(ctx, "u2", id)
	if err != nil {
		t.Fatalf("ListMessages returned error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Content != "theirs" {
		t.Fatalf("expected u2 messages to survive u1 delete, got %+v", remaining)
	}
}
