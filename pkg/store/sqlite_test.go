package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestSQLiteStore_ThreadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	defer func() { _ = s.Close() }()

	id, err := s.InsertThread(ctx, "u1", "first thread")
	if err != nil {
		t.Fatalf("InsertThread returned error: %v", err)
	}

	threads, err := s.ListThreads(ctx, "u1")
	if err != nil {
		t.Fatalf("ListThreads returned error: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	if threads[0].ID != id || threads[0].Title != "first thread" {
		t.Fatalf("unexpected thread: %+v", threads[0])
	}

	if err := s.UpdateThreadTitle(ctx, "u1", id, "renamed"); err != nil {
		t.Fatalf("UpdateThreadTitle returned error: %v", err)
	}
	threads, err = s.ListThreads(ctx, "u1")
	if err != nil {
		t.Fatalf("ListThreads returned error: %v", err)
	}
	if threads[0].Title != "renamed" {
		t.Fatalf("expected renamed title, got %q", threads[0].Title)
	}

	// other users never see the thread
	other, err := s.ListThreads(ctx, "u2")
	if err != nil {
		t.Fatalf("ListThreads for other user returned error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no threads for other user, got %d", len(other))
	}
}

func TestSQLiteStore_MessagesAndCascade(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	defer func() { _ = s.Close() }()

	id, err := s.InsertThread(ctx, "u1", "t")
	if err != nil {
		t.Fatalf("InsertThread returned error: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	rows := []MessageRecord{
		{ThreadID: id, UserID: "u1", Role: "user", Content: "hello", CreatedAt: base},
		{ThreadID: id, UserID: "u1", Role: "assistant", Content: "report", CreatedAt: base.Add(time.Second)},
	}
	if err := s.InsertMessages(ctx, rows); err != nil {
		t.Fatalf("InsertMessages returned error: %v", err)
	}

	got, err := s.ListMessages(ctx, "u1", id)
	if err != nil {
		t.Fatalf("ListMessages returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Content != "hello" || got[1].Content != "report" {
		t.Fatalf("messages out of order: %+v", got)
	}

	if err := s.DeleteThread(ctx, "u1", id); err != nil {
		t.Fatalf("DeleteThread returned error: %v", err)
	}
	got, err = s.ListMessages(ctx, "u1", id)
	if err != nil {
		t.Fatalf("ListMessages after delete returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected cascade to remove messages, got %d", len(got))
	}
}

func TestSQLiteStore_MissingThreadErrors(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.DeleteThread(ctx, "u1", "nope"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
	if err := s.UpdateThreadTitle(ctx, "u1", "nope", "x"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}
