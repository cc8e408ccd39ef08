package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaV1 = `
CREATE TABLE IF NOT EXISTS threads (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT,
  created_at TIMESTAMP NOT NULL,
  updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_threads_user_updated ON threads(user_id, updated_at);

CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  thread_id TEXT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages(thread_id, created_at);
`

// SQLiteStore is the durable persistence gateway. One JSON envelope per
// message row, see pkg/chat for the content format.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// cascade deletes from threads to messages
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "enable foreign keys")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(sqliteSchemaV1)
	return errors.Wrap(err, "migrate sqlite schema")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListThreads(ctx context.Context, userID string) ([]Thread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM threads WHERE user_id = ? ORDER BY updated_at DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "list threads")
	}
	defer func() { _ = rows.Close() }()

	var ret []Thread
	for rows.Next() {
		var t Thread
		var title sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &title, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan thread")
		}
		t.Title = title.String
		ret = append(ret, t)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) InsertThread(ctx context.Context, userID string, title string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, title, now, now)
	if err != nil {
		return "", errors.Wrap(err, "insert thread")
	}
	return id, nil
}

func (s *SQLiteStore) UpdateThreadTitle(ctx context.Context, userID string, id string, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE threads SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, time.Now().UTC(), id, userID)
	if err != nil {
		return errors.Wrap(err, "update thread title")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrThreadNotFound, "update title %s", id)
	}
	return nil
}

func (s *SQLiteStore) DeleteThread(ctx context.Context, userID string, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM threads WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return errors.Wrap(err, "delete thread")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrThreadNotFound, "delete %s", id)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, userID string, threadID string) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, user_id, role, content, created_at FROM messages WHERE thread_id = ? AND user_id = ? ORDER BY created_at ASC, id ASC`,
		threadID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer func() { _ = rows.Close() }()

	var ret []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.ThreadID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		ret = append(ret, m)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) InsertMessages(ctx context.Context, rows []MessageRecord) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin insert messages")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (thread_id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare insert messages")
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, r.ThreadID, r.UserID, r.Role, r.Content, createdAt); err != nil {
			return errors.Wrap(err, "insert message")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE threads SET updated_at = ? WHERE id = ?`, time.Now().UTC(), rows[0].ThreadID); err != nil {
		return errors.Wrap(err, "touch thread")
	}

	return errors.Wrap(tx.Commit(), "commit insert messages")
}

func (s *SQLiteStore) DeleteMessages(ctx context.Context, userID string, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE thread_id = ? AND user_id = ?`, threadID, userID)
	return errors.Wrap(err, "delete messages")
}
