package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirebot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS memes (
	id         TEXT PRIMARY KEY,
	author     TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS quotes (
	id         TEXT PRIMARY KEY,
	author     TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (and bootstraps) the database at dbPath.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddMeme appends one meme. A zero ID or timestamp is filled in.
func (s *SQLiteStore) AddMeme(ctx context.Context, m store.Meme) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memes (id, author, content, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.Author, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert meme: %w", err)
	}
	return nil
}

// Memes loads every stored meme, oldest first.
func (s *SQLiteStore) Memes(ctx context.Context) ([]store.Meme, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author, content, created_at FROM memes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select memes: %w", err)
	}
	defer rows.Close()

	var memes []store.Meme
	for rows.Next() {
		var m store.Meme
		if err := rows.Scan(&m.ID, &m.Author, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan meme: %w", err)
		}
		memes = append(memes, m)
	}
	return memes, rows.Err()
}

// RandomMeme picks one meme uniformly at random.
func (s *SQLiteStore) RandomMeme(ctx context.Context) (*store.Meme, error) {
	var m store.Meme
	err := s.db.QueryRowContext(ctx,
		`SELECT id, author, content, created_at FROM memes ORDER BY RANDOM() LIMIT 1`).
		Scan(&m.ID, &m.Author, &m.Content, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("random meme: %w", err)
	}
	return &m, nil
}

// MemeExists reports whether an equivalent meme is already stored.
// Comparison ignores case and spacing.
func (s *SQLiteStore) MemeExists(ctx context.Context, content string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM memes
		 WHERE LOWER(REPLACE(content, ' ', '')) = LOWER(REPLACE(?, ' ', ''))`,
		content).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("meme exists: %w", err)
	}
	return n > 0, nil
}

// AddQuote appends one quote. A zero ID or timestamp is filled in.
func (s *SQLiteStore) AddQuote(ctx context.Context, q store.Quote) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotes (id, author, content, created_at) VALUES (?, ?, ?, ?)`,
		q.ID, q.Author, q.Content, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

// Quotes loads every stored quote, oldest first.
func (s *SQLiteStore) Quotes(ctx context.Context) ([]store.Quote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, author, content, created_at FROM quotes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("select quotes: %w", err)
	}
	defer rows.Close()

	var quotes []store.Quote
	for rows.Next() {
		var q store.Quote
		if err := rows.Scan(&q.ID, &q.Author, &q.Content, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// RandomQuote picks one quote uniformly at random.
func (s *SQLiteStore) RandomQuote(ctx context.Context) (*store.Quote, error) {
	var q store.Quote
	err := s.db.QueryRowContext(ctx,
		`SELECT id, author, content, created_at FROM quotes ORDER BY RANDOM() LIMIT 1`).
		Scan(&q.ID, &q.Author, &q.Content, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("random quote: %w", err)
	}
	return &q, nil
}
