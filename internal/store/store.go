package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"scholars/api/internal/share"
)

// Store is the SQL-backed share and settings store. The same queries serve
// Postgres and SQLite; placeholders are rebound per dialect.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) q(query string) string {
	return rebind(s.dialect, query)
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, s.q(`SELECT EXISTS(SELECT 1 FROM shares WHERE slug=$1)`), slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// InsertShare writes the whole snapshot in one statement, so readers see
// either the complete row or nothing.
func (s *Store) InsertShare(ctx context.Context, snapshot share.Snapshot) error {
	traditions, err := json.Marshal(snapshot.Traditions)
	if err != nil {
		return fmt.Errorf("marshal traditions: %w", err)
	}
	answers, err := json.Marshal(snapshot.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO shares (slug, question, question_search, traditions, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`), snapshot.Slug, snapshot.Question, foldQuestion(snapshot.Question), string(traditions), string(answers), timeArg(s.dialect, snapshot.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return share.ErrSlugTaken
		}
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

func (s *Store) GetShare(ctx context.Context, slug string) (share.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT slug, question, traditions, answers, created_at
		FROM shares
		WHERE slug=$1
	`), slug)
	item, err := scanShare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return share.Snapshot{}, share.ErrNotFound
	}
	if err != nil {
		return share.Snapshot{}, err
	}
	return item, nil
}

func (s *Store) ListShares(ctx context.Context, opts share.ListOptions) ([]share.Snapshot, error) {
	limit := share.NormalizeLimit(opts.Limit)

	query := `
		SELECT slug, question, traditions, answers, created_at
		FROM shares
		ORDER BY created_at DESC, seq DESC
		LIMIT $1
	`
	args := []any{limit}

	if opts.Before != "" {
		var cursorAt timeValue
		var cursorSeq int64
		err := s.db.QueryRowContext(ctx, s.q(`SELECT created_at, seq FROM shares WHERE slug=$1`), opts.Before).Scan(&cursorAt, &cursorSeq)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, share.ErrInvalidCursor
		}
		if err != nil {
			return nil, fmt.Errorf("read cursor: %w", err)
		}
		query = `
			SELECT slug, question, traditions, answers, created_at
			FROM shares
			WHERE created_at < $1 OR (created_at = $2 AND seq < $3)
			ORDER BY created_at DESC, seq DESC
			LIMIT $4
		`
		at := timeArg(s.dialect, cursorAt.Time)
		args = []any{at, at, cursorSeq, limit}
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	items := make([]share.Snapshot, 0)
	for rows.Next() {
		item, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shares: %w", err)
	}
	return items, nil
}

// SearchShares matches question text case-insensitively. It backs the search
// endpoint when no search engine is reachable. Matching runs against
// question_search, which holds the question folded in Go at insert time.
func (s *Store) SearchShares(ctx context.Context, text string, limit int) ([]share.Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []share.Snapshot{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(foldQuestion(text)) + "%"

	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT slug, question, traditions, answers, created_at
		FROM shares
		WHERE question_search LIKE $1 ESCAPE '\'
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`), pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search shares: %w", err)
	}
	defer rows.Close()

	items := make([]share.Snapshot, 0)
	for rows.Next() {
		item, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return items, nil
}

func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	var apiKey sql.NullString
	var updatedAt timeValue
	err := s.db.QueryRowContext(ctx, `SELECT api_key, updated_at FROM settings WHERE id = 1`).Scan(&apiKey, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	out := Settings{APIKey: apiKey.String}
	if updatedAt.Valid {
		at := updatedAt.Time
		out.UpdatedAt = &at
	}
	return out, nil
}

func (s *Store) SaveAPIKey(ctx context.Context, apiKey string, at time.Time) (Settings, error) {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO settings (id, api_key, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET api_key=EXCLUDED.api_key, updated_at=EXCLUDED.updated_at
	`), apiKey, timeArg(s.dialect, at))
	if err != nil {
		return Settings{}, fmt.Errorf("save api key: %w", err)
	}
	return s.GetSettings(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShare(row rowScanner) (share.Snapshot, error) {
	var item share.Snapshot
	var traditions, answers string
	var createdAt timeValue
	if err := row.Scan(&item.Slug, &item.Question, &traditions, &answers, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return share.Snapshot{}, err
		}
		return share.Snapshot{}, fmt.Errorf("scan share: %w", err)
	}
	if err := json.Unmarshal([]byte(traditions), &item.Traditions); err != nil {
		return share.Snapshot{}, fmt.Errorf("decode traditions for %s: %w", item.Slug, err)
	}
	if err := json.Unmarshal([]byte(answers), &item.Answers); err != nil {
		return share.Snapshot{}, fmt.Errorf("decode answers for %s: %w", item.Slug, err)
	}
	item.CreatedAt = createdAt.Time
	return item, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// foldQuestion is the case folding shared by stored questions and search text.
func foldQuestion(value string) string {
	return strings.ToLower(value)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
