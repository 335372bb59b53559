package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"scholars/api/internal/share"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := Open(ctx, "sqlite:"+filepath.Join(t.TempDir(), "shares.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(ctx, db, dialect, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return New(db, dialect)
}

func sampleSnapshot(slug string, at time.Time) share.Snapshot {
	return share.Snapshot{
		Slug:       slug,
		Question:   "What is suffering?",
		Traditions: []string{"Buddhist", "Taoist"},
		Answers: []share.Answer{
			{Tradition: "Buddhist", Answer: "Dukkha arises from craving."},
			{Tradition: "Taoist", Answer: "Resisting the flow of the Tao."},
		},
		CreatedAt: at,
	}
}

func TestParseDatabaseURL(t *testing.T) {
	cases := []struct {
		in      string
		dialect Dialect
		dsn     string
		wantErr bool
	}{
		{in: "postgres://u:p@localhost:5432/db?sslmode=disable", dialect: Postgres, dsn: "postgres://u:p@localhost:5432/db?sslmode=disable"},
		{in: "postgresql://localhost/db", dialect: Postgres, dsn: "postgresql://localhost/db"},
		{in: "sqlite:./data/app.db", dialect: SQLite, dsn: "./data/app.db"},
		{in: "sqlite:///tmp/app.db", dialect: SQLite, dsn: "/tmp/app.db"},
		{in: "sqlite:", wantErr: true},
		{in: "mysql://localhost/db", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		dialect, dsn, err := ParseDatabaseURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.in, err)
			continue
		}
		if dialect != tc.dialect || dsn != tc.dsn {
			t.Errorf("%q: got (%s, %s), want (%s, %s)", tc.in, dialect, dsn, tc.dialect, tc.dsn)
		}
	}
}

func TestRebind(t *testing.T) {
	query := `SELECT 1 FROM shares WHERE slug=$1 AND seq < $2`
	if got := rebind(Postgres, query); got != query {
		t.Fatalf("postgres query must be unchanged, got %s", got)
	}
	if got, want := rebind(SQLite, query), `SELECT 1 FROM shares WHERE slug=? AND seq < ?`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestInsertAndGetShare(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	at := time.Date(2026, 5, 1, 10, 30, 0, 123456000, time.UTC)
	want := sampleSnapshot("abc1234", at)

	if err := s.InsertShare(ctx, want); err != nil {
		t.Fatalf("insert: %v", err)
	}

	exists, err := s.SlugExists(ctx, "abc1234")
	if err != nil || !exists {
		t.Fatalf("expected slug to exist, got %v, %v", exists, err)
	}

	got, err := s.GetShare(ctx, "abc1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestGetShareUnknownSlug(t *testing.T) {
	s := newSQLiteStore(t)
	if _, err := s.GetShare(context.Background(), "missing"); !errors.Is(err, share.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	exists, err := s.SlugExists(context.Background(), "missing")
	if err != nil || exists {
		t.Fatalf("expected slug to be absent, got %v, %v", exists, err)
	}
}

func TestInsertDuplicateSlugReportsTaken(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	if err := s.InsertShare(ctx, sampleSnapshot("dupe123", now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	other := sampleSnapshot("dupe123", now.Add(time.Second))
	other.Question = "A different question?"
	if err := s.InsertShare(ctx, other); !errors.Is(err, share.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	got, err := s.GetShare(ctx, "dupe123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Question != "What is suffering?" {
		t.Fatalf("original snapshot was overwritten: %q", got.Question)
	}
}

func TestListSharesNewestFirstWithCursor(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Two snapshots share a timestamp; insertion order breaks the tie.
	stamps := []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute)}
	for i, at := range stamps {
		if err := s.InsertShare(ctx, sampleSnapshot(fmt.Sprintf("slug%03d", i), at)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	all, err := s.ListShares(ctx, share.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, item := range all {
		got = append(got, item.Slug)
	}
	want := []string{"slug003", "slug002", "slug001", "slug000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	page, err := s.ListShares(ctx, share.ListOptions{Limit: 2, Before: "slug002"})
	if err != nil {
		t.Fatalf("list with cursor: %v", err)
	}
	if len(page) != 2 || page[0].Slug != "slug001" || page[1].Slug != "slug000" {
		t.Fatalf("unexpected page: %+v", page)
	}

	if _, err := s.ListShares(ctx, share.ListOptions{Before: "nope"}); !errors.Is(err, share.ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestSearchSharesMatchesQuestion(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := sampleSnapshot("search1", now)
	second := sampleSnapshot("search2", now.Add(time.Second))
	second.Question = "How should I treat 100% of my neighbours?"
	for _, item := range []share.Snapshot{first, second} {
		if err := s.InsertShare(ctx, item); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	results, err := s.SearchShares(ctx, "SUFFERING", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "search1" {
		t.Fatalf("unexpected results: %+v", results)
	}

	results, err = s.SearchShares(ctx, "100%", 10)
	if err != nil {
		t.Fatalf("search percent: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "search2" {
		t.Fatalf("expected literal percent match, got %+v", results)
	}

	results, err = s.SearchShares(ctx, "  ", 10)
	if err != nil || len(results) != 0 {
		t.Fatalf("blank search should return nothing, got %v, %v", results, err)
	}
}

func TestSearchSharesFoldsNonASCIICase(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	item := sampleSnapshot("etica01", time.Now().UTC().Truncate(time.Microsecond))
	item.Question = "Ética y sufrimiento?"
	if err := s.InsertShare(ctx, item); err != nil {
		t.Fatalf("insert: %v", err)
	}

	for _, query := range []string{"Ética", "ética", "ÉTICA", "SUFRIMIENTO", "y sufr"} {
		results, err := s.SearchShares(ctx, query, 10)
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		if len(results) != 1 || results[0].Slug != "etica01" {
			t.Errorf("search %q: expected etica01, got %+v", query, results)
		}
	}
	if results, err := s.SearchShares(ctx, "etica", 10); err != nil || len(results) != 0 {
		t.Errorf("accents must not be stripped, got %+v, %v", results, err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	initial, err := s.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if initial.HasAPIKey() || initial.UpdatedAt != nil {
		t.Fatalf("expected empty settings, got %+v", initial)
	}

	at := time.Date(2026, 2, 2, 2, 2, 2, 0, time.UTC)
	saved, err := s.SaveAPIKey(ctx, "key-one-123", at)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.APIKey != "key-one-123" || saved.UpdatedAt == nil || !saved.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected saved settings: %+v", saved)
	}

	later := at.Add(time.Hour)
	updated, err := s.SaveAPIKey(ctx, "key-two-456", later)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.APIKey != "key-two-456" || !updated.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected updated settings: %+v", updated)
	}
}

func TestServiceOverSQLiteConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	svc := share.NewService(s)

	const total = 40
	var wg sync.WaitGroup
	errs := make(chan error, total)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, share.Draft{
				Question:   "What is suffering?",
				Traditions: []string{"Buddhist"},
				Answers:    []share.Answer{{Tradition: "Buddhist", Answer: "..."}},
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("create: %v", err)
	}

	items, err := svc.List(ctx, share.ListOptions{Limit: share.MaxListLimit})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != total {
		t.Fatalf("expected %d snapshots, got %d", total, len(items))
	}
	seen := map[string]bool{}
	for _, item := range items {
		if seen[item.Slug] {
			t.Fatalf("slug %s stored twice", item.Slug)
		}
		seen[item.Slug] = true
	}
}
