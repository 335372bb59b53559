package share

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultSlugAttempts bounds how many candidate slugs Create tries.
const DefaultSlugAttempts = 5

// Service creates, resolves and lists snapshots on top of a Store.
type Service struct {
	store       Store
	newSlug     SlugFunc
	now         func() time.Time
	maxAttempts int
}

type Option func(*Service)

// WithSlugFunc replaces the slug generator.
func WithSlugFunc(fn SlugFunc) Option {
	return func(s *Service) { s.newSlug = fn }
}

// WithClock replaces the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxAttempts sets the slug retry budget.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		newSlug:     RandomSlug,
		now:         time.Now,
		maxAttempts: DefaultSlugAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the draft, allocates a free slug and stores the snapshot.
// Validation failures are never retried; slug collisions are, up to the
// retry budget.
func (s *Service) Create(ctx context.Context, d Draft) (Snapshot, error) {
	draft, err := Validate(d)
	if err != nil {
		return Snapshot{}, err
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		slug, err := s.newSlug()
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: generate slug: %v", ErrStorageConflict, err)
		}
		exists, err := s.store.SlugExists(ctx, slug)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: check slug: %v", ErrStorageConflict, err)
		}
		if exists {
			continue
		}

		snapshot := Snapshot{
			Slug:       slug,
			Question:   draft.Question,
			Traditions: draft.Traditions,
			Answers:    draft.Answers,
			CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
		}
		err = s.store.InsertShare(ctx, snapshot)
		if errors.Is(err, ErrSlugTaken) {
			continue
		}
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: insert share: %v", ErrStorageConflict, err)
		}
		return snapshot.clone(), nil
	}
	return Snapshot{}, fmt.Errorf("%w: no free slug after %d attempts", ErrStorageConflict, s.maxAttempts)
}

// Get resolves a slug. Unknown or malformed slugs yield ErrNotFound.
func (s *Service) Get(ctx context.Context, slug string) (Snapshot, error) {
	if !ValidSlug(slug) {
		return Snapshot{}, ErrNotFound
	}
	snapshot, err := s.store.GetShare(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("get share %s: %w", slug, err)
	}
	return snapshot, nil
}

// List returns snapshots newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Snapshot, error) {
	opts.Limit = NormalizeLimit(opts.Limit)
	if opts.Before != "" && !ValidSlug(opts.Before) {
		return nil, ErrInvalidCursor
	}
	items, err := s.store.ListShares(ctx, opts)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, fmt.Errorf("list shares: %w", err)
	}
	if items == nil {
		items = []Snapshot{}
	}
	return items, nil
}

// NormalizeLimit clamps a requested page size.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
