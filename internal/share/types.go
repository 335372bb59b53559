// Package share implements the snapshot store behind permanent share links:
// creating immutable question/answer snapshots, resolving them by slug and
// listing them for the browsing view.
package share

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidSnapshot reports a malformed create request.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrNotFound reports an unknown slug.
	ErrNotFound = errors.New("share not found")
	// ErrStorageConflict reports slug exhaustion or a failed write.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrSlugTaken is returned by a Store when an insert hits an existing slug.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrInvalidCursor reports a listing cursor that does not name a stored snapshot.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Answer is one scholar's reply, scoped to a single tradition.
type Answer struct {
	Tradition string `json:"tradition"`
	Answer    string `json:"answer"`
}

// Snapshot is the immutable record of one question/answer exchange.
type Snapshot struct {
	Slug       string    `json:"slug"`
	Question   string    `json:"question"`
	Traditions []string  `json:"traditions"`
	Answers    []Answer  `json:"answers"`
	CreatedAt  time.Time `json:"created_at"`
}

// Draft is the caller-supplied content of a snapshot before it is stored.
type Draft struct {
	Question   string
	Traditions []string
	Answers    []Answer
}

// ListOptions bounds a listing. Before is the slug of the last snapshot of
// the previous page; an empty Before starts from the most recent snapshot.
type ListOptions struct {
	Limit  int
	Before string
}

const (
	DefaultListLimit = 200
	MaxListLimit     = 500
)

// Store persists snapshots. Implementations must enforce slug uniqueness
// themselves and report a duplicate insert with ErrSlugTaken.
type Store interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	InsertShare(ctx context.Context, snapshot Snapshot) error
	GetShare(ctx context.Context, slug string) (Snapshot, error)
	ListShares(ctx context.Context, opts ListOptions) ([]Snapshot, error)
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Traditions = append([]string(nil), s.Traditions...)
	out.Answers = append([]Answer(nil), s.Answers...)
	return out
}
