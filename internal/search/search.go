// Package search finds past shares by question text. Meilisearch is used when
// it is configured and healthy; the SQL store answers otherwise.
package search

import (
	"context"
	"time"

	"scholars/api/internal/share"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Result is a single search hit returned to the caller.
type Result struct {
	Slug       string    `json:"slug"`
	Question   string    `json:"question"`
	Traditions []string  `json:"traditions"`
	CreatedAt  time.Time `json:"created_at"`
	Snippet    string    `json:"snippet,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text  string
	Limit int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push shares into a search index.
type Indexer interface {
	IndexShares(records []ShareRecord) error
}

// Engine is a search backend that also maintains its own index.
type Engine interface {
	Searcher
	Indexer
}

// ShareRecord is the data we index for a share.
type ShareRecord struct {
	Slug       string   `json:"slug"`
	Question   string   `json:"question"`
	Traditions []string `json:"traditions"`
	Answers    []string `json:"answers"`
	CreatedAt  int64    `json:"createdAt"`
}

// RecordFor flattens a snapshot into its index record.
func RecordFor(snapshot share.Snapshot) ShareRecord {
	answers := make([]string, 0, len(snapshot.Answers))
	for _, answer := range snapshot.Answers {
		answers = append(answers, answer.Answer)
	}
	return ShareRecord{
		Slug:       snapshot.Slug,
		Question:   snapshot.Question,
		Traditions: append([]string(nil), snapshot.Traditions...),
		Answers:    answers,
		CreatedAt:  snapshot.CreatedAt.UnixMilli(),
	}
}

// NormalizeLimit clamps a requested limit to [1, MaxLimit].
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
