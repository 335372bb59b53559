package search

import (
	"context"
	"strings"

	"scholars/api/internal/share"
)

// ShareFinder is the subset of the SQL store the fallback searcher needs.
type ShareFinder interface {
	SearchShares(ctx context.Context, text string, limit int) ([]share.Snapshot, error)
}

// SQL implements Searcher with a substring match on stored questions.
type SQL struct {
	finder ShareFinder
}

func NewSQL(finder ShareFinder) *SQL {
	return &SQL{finder: finder}
}

// Healthy always returns true. If the database is down, the whole app is down.
func (s *SQL) Healthy() bool {
	return true
}

func (s *SQL) Search(ctx context.Context, q Query) ([]Result, int, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, 0, nil
	}
	snapshots, err := s.finder.SearchShares(ctx, text, NormalizeLimit(q.Limit))
	if err != nil {
		return nil, 0, err
	}
	results := make([]Result, 0, len(snapshots))
	for _, snapshot := range snapshots {
		results = append(results, Result{
			Slug:       snapshot.Slug,
			Question:   snapshot.Question,
			Traditions: snapshot.Traditions,
			CreatedAt:  snapshot.CreatedAt,
		})
	}
	return results, len(results), nil
}
