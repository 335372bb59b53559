package search

import (
	"context"

	"go.uber.org/zap"

	"scholars/api/internal/share"
)

// Lister pages through stored shares for a full reindex.
type Lister interface {
	ListShares(ctx context.Context, opts share.ListOptions) ([]share.Snapshot, error)
}

// Service is the facade that tries the engine first and falls back to SQL.
type Service struct {
	engine   Engine
	fallback Searcher
	logger   *zap.Logger
}

// NewService creates a search service. engine may be nil if Meilisearch is
// not configured.
func NewService(engine Engine, fallback Searcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, fallback: fallback, logger: logger}
}

func (s *Service) engineReady() bool {
	return s.engine != nil && s.engine.Healthy()
}

// Search tries the engine if healthy, otherwise falls back to SQL.
func (s *Service) Search(ctx context.Context, q Query) Response {
	q.Limit = NormalizeLimit(q.Limit)
	if s.engineReady() {
		results, total, err := s.engine.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("search engine error, falling back to sql", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("sql search failed", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexShare indexes a share (fire-and-forget).
func (s *Service) IndexShare(snapshot share.Snapshot) {
	if !s.engineReady() {
		return
	}
	record := RecordFor(snapshot)
	go func() {
		if err := s.engine.IndexShares([]ShareRecord{record}); err != nil {
			s.logger.Warn("index share failed", zap.String("slug", record.Slug), zap.Error(err))
		}
	}()
}

// Reindex pushes every stored share to the engine, newest first. Called at
// startup so an empty or stale index catches up with the database.
func (s *Service) Reindex(ctx context.Context, source Lister) (int, error) {
	if !s.engineReady() {
		return 0, nil
	}
	indexed := 0
	opts := share.ListOptions{Limit: share.MaxListLimit}
	for {
		page, err := source.ListShares(ctx, opts)
		if err != nil {
			return indexed, err
		}
		if len(page) == 0 {
			return indexed, nil
		}
		records := make([]ShareRecord, 0, len(page))
		for _, snapshot := range page {
			records = append(records, RecordFor(snapshot))
		}
		if err := s.engine.IndexShares(records); err != nil {
			return indexed, err
		}
		indexed += len(records)
		if len(page) < opts.Limit {
			return indexed, nil
		}
		opts.Before = page[len(page)-1].Slug
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
