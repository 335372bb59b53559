package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"scholars/api/internal/export"
	"scholars/api/internal/scholar"
	"scholars/api/internal/search"
	"scholars/api/internal/share"
	"scholars/api/internal/store"
)

const (
	minAPIKeyLength = 8
	archiveTimeout  = 30 * time.Second
)

type AskInput struct {
	Question   string   `json:"question"`
	Traditions []string `json:"traditions"`
}

type AskResult struct {
	Answers []share.Answer `json:"answers"`
	Slug    string         `json:"slug"`
}

type CreateShareInput struct {
	Question   string         `json:"question"`
	Traditions []string       `json:"traditions"`
	Answers    []share.Answer `json:"answers"`
}

type UpdateSettingsInput struct {
	APIKey string `json:"api_key"`
}

type SettingsView struct {
	HasAPIKey   bool       `json:"has_api_key"`
	LastUpdated *time.Time `json:"last_updated"`
}

type ShareSummary struct {
	Slug      string    `json:"slug"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
}

type TraditionsView struct {
	Traditions   []string `json:"traditions"`
	MaxSelection int      `json:"max_selection"`
}

type settingsStore interface {
	GetSettings(context.Context) (store.Settings, error)
	SaveAPIKey(context.Context, string, time.Time) (store.Settings, error)
	Ping(context.Context) error
}

type answerer interface {
	Ask(ctx context.Context, apiKey, question string, traditions []string) ([]share.Answer, error)
}

type shareSearcher interface {
	Search(context.Context, search.Query) search.Response
	IndexShare(share.Snapshot)
}

type shareArchiver interface {
	Put(context.Context, share.Snapshot) error
}

type pinger interface {
	Ping(context.Context) error
}

type shareExporter interface {
	Export(context.Context, share.Snapshot, export.Format) (*export.Result, error)
}

// Deps wires the service. Search, Archive, Export, Cache and Metrics are
// optional.
type Deps struct {
	Shares       share.Store
	Settings     settingsStore
	Answers      answerer
	Search       shareSearcher
	Archive      shareArchiver
	Export       shareExporter
	Cache        pinger
	Metrics      *Metrics
	Logger       *zap.Logger
	ShareOptions []share.Option
	Now          func() time.Time
}

type Service struct {
	shares   *share.Service
	settings settingsStore
	answers  answerer
	search   shareSearcher
	archive  shareArchiver
	exporter shareExporter
	cache    pinger
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	opts := append([]share.Option{share.WithClock(now)}, deps.ShareOptions...)
	return &Service{
		shares:   share.NewService(deps.Shares, opts...),
		settings: deps.Settings,
		answers:  deps.Answers,
		search:   deps.Search,
		archive:  deps.Archive,
		exporter: deps.Export,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.settings.Ping(ctx)
}

// PingCache reports whether a share cache is configured and reachable.
func (s *Service) PingCache(ctx context.Context) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	return true, s.cache.Ping(ctx)
}

// Ask collects one answer per selected tradition and stores the exchange as
// a new share. Nothing is stored when any tradition fails.
func (s *Service) Ask(ctx context.Context, input AskInput) (AskResult, error) {
	question, err := share.NormalizeQuestion(input.Question)
	if err != nil {
		return AskResult{}, err
	}
	if err := share.ValidateTraditions(input.Traditions); err != nil {
		return AskResult{}, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return AskResult{}, err
	}
	if !settings.HasAPIKey() {
		return AskResult{}, ErrAPIKeyRequired
	}

	started := time.Now()
	answers, err := s.answers.Ask(ctx, settings.APIKey, question, input.Traditions)
	if err == nil {
		err = matchAnswers(answers, input.Traditions)
	}
	if err != nil {
		s.metrics.observeAsk("error", time.Since(started))
		return AskResult{}, err
	}
	s.metrics.observeAsk("ok", time.Since(started))

	snapshot, err := s.shares.Create(ctx, share.Draft{
		Question:   question,
		Traditions: input.Traditions,
		Answers:    answers,
	})
	if err != nil {
		return AskResult{}, err
	}
	s.afterCreate(snapshot, "ask")
	return AskResult{Answers: snapshot.Answers, Slug: snapshot.Slug}, nil
}

// matchAnswers rejects provider output that does not carry exactly one
// answer per requested tradition, in request order.
func matchAnswers(answers []share.Answer, traditions []string) error {
	if len(answers) != len(traditions) {
		return fmt.Errorf("%w: got %d answers for %d traditions", scholar.ErrProvider, len(answers), len(traditions))
	}
	for i, answer := range answers {
		if answer.Tradition != traditions[i] {
			return fmt.Errorf("%w: answer %d is for %q, expected %q", scholar.ErrProvider, i, answer.Tradition, traditions[i])
		}
	}
	return nil
}

func (s *Service) CreateShare(ctx context.Context, input CreateShareInput) (share.Snapshot, error) {
	snapshot, err := s.shares.Create(ctx, share.Draft{
		Question:   input.Question,
		Traditions: input.Traditions,
		Answers:    input.Answers,
	})
	if err != nil {
		return share.Snapshot{}, err
	}
	s.afterCreate(snapshot, "share")
	return snapshot, nil
}

func (s *Service) GetShare(ctx context.Context, slug string) (share.Snapshot, error) {
	return s.shares.Get(ctx, slug)
}

// ExportShare renders a stored share as a downloadable document.
func (s *Service) ExportShare(ctx context.Context, slug, rawFormat string) (*export.Result, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, domainError(http.StatusNotImplemented, "EXPORT_UNAVAILABLE", "Export is not configured", nil)
	}
	snapshot, err := s.shares.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	result, err := s.exporter.Export(ctx, snapshot, format)
	if err != nil {
		return nil, err
	}
	s.logger.Info("share exported", zap.String("slug", slug), zap.String("format", string(format)))
	return result, nil
}

func (s *Service) ListShares(ctx context.Context, limit int, before string) ([]ShareSummary, error) {
	items, err := s.shares.List(ctx, share.ListOptions{Limit: limit, Before: before})
	if err != nil {
		return nil, err
	}
	summaries := make([]ShareSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, ShareSummary{
			Slug:      item.Slug,
			Question:  item.Question,
			CreatedAt: item.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *Service) SearchShares(ctx context.Context, text string, limit int) (search.Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return search.Response{}, domainError(http.StatusBadRequest, "QUERY_REQUIRED", "Search query is required", nil)
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(ctx, search.Query{Text: text, Limit: limit}), nil
}

func (s *Service) Traditions() TraditionsView {
	return TraditionsView{
		Traditions:   append([]string(nil), share.Traditions...),
		MaxSelection: share.MaxTraditions,
	}
}

func (s *Service) Settings(ctx context.Context) (SettingsView, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return SettingsView{}, err
	}
	return settingsView(settings), nil
}

func (s *Service) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (SettingsView, error) {
	key := strings.TrimSpace(input.APIKey)
	if len(key) < minAPIKeyLength {
		return SettingsView{}, domainError(http.StatusUnprocessableEntity, "INVALID_API_KEY", "API key must be at least 8 characters", nil)
	}
	settings, err := s.settings.SaveAPIKey(ctx, key, s.now().UTC())
	if err != nil {
		return SettingsView{}, err
	}
	s.logger.Info("api key updated")
	return settingsView(settings), nil
}

func settingsView(settings store.Settings) SettingsView {
	return SettingsView{HasAPIKey: settings.HasAPIKey(), LastUpdated: settings.UpdatedAt}
}

// afterCreate feeds a new snapshot to the optional search index and archive.
// Both run in the background; the snapshot is already durable.
func (s *Service) afterCreate(snapshot share.Snapshot, source string) {
	s.metrics.shareCreated(source)
	s.logger.Info("share created",
		zap.String("slug", snapshot.Slug),
		zap.String("source", source),
		zap.Int("traditions", len(snapshot.Traditions)))

	if s.search != nil {
		s.search.IndexShare(snapshot)
	}
	if s.archive != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
			defer cancel()
			if err := s.archive.Put(ctx, snapshot); err != nil {
				s.logger.Warn("archive share failed", zap.String("slug", snapshot.Slug), zap.Error(err))
			}
		}()
	}
}
