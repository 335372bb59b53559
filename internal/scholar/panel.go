package scholar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scholars/api/internal/share"
)

var (
	// ErrTimeout reports a tradition whose answer did not arrive in time.
	ErrTimeout = errors.New("answer timed out")
	// ErrProvider reports a failed model call.
	ErrProvider = errors.New("answer provider failed")
)

// TraditionError names the tradition a provider failure belongs to.
type TraditionError struct {
	Tradition string
	Err       error
}

func (e *TraditionError) Error() string {
	if errors.Is(e.Err, ErrTimeout) {
		return fmt.Sprintf("%s response timed out", e.Tradition)
	}
	return fmt.Sprintf("LLM call failed for %s: %v", e.Tradition, e.Err)
}

func (e *TraditionError) Unwrap() error {
	return e.Err
}

// Model completes a single persona prompt.
type Model interface {
	Complete(ctx context.Context, system, question string) (string, error)
}

// ModelFactory builds a Model for the credential currently configured.
type ModelFactory func(ctx context.Context, apiKey string) (Model, error)

// DefaultTimeout bounds each tradition's model call.
const DefaultTimeout = 20 * time.Second

// Panel fans a question out to one persona per tradition.
type Panel struct {
	newModel ModelFactory
	timeout  time.Duration
	logger   *zap.Logger
}

func NewPanel(newModel ModelFactory, timeout time.Duration, logger *zap.Logger) *Panel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{newModel: newModel, timeout: timeout, logger: logger}
}

// Ask queries every tradition concurrently and returns the answers in the
// order the traditions were given. The first failure cancels the rest.
func (p *Panel) Ask(ctx context.Context, apiKey, question string, traditions []string) ([]share.Answer, error) {
	selected, err := Personas(traditions)
	if err != nil {
		return nil, err
	}
	model, err := p.newModel(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	answers := make([]share.Answer, len(selected))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, persona := range selected {
		group.Go(func() error {
			started := time.Now()
			text, err := p.askOne(groupCtx, model, persona, question)
			if err != nil {
				p.logger.Warn("scholar answer failed",
					zap.String("tradition", persona.Tradition),
					zap.Duration("elapsed", time.Since(started)),
					zap.Error(err))
				return &TraditionError{Tradition: persona.Tradition, Err: err}
			}
			p.logger.Debug("scholar answered",
				zap.String("tradition", persona.Tradition),
				zap.Duration("elapsed", time.Since(started)))
			answers[i] = share.Answer{Tradition: persona.Tradition, Answer: text}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

func (p *Panel) askOne(ctx context.Context, model Model, persona Persona, question string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text, err := model.Complete(callCtx, persona.Prompt, question)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty answer", ErrProvider)
	}
	return text, nil
}
