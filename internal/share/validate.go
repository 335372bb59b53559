package share

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinQuestionLength = 4
	MaxQuestionLength = 500
	MaxAnswerTotal    = 8000
)

// ValidateTraditions checks a tradition selection on its own. The ask flow
// uses it before any answers exist.
func ValidateTraditions(traditions []string) error {
	if len(traditions) == 0 {
		return fmt.Errorf("%w: select at least one tradition", ErrInvalidSnapshot)
	}
	if len(traditions) > MaxTraditions {
		return fmt.Errorf("%w: at most %d traditions may be selected", ErrInvalidSnapshot, MaxTraditions)
	}
	seen := make(map[string]struct{}, len(traditions))
	for _, name := range traditions {
		if !IsTradition(name) {
			return fmt.Errorf("%w: unsupported tradition: %s", ErrInvalidSnapshot, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate tradition: %s", ErrInvalidSnapshot, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// NormalizeQuestion trims the question and checks its length.
func NormalizeQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", fmt.Errorf("%w: question is required", ErrInvalidSnapshot)
	}
	n := utf8.RuneCountInString(trimmed)
	if n < MinQuestionLength {
		return "", fmt.Errorf("%w: question must be at least %d characters", ErrInvalidSnapshot, MinQuestionLength)
	}
	if n > MaxQuestionLength {
		return "", fmt.Errorf("%w: question must be at most %d characters", ErrInvalidSnapshot, MaxQuestionLength)
	}
	return trimmed, nil
}

// Validate checks a draft and returns it with the question trimmed.
func Validate(d Draft) (Draft, error) {
	question, err := NormalizeQuestion(d.Question)
	if err != nil {
		return Draft{}, err
	}
	if err := ValidateTraditions(d.Traditions); err != nil {
		return Draft{}, err
	}
	if len(d.Answers) != len(d.Traditions) {
		return Draft{}, fmt.Errorf("%w: expected %d answers, got %d", ErrInvalidSnapshot, len(d.Traditions), len(d.Answers))
	}
	total := 0
	for i, answer := range d.Answers {
		if answer.Tradition != d.Traditions[i] {
			return Draft{}, fmt.Errorf("%w: answer %d is for %q, expected %q", ErrInvalidSnapshot, i, answer.Tradition, d.Traditions[i])
		}
		total += utf8.RuneCountInString(answer.Answer)
	}
	if total > MaxAnswerTotal {
		return Draft{}, fmt.Errorf("%w: answers too long to share", ErrInvalidSnapshot)
	}
	return Draft{
		Question:   question,
		Traditions: append([]string(nil), d.Traditions...),
		Answers:    append([]Answer(nil), d.Answers...),
	}, nil
}
