package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"scholars/api/internal/export"
	"scholars/api/internal/scholar"
	"scholars/api/internal/share"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ErrAPIKeyRequired is returned by Ask before any provider call when no
// credential has been saved.
var ErrAPIKeyRequired = domainError(http.StatusBadRequest, "API_KEY_REQUIRED", "Set the API key in Settings first.", nil)

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var tradErr *scholar.TraditionError
	switch {
	case errors.Is(err, share.ErrInvalidSnapshot):
		return http.StatusUnprocessableEntity, "INVALID_SNAPSHOT", reason(err, share.ErrInvalidSnapshot), nil
	case errors.Is(err, share.ErrInvalidCursor):
		return http.StatusBadRequest, "INVALID_CURSOR", "Unknown listing cursor", nil
	case errors.Is(err, share.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Share not found", nil
	case errors.Is(err, share.ErrStorageConflict):
		return http.StatusConflict, "STORAGE_CONFLICT", "Unable to generate share link. Try again.", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "format must be html, pdf or docx", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusNotImplemented, "EXPORT_UNAVAILABLE", err.Error(), nil
	case errors.Is(err, scholar.ErrTimeout):
		if errors.As(err, &tradErr) {
			return http.StatusGatewayTimeout, "ANSWER_TIMEOUT", tradErr.Error(), map[string]any{"tradition": tradErr.Tradition}
		}
		return http.StatusGatewayTimeout, "ANSWER_TIMEOUT", "Response timed out", nil
	case errors.Is(err, scholar.ErrProvider):
		if errors.As(err, &tradErr) {
			return http.StatusBadGateway, "ANSWER_FAILED", tradErr.Error(), map[string]any{"tradition": tradErr.Tradition}
		}
		return http.StatusBadGateway, "ANSWER_FAILED", "Answer provider failed", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// reason strips the sentinel prefix from a wrapped validation error.
func reason(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
