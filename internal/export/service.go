package export

import (
	"context"
	"fmt"

	"scholars/api/internal/share"
)

type renderFunc func(ctx context.Context, html, title string) (*Result, error)

// Service provides share export functionality
type Service struct {
	baseURL    string
	renderPDF  renderFunc
	renderDOCX renderFunc
}

// NewService creates a new export service. baseURL, when set, is used to
// print the public share link on exported pages.
func NewService(baseURL string) *Service {
	return &Service{baseURL: baseURL, renderPDF: exportPDF, renderDOCX: exportDOCX}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, snapshot share.Snapshot, format Format) (*Result, error) {
	link := ""
	if s.baseURL != "" {
		link = s.baseURL + "/share/" + snapshot.Slug
	}
	html, err := RenderShareHTML(NewTemplateData(snapshot, link))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title := sanitizeFilename(snapshot.Question)
	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: title + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return s.renderPDF(ctx, html, title)
	case FormatDOCX:
		return s.renderDOCX(ctx, html, title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
