package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"scholars/api/internal/share"
)

//go:embed templates/*.html
var templateFS embed.FS

var shareTemplate = template.Must(template.New("share.html").Funcs(template.FuncMap{
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).ParseFS(templateFS, "templates/share.html"))

// TemplateData holds data for share template rendering
type TemplateData struct {
	Question  string
	CreatedAt time.Time
	Link      string
	Answers   []TemplateAnswer
}

// TemplateAnswer holds one tradition's answer split into paragraphs
type TemplateAnswer struct {
	Tradition  string
	Paragraphs []string
}

// NewTemplateData builds template data for a snapshot. link is the public
// share URL and may be empty.
func NewTemplateData(snapshot share.Snapshot, link string) TemplateData {
	data := TemplateData{
		Question:  snapshot.Question,
		CreatedAt: snapshot.CreatedAt,
		Link:      link,
		Answers:   make([]TemplateAnswer, 0, len(snapshot.Answers)),
	}
	for _, answer := range snapshot.Answers {
		data.Answers = append(data.Answers, TemplateAnswer{
			Tradition:  answer.Tradition,
			Paragraphs: paragraphs(answer.Answer),
		})
	}
	return data
}

// RenderShareHTML renders the share template. All answer text is escaped.
func RenderShareHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := shareTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// paragraphs splits answer text on blank lines.
func paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Join(strings.Fields(block), " ")
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
