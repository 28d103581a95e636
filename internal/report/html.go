package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed templates/summary.html
var htmlTemplateFS embed.FS

// htmlTemplateData is the root object handed to summary.html; it carries
// report-level presentation options alongside the run Summary itself,
// mirroring the teacher's TemplateData/ReportOptions split.
type htmlTemplateData struct {
	Title    string
	DarkMode bool
	Summary  Summary
}

var htmlTemplate = template.Must(template.New("summary.html").Funcs(template.FuncMap{
	"formatDuration":  formatDuration,
	"formatTimestamp": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}).ParseFS(htmlTemplateFS, "templates/summary.html"))

func generateHTML(summary Summary, w io.Writer) error {
	data := htmlTemplateData{
		Title:    fmt.Sprintf("Search run: %s -> %s", summary.InitialLabel, summary.FinalLabel),
		DarkMode: true,
		Summary:  summary,
	}
	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
