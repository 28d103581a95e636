package report

import (
	"embed"
	"fmt"
	"io"
	"text/template"
	"time"
)

//go:embed templates/summary.txt.tmpl
var textTemplateFS embed.FS

var textTemplate = template.Must(template.New("summary.txt.tmpl").Funcs(template.FuncMap{
	"formatDuration": formatDuration,
}).ParseFS(textTemplateFS, "templates/summary.txt.tmpl"))

func generateText(summary Summary, w io.Writer) error {
	if err := textTemplate.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%d ns", d.Nanoseconds())
	} else if d < time.Millisecond {
		return fmt.Sprintf("%.2f us", float64(d.Nanoseconds())/1000.0)
	} else if d < time.Second {
		return fmt.Sprintf("%.2f ms", float64(d.Nanoseconds())/1_000_000.0)
	}
	return d.Round(time.Millisecond).String()
}
