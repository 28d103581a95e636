package report

import (
	"fmt"
	"io"
)

// Generate renders summary to w in the requested format.
func Generate(summary Summary, format Format, w io.Writer) error {
	switch format {
	case FormatText, "":
		return generateText(summary, w)
	case FormatJSON:
		return generateJSON(summary, w)
	case FormatHTML:
		return generateHTML(summary, w)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}
