package report

import (
	"encoding/json"
	"fmt"
	"io"
)

func generateJSON(summary Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("render json report: %w", err)
	}
	return nil
}
