package environment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aibasel/machetli-go/internal/machetlierr"
)

var memoryPattern = regexp.MustCompile(`^(\d+)([kKmMgG]?)$`)

// parseMemoryKiB parses a memory string of the form `^(\d+)(k|m|g)?$`
// (case-insensitive; no suffix means MiB, k means KiB, g means GiB) and
// normalizes the result to KiB, mirroring machetli's memory-unit grammar.
func parseMemoryKiB(s string) (int64, error) {
	match := memoryPattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0, &machetlierr.ConfigurationError{
			Message: fmt.Sprintf("malformed memory string %q, want digits optionally followed by k/m/g", s),
		}
	}

	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, &machetlierr.ConfigurationError{Message: fmt.Sprintf("memory string %q overflows int64", s)}
	}

	switch strings.ToLower(match[2]) {
	case "k":
		return value, nil
	case "g":
		return value * 1024 * 1024, nil
	default: // "" or "m" both mean MiB
		return value * 1024, nil
	}
}
