package service

import (
	"strings"
	"time"
)

// SuggestProblemName returns name trimmed, or a timestamped fallback such as
// "problem-20261018-091403" when it is blank.
func SuggestProblemName(name string, now time.Time) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "problem-" + now.UTC().Format("20060102-150405")
}
