// pkg/journal/severity.go

package journal

import (
	"fmt"
	"time"
)

// Severity tags one journal line.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
	SeveritySuccess
	SeveritySummary
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeveritySuccess:
		return "SUCCESS"
	case SeveritySummary:
		return "SUMMARY"
	default:
		return "INFO"
	}
}

// TimeLayout is the journal timestamp: YYYY-MM-DD HH:MM:SS, local time.
const TimeLayout = "2006-01-02 15:04:05"

// FormatLine renders one journal record without a trailing newline.
func FormatLine(sev Severity, t time.Time, msg string) string {
	return fmt.Sprintf("[%s] %s %s", sev, t.Format(TimeLayout), msg)
}
