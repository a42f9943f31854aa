package reporting

import "time"

// Status is the outcome of one scenario.
type Status string

const (
	// StatusPassed means every contract check held.
	StatusPassed Status = "passed"
	// StatusFailed means a contract check did not hold.
	StatusFailed Status = "failed"
	// StatusError means the flow broke before the checks could run
	// (missing element, navigation failure, provisioning failure).
	StatusError Status = "error"
)

// Entry is the record of one scenario run.
type Entry struct {
	Name              string        `json:"name"`
	Status            Status        `json:"status"`
	Worker            int           `json:"worker"`
	SessionID         string        `json:"session_id,omitempty"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration_ns"`
	RequestedIndex    int           `json:"requested_index"`
	ActualIndex       int           `json:"actual_index"`
	FellBack          bool          `json:"fell_back"`
	Readiness         string        `json:"readiness,omitempty"`
	Screenshot        string        `json:"screenshot,omitempty"`
	ScreenshotBytes   int64         `json:"screenshot_bytes,omitempty"`
	FailureScreenshot string        `json:"failure_screenshot,omitempty"`
	URL               string        `json:"url,omitempty"`
	Check             string        `json:"check,omitempty"`
	Error             string        `json:"error,omitempty"`
}

// RunInfo describes the run the entries belong to.
type RunInfo struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	Device    string    `json:"device"`
	BaseURL   string    `json:"base_url"`
	StartedAt time.Time `json:"started_at"`
}

// Summary counts entries by status.
type Summary struct {
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errored  int           `json:"errored"`
	Duration time.Duration `json:"duration_ns"`
}

// Summarize tallies entries.
func Summarize(entries []*Entry) Summary {
	var s Summary
	for _, e := range entries {
		s.Total++
		s.Duration += e.Duration
		switch e.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		default:
			s.Errored++
		}
	}
	return s
}

// OK reports whether every entry passed.
func (s Summary) OK() bool { return s.Failed == 0 && s.Errored == 0 }
