package reporting

import (
	"fmt"
	"io"
	"time"

	json "github.com/json-iterator/go"
)

// Document is the JSON report layout.
type Document struct {
	Run        RunInfo   `json:"run"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    Summary   `json:"summary"`
	Entries    []*Entry  `json:"entries"`
}

// JSONReporter writes one JSON document on Close.
type JSONReporter struct {
	writer io.WriteCloser
	run    RunInfo
	now    func() time.Time
	collector
}

// NewJSONReporter takes ownership of writer.
func NewJSONReporter(writer io.WriteCloser, run RunInfo) *JSONReporter {
	return &JSONReporter{writer: writer, run: run, now: time.Now}
}

func (r *JSONReporter) Write(entry *Entry) error { return r.add(entry) }

func (r *JSONReporter) Close() error {
	entries, ok := r.drain()
	if !ok {
		return nil
	}
	if entries == nil {
		entries = []*Entry{}
	}
	doc := Document{
		Run:        r.run,
		FinishedAt: r.now(),
		Summary:    Summarize(entries),
		Entries:    entries,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to marshal json report: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to write json report: %w", err)
	}
	return r.writer.Close()
}
