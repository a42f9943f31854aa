package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Reporter writes scenario entries to an output.
type Reporter interface {
	// Write records a single entry.
	Write(entry *Entry) error
	// Close finalizes the report and closes any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// Formats lists the supported report formats.
var Formats = []string{"json", "junit"}

// Extension returns the file extension used for format.
func Extension(format string) string {
	if format == "junit" {
		return ".xml"
	}
	return "." + format
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string, run RunInfo) (Reporter, error) {
	if format != "json" && format != "junit" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	if format == "junit" {
		return NewJUnitReporter(writer, run), nil
	}
	return NewJSONReporter(writer, run), nil
}

// Multi fans entries out to several reporters.
type Multi struct {
	reporters []Reporter
}

// NewMulti groups reporters; Close closes all of them.
func NewMulti(reporters ...Reporter) *Multi {
	return &Multi{reporters: reporters}
}

func (m *Multi) Write(entry *Entry) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Write(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// collector buffers entries until Close. It is safe for concurrent use.
type collector struct {
	mu      sync.Mutex
	entries []*Entry
	closed  bool
}

var errClosed = errors.New("reporter is closed")

func (c *collector) add(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cannot write a nil entry")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	e := *entry
	c.entries = append(c.entries, &e)
	return nil
}

// drain marks the collector closed and returns what it holds. The second
// return is false if it was already closed.
func (c *collector) drain() ([]*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, false
	}
	c.closed = true
	return c.entries, true
}
