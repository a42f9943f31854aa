package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// JUnitReporter writes a JUnit XML document on Close, one testcase per entry,
// for CI systems that render test results.
type JUnitReporter struct {
	writer io.WriteCloser
	run    RunInfo
	collector
}

// NewJUnitReporter takes ownership of writer.
func NewJUnitReporter(writer io.WriteCloser, run RunInfo) *JUnitReporter {
	return &JUnitReporter{writer: writer, run: run}
}

func (r *JUnitReporter) Write(entry *Entry) error { return r.add(entry) }

func (r *JUnitReporter) Close() error {
	entries, ok := r.drain()
	if !ok {
		return nil
	}
	doc := buildJUnit(r.run, entries)
	if _, err := doc.WriteTo(r.writer); err != nil {
		r.writer.Close()
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return r.writer.Close()
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func buildJUnit(run RunInfo, entries []*Entry) *etree.Document {
	sum := Summarize(entries)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "streamprobe")
	suites.CreateAttr("tests", strconv.Itoa(sum.Total))
	suites.CreateAttr("failures", strconv.Itoa(sum.Failed))
	suites.CreateAttr("errors", strconv.Itoa(sum.Errored))
	suites.CreateAttr("time", seconds(sum.Duration))

	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "streamprobe")
	suite.CreateAttr("id", run.ID)
	suite.CreateAttr("tests", strconv.Itoa(sum.Total))
	suite.CreateAttr("failures", strconv.Itoa(sum.Failed))
	suite.CreateAttr("errors", strconv.Itoa(sum.Errored))
	suite.CreateAttr("time", seconds(sum.Duration))
	if !run.StartedAt.IsZero() {
		suite.CreateAttr("timestamp", run.StartedAt.UTC().Format(time.RFC3339))
	}

	props := suite.CreateElement("properties")
	for _, kv := range [][2]string{{"device", run.Device}, {"base_url", run.BaseURL}, {"version", run.Version}} {
		if kv[1] == "" {
			continue
		}
		p := props.CreateElement("property")
		p.CreateAttr("name", kv[0])
		p.CreateAttr("value", kv[1])
	}

	for _, e := range entries {
		tc := suite.CreateElement("testcase")
		class, name := splitName(e.Name)
		tc.CreateAttr("classname", class)
		tc.CreateAttr("name", name)
		tc.CreateAttr("time", seconds(e.Duration))

		switch e.Status {
		case StatusFailed:
			f := tc.CreateElement("failure")
			f.CreateAttr("type", e.Check)
			f.CreateAttr("message", e.Error)
			f.SetText(diagnostics(e))
		case StatusError:
			f := tc.CreateElement("error")
			f.CreateAttr("message", e.Error)
			f.SetText(diagnostics(e))
		}

		if out := systemOut(e); out != "" {
			tc.CreateElement("system-out").SetText(out)
		}
	}

	doc.Indent(2)
	return doc
}

// splitName turns "search_and_capture/streamer1" into class and case names.
func splitName(name string) (string, string) {
	if i := strings.Index(name, "/"); i >= 0 {
		return "streamprobe." + name[:i], name[i+1:]
	}
	return "streamprobe", name
}

func diagnostics(e *Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "url: %s\n", e.URL)
	if e.FailureScreenshot != "" {
		fmt.Fprintf(&b, "failure screenshot: %s\n", e.FailureScreenshot)
	}
	return b.String()
}

func systemOut(e *Entry) string {
	var lines []string
	if e.FellBack {
		lines = append(lines, fmt.Sprintf("requested result %d not rendered, selected %d", e.RequestedIndex, e.ActualIndex))
	}
	if e.Screenshot != "" {
		lines = append(lines, fmt.Sprintf("screenshot: %s (%d bytes)", e.Screenshot, e.ScreenshotBytes))
	}
	return strings.Join(lines, "\n")
}
