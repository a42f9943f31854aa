// Package scenario encodes the acceptance flows as sequences of page-object
// calls followed by contract checks.
package scenario

import (
	"fmt"

	"github.com/xkilldash9x/streamprobe/internal/config"
)

// DefaultQuery is the search term used by the built-in scenarios.
const DefaultQuery = "StarCraft II"

// BasicFlowMinBytes is the smallest screenshot the basic flow accepts as a
// real rendering rather than a blank page.
const BasicFlowMinBytes = 10000

// Scenario is one parametrised run of the search-and-capture flow.
type Scenario struct {
	Name          string
	Query         string
	ScrollTimes   int
	StreamerIndex int
	// MinScreenshotBytes of zero only requires a non-empty file.
	MinScreenshotBytes int64
	CheckSearchInput   bool
	CheckPlayerVisible bool
	// Tag is appended to the screenshot name when set.
	Tag string
}

// StreamerTag names a screenshot after the requested result index.
func StreamerTag(index int) string {
	return fmt.Sprintf("streamer%d", index)
}

// DefaultScenarios returns the built-in set: three search-and-capture runs on
// result indexes 0 to 2 followed by the stricter basic flow.
func DefaultScenarios() []Scenario {
	var out []Scenario
	for i := 0; i < 3; i++ {
		out = append(out, Scenario{
			Name:          fmt.Sprintf("search_and_capture/%s", StreamerTag(i)),
			Query:         DefaultQuery,
			ScrollTimes:   2,
			StreamerIndex: i,
			Tag:           StreamerTag(i),
		})
	}
	out = append(out, Scenario{
		Name:               "basic_flow",
		Query:              DefaultQuery,
		ScrollTimes:        2,
		StreamerIndex:      0,
		MinScreenshotBytes: BasicFlowMinBytes,
		CheckSearchInput:   true,
		CheckPlayerVisible: true,
	})
	return out
}

// FromConfig converts configured scenarios. An empty list yields the defaults.
// Screenshots are tagged streamer<index> unless the entry names its own tag or
// asks to stay untagged.
func FromConfig(cfgs []config.ScenarioConfig) []Scenario {
	if len(cfgs) == 0 {
		return DefaultScenarios()
	}
	out := make([]Scenario, 0, len(cfgs))
	for _, c := range cfgs {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("search_and_capture/%s", StreamerTag(c.StreamerIndex))
		}
		tag := c.Tag
		switch {
		case c.Untagged:
			tag = ""
		case tag == "":
			tag = StreamerTag(c.StreamerIndex)
		}
		out = append(out, Scenario{
			Name:               name,
			Query:              c.Query,
			ScrollTimes:        c.ScrollTimes,
			StreamerIndex:      c.StreamerIndex,
			MinScreenshotBytes: c.MinScreenshotBytes,
			CheckSearchInput:   c.CheckSearchInput,
			CheckPlayerVisible: c.CheckPlayer,
			Tag:                tag,
		})
	}
	return out
}
