// File: cmd/run.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/streamprobe/internal/artifacts"
	"github.com/xkilldash9x/streamprobe/internal/config"
	"github.com/xkilldash9x/streamprobe/internal/observability"
	"github.com/xkilldash9x/streamprobe/internal/reporting"
	"github.com/xkilldash9x/streamprobe/internal/scenario"
	"github.com/xkilldash9x/streamprobe/internal/suite"
)

// errScenariosFailed makes the process exit non-zero when any scenario did not pass.
var errScenariosFailed = errors.New("one or more scenarios did not pass")

// newWorkerFactory is replaced in tests to avoid launching a browser.
var newWorkerFactory = func(cfg config.BrowserConfig, runner suite.ScenarioRunner, logger *zap.Logger) suite.WorkerFactory {
	return suite.NewBrowserWorkerFactory(cfg, runner, logger)
}

// newRunCmd creates the `run` command. Flags are bound to viper keys here so
// they take precedence over the config file and environment when the root
// command loads the configuration.
func newRunCmd(v *viper.Viper) *cobra.Command {
	var only []string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the search-and-capture scenarios against the live site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			scs, err := selectScenarios(scenario.FromConfig(cfg.Run.Scenarios), only)
			if err != nil {
				return err
			}

			dir, err := artifacts.NewDirectory(cfg.Artifacts.Dir, nil)
			if err != nil {
				return err
			}
			runner, err := scenario.NewRunner(scenario.RunnerConfigFrom(cfg), dir, logger)
			if err != nil {
				return err
			}

			info := reporting.RunInfo{
				ID:        uuid.New().String(),
				Version:   Version,
				Device:    cfg.Browser.Device,
				BaseURL:   cfg.Site.BaseURL,
				StartedAt: time.Now(),
			}
			rep, reportPaths, err := openReporters(cfg.Artifacts.Reports, dir, info)
			if err != nil {
				return err
			}

			logger.Info("Starting run.",
				zap.String("run_id", info.ID),
				zap.Int("scenarios", len(scs)),
				zap.Int("workers", cfg.Run.Workers),
				zap.String("device", cfg.Browser.Device),
				zap.String("artifacts", dir.Root()))

			s, err := suite.New(scs, newWorkerFactory(cfg.Browser, runner, logger), rep,
				suite.Options{Workers: cfg.Run.Workers, StartInterval: cfg.Run.StartInterval}, logger)
			if err != nil {
				rep.Close()
				return err
			}

			out, runErr := s.Run(ctx)
			if err := rep.Close(); err != nil {
				logger.Error("Failed to write reports.", zap.Error(err))
			}

			printSummary(cmd.OutOrStdout(), info.ID, out, reportPaths)

			if runErr != nil {
				return fmt.Errorf("run %s aborted: %w", info.ID, runErr)
			}
			if !out.Summary.OK() {
				return errScenariosFailed
			}
			return nil
		},
	}

	flags := runCmd.Flags()
	flags.IntP("workers", "j", 0, "Number of parallel browser workers. (Overrides config/env)")
	flags.String("device", "", "Device emulation preset, e.g. 'Pixel 7'. (Overrides config/env)")
	flags.Bool("headless", false, "Run the browser headless. (Overrides config/env)")
	flags.String("base-url", "", "Site root to drive. (Overrides config/env)")
	flags.StringP("output-dir", "o", "", "Directory for screenshots and reports. (Overrides config/env)")
	flags.StringSliceVarP(&only, "scenario", "s", nil, "Run only scenarios whose name starts with this prefix (repeatable)")

	for key, flag := range map[string]string{
		"run.workers":      "workers",
		"browser.device":   "device",
		"browser.headless": "headless",
		"site.base_url":    "base-url",
		"artifacts.dir":    "output-dir",
	} {
		// Only a flag that was set on the command line overrides the config.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return runCmd
}

// selectScenarios keeps scenarios whose name starts with any of prefixes.
// No prefixes keeps everything; prefixes matching nothing is an error.
func selectScenarios(all []scenario.Scenario, prefixes []string) ([]scenario.Scenario, error) {
	if len(prefixes) == 0 {
		return all, nil
	}
	var out []scenario.Scenario
	for _, sc := range all {
		for _, p := range prefixes {
			if strings.HasPrefix(sc.Name, p) {
				out = append(out, sc)
				break
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no scenario matches %v", prefixes)
	}
	return out, nil
}

// openReporters creates one reporter per configured format in the artifact
// directory and returns them as one, with the paths written.
func openReporters(formats []string, dir *artifacts.Directory, info reporting.RunInfo) (reporting.Reporter, []string, error) {
	var (
		reporters []reporting.Reporter
		paths     []string
	)
	stamp := info.StartedAt.Format(artifacts.TimestampLayout)
	for _, format := range formats {
		path := dir.File(fmt.Sprintf("report_%s%s", stamp, reporting.Extension(format)))
		r, err := reporting.New(format, path, info)
		if err != nil {
			for _, opened := range reporters {
				opened.Close()
			}
			return nil, nil, err
		}
		reporters = append(reporters, r)
		paths = append(paths, path)
	}
	return reporting.NewMulti(reporters...), paths, nil
}

func printSummary(w io.Writer, runID string, out *suite.Outcome, reportPaths []string) {
	if out == nil {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\nRun %s\n", runID)
	fmt.Fprintln(tw, "SCENARIO\tSTATUS\tRESULT\tDURATION\tDETAIL")
	for _, e := range out.Entries {
		result := "-"
		if e.ActualIndex >= 0 {
			result = fmt.Sprintf("%d", e.ActualIndex)
			if e.FellBack {
				result += fmt.Sprintf(" (wanted %d)", e.RequestedIndex)
			}
		}
		detail := e.Screenshot
		if e.Error != "" {
			detail = e.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Status, result, e.Duration.Round(time.Millisecond), detail)
	}
	tw.Flush()

	s := out.Summary
	fmt.Fprintf(w, "\n%d passed, %d failed, %d errored\n", s.Passed, s.Failed, s.Errored)
	for _, p := range reportPaths {
		fmt.Fprintf(w, "Report: %s\n", p)
	}
}
