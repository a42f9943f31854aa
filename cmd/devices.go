// File: cmd/devices.go
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/streamprobe/internal/browser"
	"github.com/xkilldash9x/streamprobe/internal/config"
	"github.com/xkilldash9x/streamprobe/internal/observability"
)

// deviceCatalog is the part of *browser.Engine the devices command needs.
type deviceCatalog interface {
	Devices() []string
	Close() error
}

// openDeviceCatalog starts the driver to read its device table. Replaced in tests.
var openDeviceCatalog = func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (deviceCatalog, error) {
	engine, err := browser.AcquireEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// newDevicesCmd creates the `devices` command.
func newDevicesCmd() *cobra.Command {
	var filter string

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Lists the device emulation presets known to the driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := openDeviceCatalog(cmd.Context(), cfg.Browser, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to start the browser driver: %w", err)
			}
			defer catalog.Close()

			needle := strings.ToLower(filter)
			out := cmd.OutOrStdout()
			for _, name := range catalog.Devices() {
				if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
					continue
				}
				marker := "  "
				if name == cfg.Browser.Device {
					marker = "* "
				}
				fmt.Fprintf(out, "%s%s\n", marker, name)
			}
			return nil
		},
	}
	devicesCmd.Flags().StringVar(&filter, "filter", "", "Only list presets containing this text (case-insensitive)")
	return devicesCmd
}
