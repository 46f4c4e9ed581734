package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geolocate",
	Short: "Locate devices from cell, wifi and IP observations",
	Long:  "Fuses wifi networks, cell towers and IP addresses seen by a device into a position or region estimate, and imports the cell telemetry those estimates are computed from.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
