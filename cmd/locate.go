package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geolocate/internal/locate"
)

var (
	positionFlags queryFlags
	regionFlags   queryFlags
)

var positionCmd = &cobra.Command{
	Use:   "position",
	Short: "Estimate the position of a device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runLocate(cmd, &positionFlags, locate.PositionKind)
	},
}

var regionCmd = &cobra.Command{
	Use:   "region",
	Short: "Estimate the region a device is in",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runLocate(cmd, &regionFlags, locate.RegionKind)
	},
}

func runLocate(cmd *cobra.Command, flags *queryFlags, kind locate.Kind) error {
	ctx := cmd.Context()

	if err := cfg.Validate("locate"); err != nil {
		return err
	}
	params, err := flags.params(kind)
	if err != nil {
		return eris.Wrap(err, "parse observations")
	}

	loc, err := initLocator(ctx)
	if err != nil {
		return err
	}
	defer loc.Close() //nolint:errcheck

	res, err := loc.locate(ctx, params)
	if err != nil {
		return eris.Wrapf(err, "%s lookup", kind)
	}

	out := newResponse(res)
	zap.L().Debug("lookup complete",
		zap.String("kind", kind.String()),
		zap.String("status", out.Status),
	)
	return writeJSON(cmd.OutOrStdout(), out)
}

func init() {
	positionFlags.register(positionCmd)
	regionFlags.register(regionCmd)
	rootCmd.AddCommand(positionCmd, regionCmd)
}
