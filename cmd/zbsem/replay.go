package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/datapoint"
	"github.com/nerrad567/gray-logic-zigbee/internal/dispatch"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

type replayOptions struct {
	profile string
	ratio   float64
}

func newReplayCmd() *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay <hex>...",
		Short: "Replay data reports through a profile",
		Long: `Replay feeds one or more data reports, in order, through the dispatcher
using a single in-memory device state, and prints every capability write as
capability=value. Aggregates and direction flags carry across reports.`,
		Example: "  zbsem replay --profile dual_channel_meter 000165020004000004b0 000269020004000001c2",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := profile.Builtin().Lookup(profile.Name(opts.profile))
			if p == nil {
				return fmt.Errorf("unknown profile %q", opts.profile)
			}

			state := dispatch.NewState("replay")
			state.SetCalibrationRatio(opts.ratio)
			d := dispatch.New(dispatch.Config{})
			out := cmd.OutOrStdout()
			w := dispatch.WriterFunc(func(_ context.Context, _ string, c capability.Capability, v any) error {
				_, err := fmt.Fprintf(out, "%s=%v\n", c, v)
				return err
			})

			for _, arg := range args {
				buf, err := parseHex(arg)
				if err != nil {
					return err
				}
				_, frames, parseErr := datapoint.ParseFrames(buf)
				for _, f := range frames {
					writes, err := d.Apply(state, p, datapoint.Decode(f))
					if err != nil {
						return err
					}
					d.Emit(cmd.Context(), state.DeviceID, w, writes)
				}
				if parseErr != nil {
					return parseErr
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.profile, "profile", string(profile.GenericTuya), "Profile to interpret the reports with")
	cmd.Flags().Float64Var(&opts.ratio, "ratio", dispatch.DefaultCalibrationRatio, "Calibration ratio for power and current")
	return cmd
}
