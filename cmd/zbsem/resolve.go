package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
)

func newResolveCmd(root *rootOptions) *cobra.Command {
	var (
		model        string
		manufacturer string
		endpoints    string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a device identity to profile, descriptor and capabilities",
		Example: `  zbsem resolve --model TS0601 --manufacturer _TZE204_81yrt3lo
  zbsem resolve --model TS0002 --endpoints '[{"id":1,"in_clusters":[6]},{"id":2,"in_clusters":[6]}]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if model == "" && manufacturer == "" {
				return fmt.Errorf("--model or --manufacturer is required")
			}
			eps, err := parseEndpoints(endpoints)
			if err != nil {
				return err
			}
			r, err := root.resolver()
			if err != nil {
				return err
			}
			res := r.Resolve(model, manufacturer, eps)
			return printJSON(cmd.OutOrStdout(), res.WithBlocked(capability.NewMutator()))
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Device model identifier")
	cmd.Flags().StringVar(&manufacturer, "manufacturer", "", "Manufacturer name")
	cmd.Flags().StringVar(&endpoints, "endpoints", "", "Endpoint layout as a JSON array")
	return cmd
}

func newTopologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "topology <endpoints-json>",
		Short:   "Analyse an endpoint layout",
		Example: `  zbsem topology '[{"id":1,"in_clusters":[0,6]},{"id":2,"in_clusters":[6]},{"id":242,"in_clusters":[6]}]'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := parseEndpoints(args[0])
			if err != nil {
				return err
			}
			d := topology.Analyze(eps)
			gangs := make(map[string]uint8, d.GangCount)
			for n := 1; n <= d.GangCount; n++ {
				if ep, ok := d.EndpointForGang(n); ok {
					gangs[string(topology.GangCapability(n))] = ep
				}
			}
			endpoints := make([]int, len(d.ControllableEndpoints))
			for i, ep := range d.ControllableEndpoints {
				endpoints[i] = int(ep)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"gang_count":             d.GangCount,
				"controllable_endpoints": endpoints,
				"capabilities":           d.OnOffCapabilities(),
				"gang_endpoints":         gangs,
			})
		},
	}
}

func parseEndpoints(s string) ([]topology.Endpoint, error) {
	if s == "" {
		return nil, nil
	}
	var eps []topology.Endpoint
	if err := json.Unmarshal([]byte(s), &eps); err != nil {
		return nil, fmt.Errorf("invalid endpoints JSON: %w", err)
	}
	return eps, nil
}
