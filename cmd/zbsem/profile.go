package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [name]",
		Short: "List profiles or show one profile's datapoint table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := profile.Builtin()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, n := range set.Names() {
					suffix := ""
					if set.Lookup(n).Fallback {
						suffix = " (fallback)"
					}
					fmt.Fprintf(out, "%s%s\n", n, suffix)
				}
				return nil
			}

			p := set.Lookup(profile.Name(args[0]))
			if p == nil {
				return fmt.Errorf("unknown profile %q", args[0])
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DP\tFIELD\tCAPABILITY\tNOTES")
			for _, id := range p.IDs() {
				f := p.Fields[id]
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", id, f.Name, f.Capability, fieldNotes(f))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, a := range p.Aggregates {
				fmt.Fprintf(out, "aggregate %s = sum of %s\n", a.Capability, a.Quantity)
			}
			fmt.Fprintf(out, "capabilities: %v\n", p.Capabilities())
			return nil
		},
	}
}

func fieldNotes(f profile.FieldRule) string {
	var notes []string
	if f.Directional {
		notes = append(notes, "direction flag")
	}
	if f.Boolean {
		notes = append(notes, "boolean")
	}
	if f.Signed {
		notes = append(notes, "signed")
	}
	if f.Channel != profile.ChannelNone {
		notes = append(notes, "channel "+f.Channel.String())
	}
	if f.AmbiguousWith != profile.ChannelNone {
		notes = append(notes, "ambiguous with direction "+f.AmbiguousWith.String())
	}
	return strings.Join(notes, ", ")
}
