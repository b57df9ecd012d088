package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-zigbee/internal/datapoint"
)

// decodedView is the JSON form of one decoded datapoint.
type decodedView struct {
	ID    int    `json:"id"`
	Type  string `json:"type"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type reportView struct {
	Seq        uint16        `json:"seq"`
	Datapoints []decodedView `json:"datapoints"`
	Error      string        `json:"error,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a raw 0xEF00 data report",
		Long: `Decode splits a data report into datapoint records and decodes each value.

A truncated report prints the complete records and exits with an error.`,
		Example: "  zbsem decode 000165020004000004b0",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := parseHex(args[0])
			if err != nil {
				return err
			}
			report, parseErr := decodeReport(buf)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			return parseErr
		},
	}
}

// decodeReport parses buf and decodes every complete record.
func decodeReport(buf []byte) (reportView, error) {
	seq, frames, err := datapoint.ParseFrames(buf)
	view := reportView{Seq: seq, Datapoints: make([]decodedView, 0, len(frames))}
	for _, f := range frames {
		d := datapoint.Decode(f)
		view.Datapoints = append(view.Datapoints, decodedView{
			ID:    d.ID,
			Type:  f.Tag.String(),
			Kind:  d.Value.Kind().String(),
			Value: d.Value.String(),
		})
	}
	if err != nil {
		view.Error = err.Error()
		if errors.Is(err, datapoint.ErrTruncatedFrame) {
			return view, fmt.Errorf("report truncated after %d records: %w", len(frames), err)
		}
		return view, err
	}
	return view, nil
}
