package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-zigbee/internal/datapoint"
)

// uintWidth is the width Tuya uses for VALUE datapoints.
const uintWidth = 4

func newEncodeCmd() *cobra.Command {
	var seq uint16
	cmd := &cobra.Command{
		Use:   "encode <id:type:value>...",
		Short: "Build a raw 0xEF00 data report",
		Long: `Encode builds a data report from datapoint arguments and prints it as hex,
ready for decode or replay.

Types: bool (true/false), uint (4-byte value), enum (0-255) and raw
(hex payload).`,
		Example: "  zbsem encode --seq 1 101:uint:1200 1:bool:true",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf := datapoint.AppendSeq(nil, seq)
			for _, arg := range args {
				f, err := parseFrameArg(arg)
				if err != nil {
					return err
				}
				if buf, err = datapoint.AppendFrame(buf, f); err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(buf))
			return err
		},
	}
	cmd.Flags().Uint16Var(&seq, "seq", 0, "Report sequence number")
	return cmd
}

// parseFrameArg parses "id:type:value".
func parseFrameArg(arg string) (datapoint.Frame, error) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 {
		return datapoint.Frame{}, fmt.Errorf("invalid datapoint %q: want id:type:value", arg)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return datapoint.Frame{}, fmt.Errorf("invalid datapoint id %q: %w", parts[0], err)
	}

	var (
		tag     datapoint.TypeTag
		payload []byte
	)
	switch strings.ToLower(parts[1]) {
	case "bool":
		b, err := strconv.ParseBool(parts[2])
		if err != nil {
			return datapoint.Frame{}, fmt.Errorf("invalid bool %q: %w", parts[2], err)
		}
		tag, payload = datapoint.TagBool, datapoint.EncodeBool(b)
	case "uint", "enum":
		width := uintWidth
		tag = datapoint.TagUint
		if strings.EqualFold(parts[1], "enum") {
			width, tag = 1, datapoint.TagEnum
		}
		v, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return datapoint.Frame{}, fmt.Errorf("invalid number %q: %w", parts[2], err)
		}
		if payload, err = datapoint.EncodeUint(uint32(v), width); err != nil {
			return datapoint.Frame{}, err
		}
	case "raw":
		if payload, err = parseHex(parts[2]); err != nil {
			return datapoint.Frame{}, err
		}
		tag = datapoint.TagRaw
	default:
		return datapoint.Frame{}, fmt.Errorf("unknown datapoint type %q", parts[1])
	}
	return datapoint.NewFrame(id, tag, payload), nil
}
