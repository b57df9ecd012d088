package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-zigbee/internal/bridges/zigbee"
	"github.com/nerrad567/gray-logic-zigbee/internal/identity"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// version is set at build time via ldflags.
var version = "dev"

// rootOptions holds the persistent flags.
type rootOptions struct {
	catalogFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "zbsem",
		Short: "Zigbee device semantics inspector",
		Long: `zbsem runs the semantics engine offline.

It decodes and builds raw Tuya 0xEF00 data reports, replays them through an
interpretation profile, resolves a device's identity to a profile and
descriptor, and analyses endpoint layouts into gang counts.

Hex input accepts an optional 0x prefix and ignores spaces and colons.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.catalogFile, "catalog", "", "YAML catalog merged over the built-in catalog")

	root.AddCommand(
		newDecodeCmd(),
		newEncodeCmd(),
		newReplayCmd(),
		newResolveCmd(opts),
		newProfileCmd(),
		newTopologyCmd(),
	)
	return root
}

// resolver builds the resolver, merging the --catalog overlay when set.
func (o *rootOptions) resolver() (*zigbee.Resolver, error) {
	profiles := profile.Builtin()
	catalog := identity.DefaultCatalog()
	if o.catalogFile != "" {
		overlay, err := identity.LoadCatalog(o.catalogFile, profiles)
		if err != nil {
			return nil, err
		}
		catalog = identity.Merge(catalog, overlay)
	}
	m, err := identity.NewMatcher(catalog)
	if err != nil {
		return nil, err
	}
	return zigbee.NewResolver(m, profiles), nil
}

// parseHex decodes hex input, tolerating a 0x prefix, spaces and colons.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
