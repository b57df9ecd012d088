// zbsem is an offline inspection tool for the Zigbee semantics engine.
//
// It decodes raw 0xEF00 data reports, replays them through a profile,
// resolves device identities and analyses endpoint layouts without a broker
// or database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
