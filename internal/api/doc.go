// Package api implements the read-only HTTP inspection API of the Zigbee
// service.
//
// This package provides:
//   - Device listing and lookup backed by the device registry, with the
//     live session snapshot (profile, topology, calibration) of each device
//   - Last known capability values read from the Redis state cache
//   - Ad-hoc identity resolution (POST /api/v1/resolve) and profile listing
//   - Component health, a runtime metrics snapshot and the Prometheus
//     scrape endpoint at /metrics
//
// The API never mutates engine state. Devices are created, reconciled and
// removed exclusively through the MQTT bridge.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
