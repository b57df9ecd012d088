// Package device is the registry of Zigbee instances served by the
// semantics engine.
//
// A Device holds what the transport reported at interview (model,
// manufacturer, endpoints), what the engine resolved from it (profile,
// descriptor, gang count) and the capability set granted so far. The
// Registry caches devices in memory over a SQLite Repository and exposes
// each device as a capability.Instance, so the capability mutator can
// grant capabilities that are validated and persisted here.
//
// Capabilities are only ever added. Settings carry the per-device
// calibration ratio applied by the dispatcher.
package device
