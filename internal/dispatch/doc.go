// Package dispatch turns decoded datapoints into canonical capability
// writes.
//
// The Dispatcher reads a device's interpretation profile, updates the
// device's State (per-channel sub-values and direction flags) and returns
// the writes to deliver: the direct capability for the field plus every
// aggregate recomputed from the channel values. Emit delivers writes
// fire-and-forget through a Writer.
//
// Values that decode to undefined are silent no-ops. Their debug log is
// throttled per (device, datapoint) so a chatty device cannot flood the log.
package dispatch
