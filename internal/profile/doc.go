// Package profile holds the immutable interpretation profiles that map a
// device's vendor datapoint ids onto canonical capabilities.
//
// A profile says, per datapoint id, which capability (if any) receives the
// value, how the raw integer is scaled, which channel and quantity it
// belongs to, and which aggregates are recomputed when it changes. Profiles
// are built once at start-up and shared read-only.
package profile
