// Package capability defines canonical device capabilities and the guarded
// mutator that attaches them to device instances.
//
// Capabilities are only ever added. Every addition passes through
// Mutator.SafeAdd, which enforces a fixed per-class denylist (a sensor never
// gains onoff, a wireless button never gains measurement capabilities),
// treats an already-present capability as success without touching the
// platform, and contains platform errors and panics.
package capability
