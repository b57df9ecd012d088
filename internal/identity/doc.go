// Package identity maps the unreliable identity strings reported by Zigbee
// devices (model id, manufacturer name) onto interpretation profiles and
// canonical device-type descriptors.
//
// Profile selection is an ordered, case-insensitive substring match against
// a fingerprint list with a mandatory fallback. Descriptor resolution prefers
// the most specific match: an exact (model, manufacturer) pair, then the
// longest matching manufacturer prefix, then the model alone unless the
// model is a generic placeholder such as TS0601.
//
// The built-in catalog can be extended with a YAML file validated against an
// embedded JSON schema (see LoadCatalog).
package identity
