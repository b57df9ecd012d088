package identity

import (
	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// PowerSource describes how a device is powered.
type PowerSource string

// Power sources.
const (
	PowerMains   PowerSource = "mains"
	PowerBattery PowerSource = "battery"
	PowerUnknown PowerSource = "unknown"
)

// Descriptor is the canonical description of a device type.
type Descriptor struct {
	CanonicalType      string                  `json:"canonical_type"`
	SubType            string                  `json:"sub_type,omitempty"`
	Class              capability.Class        `json:"class"`
	PowerSource        PowerSource             `json:"power_source"`
	Capabilities       []capability.Capability `json:"capabilities"`
	RecommendedProfile profile.Name            `json:"recommended_profile"`

	// Specificity is set by ResolveDescriptor: the length of the matched
	// manufacturer + model for exact matches, the prefix length for prefix
	// matches and 0 for model-only matches.
	Specificity int `json:"specificity"`
}

// Clone returns a deep copy of d.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	if d.Capabilities != nil {
		c.Capabilities = make([]capability.Capability, len(d.Capabilities))
		copy(c.Capabilities, d.Capabilities)
	}
	return &c
}

// Fingerprint maps an identity substring to a profile.
type Fingerprint struct {
	Pattern string       `yaml:"pattern" json:"pattern"`
	Profile profile.Name `yaml:"profile" json:"profile"`
}

// Entry is one descriptor table row.
//
// Exact entries set Model and Manufacturer. Prefix entries set
// ManufacturerPrefix and optionally Model. Model-only entries set Model alone.
type Entry struct {
	Model              string     `yaml:"model,omitempty" json:"model,omitempty"`
	Manufacturer       string     `yaml:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	ManufacturerPrefix string     `yaml:"manufacturer_prefix,omitempty" json:"manufacturer_prefix,omitempty"`
	Descriptor         Descriptor `yaml:"descriptor" json:"descriptor"`
}

func (e Entry) exact() bool  { return e.Manufacturer != "" && e.Model != "" }
func (e Entry) prefix() bool { return e.ManufacturerPrefix != "" }

// Catalog is the immutable input to a Matcher. Fingerprint and entry order
// is significant: first match wins, and prefix ties go to the first declared.
type Catalog struct {
	Fingerprints []Fingerprint
	Fallback     profile.Name
	Entries      []Entry
}

// Merge returns a catalog in which overlay takes precedence over base.
// Overlay fingerprints and entries are placed first; a non-empty overlay
// fallback replaces the base fallback.
func Merge(base, overlay Catalog) Catalog {
	out := Catalog{
		Fallback:     base.Fallback,
		Fingerprints: make([]Fingerprint, 0, len(overlay.Fingerprints)+len(base.Fingerprints)),
		Entries:      make([]Entry, 0, len(overlay.Entries)+len(base.Entries)),
	}
	if overlay.Fallback != "" {
		out.Fallback = overlay.Fallback
	}
	out.Fingerprints = append(out.Fingerprints, overlay.Fingerprints...)
	out.Fingerprints = append(out.Fingerprints, base.Fingerprints...)
	out.Entries = append(out.Entries, overlay.Entries...)
	out.Entries = append(out.Entries, base.Entries...)
	return out
}
