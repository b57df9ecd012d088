package zigbee

import (
	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/identity"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
	"github.com/nerrad567/gray-logic-zigbee/internal/topology"
)

// Resolution is everything the engine derives from a device's identity
// inputs and endpoint layout.
type Resolution struct {
	Profile      profile.Name            `json:"profile"`
	Descriptor   *identity.Descriptor    `json:"descriptor,omitempty"`
	Topology     topology.Descriptor     `json:"topology"`
	Class        capability.Class        `json:"class"`
	Capabilities []capability.Capability `json:"capabilities"`

	// Blocked lists desired capabilities the class may not receive. Only
	// set by WithBlocked.
	Blocked []capability.Capability `json:"blocked,omitempty"`
}

// Denier reports capabilities a class must not receive. Satisfied by
// *capability.Mutator.
type Denier interface {
	Denied(class capability.Class, c capability.Capability) bool
}

// WithBlocked returns a copy of res with Blocked filled from d.
func (res Resolution) WithBlocked(d Denier) Resolution {
	res.Blocked = nil
	for _, c := range res.Capabilities {
		if d.Denied(res.Class, c) {
			res.Blocked = append(res.Blocked, c)
		}
	}
	return res
}

// Resolver combines the identity matcher, the profile set and the topology
// analyzer. It is immutable and safe for concurrent use.
type Resolver struct {
	matcher  *identity.Matcher
	profiles *profile.Set
}

// NewResolver creates a resolver.
func NewResolver(m *identity.Matcher, profiles *profile.Set) *Resolver {
	return &Resolver{matcher: m, profiles: profiles}
}

// Profiles returns the profile set.
func (r *Resolver) Profiles() *profile.Set {
	return r.profiles
}

// Resolve derives profile, descriptor, topology and the desired capability
// set.
//
// The profile comes from the fingerprint table matched against the
// manufacturer name (or the model when the manufacturer is unknown and the
// model is not a generic placeholder such as TS0601). When
// that only yields the fallback and a descriptor recommends a known profile,
// the recommendation is used instead.
//
// Desired capabilities are the descriptor's when one resolved, otherwise
// the profile's, plus onoff.gangN for every extra controllable endpoint.
func (r *Resolver) Resolve(model, manufacturer string, eps []topology.Endpoint) Resolution {
	identityString := manufacturer
	if identityString == "" && !identity.IsGenericModel(model) {
		identityString = model
	}

	desc := r.matcher.ResolveDescriptor(model, manufacturer)
	name := r.matcher.SelectProfile(identityString)
	if name == r.matcher.Fallback() && desc != nil && r.profiles.Has(desc.RecommendedProfile) {
		name = desc.RecommendedProfile
	}
	p := r.profiles.Lookup(name)

	topo := topology.Analyze(eps)

	res := Resolution{
		Profile:    p.Name,
		Descriptor: desc,
		Topology:   topo,
		Class:      capability.ClassOther,
	}

	set := capability.NewSet()
	var caps []capability.Capability
	add := func(c capability.Capability) {
		if !set.Has(c) {
			set.Add(c)
			caps = append(caps, c)
		}
	}

	if desc != nil {
		if desc.Class != "" {
			res.Class = desc.Class
		}
		for _, c := range desc.Capabilities {
			add(c)
		}
	} else {
		for _, c := range p.Capabilities() {
			add(c)
		}
	}
	if topo.GangCount > 1 {
		for _, c := range topo.OnOffCapabilities() {
			add(c)
		}
	}

	res.Capabilities = caps
	return res
}
