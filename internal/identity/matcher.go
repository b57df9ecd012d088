package identity

import (
	"strings"

	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

// genericModels are placeholder model ids shared by unrelated devices.
// A model-only lookup on them would be a guess.
var genericModels = map[string]struct{}{
	"TS0601": {},
	"TS0602": {},
	"TS0603": {},
}

// IsGenericModel reports whether model is a generic placeholder id.
func IsGenericModel(model string) bool {
	_, ok := genericModels[strings.ToUpper(strings.TrimSpace(model))]
	return ok
}

type compiledFingerprint struct {
	pattern string // lower-cased
	profile profile.Name
}

// Matcher selects profiles and resolves descriptors from identity strings.
//
// A Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	fingerprints []compiledFingerprint
	fallback     profile.Name
	entries      []Entry
}

// NewMatcher compiles a catalog. The catalog is copied; later changes to it
// do not affect the matcher.
//
// Returns ErrNoFallback when the catalog has no fallback profile and
// ErrInvalidFingerprint for an empty pattern or profile.
func NewMatcher(c Catalog) (*Matcher, error) {
	if c.Fallback == "" {
		return nil, ErrNoFallback
	}

	m := &Matcher{
		fallback:     c.Fallback,
		fingerprints: make([]compiledFingerprint, 0, len(c.Fingerprints)),
		entries:      make([]Entry, 0, len(c.Entries)),
	}

	for i, fp := range c.Fingerprints {
		if strings.TrimSpace(fp.Pattern) == "" || fp.Profile == "" {
			return nil, invalidFingerprint(i)
		}
		m.fingerprints = append(m.fingerprints, compiledFingerprint{
			pattern: strings.ToLower(fp.Pattern),
			profile: fp.Profile,
		})
	}

	for i, e := range c.Entries {
		if !e.exact() && !e.prefix() && e.Model == "" {
			return nil, invalidEntry(i)
		}
		e.Descriptor = *e.Descriptor.Clone()
		m.entries = append(m.entries, e)
	}

	return m, nil
}

// SelectProfile returns the first fingerprint profile whose pattern is a
// case-insensitive substring of identity, or the fallback profile.
// The result is never empty.
func (m *Matcher) SelectProfile(identity string) profile.Name {
	id := strings.ToLower(identity)
	if id != "" {
		for _, fp := range m.fingerprints {
			if strings.Contains(id, fp.pattern) {
				return fp.profile
			}
		}
	}
	return m.fallback
}

// Fallback returns the catalog fallback profile.
func (m *Matcher) Fallback() profile.Name {
	return m.fallback
}

// ResolveDescriptor finds the most specific descriptor for a device.
//
// Resolution order:
//  1. exact (model, manufacturer) entry
//  2. longest manufacturer prefix whose declared model (if any) equals model;
//     ties go to the first declared entry
//  3. model-only lookup, skipped for generic placeholder models
//
// Returns nil when nothing matches. The returned descriptor is a copy the
// caller may modify.
func (m *Matcher) ResolveDescriptor(model, manufacturer string) *Descriptor {
	if d := m.resolveExact(model, manufacturer); d != nil {
		return d
	}
	if manufacturer != "" {
		if d := m.resolvePrefix(model, manufacturer); d != nil {
			return d
		}
	}
	if model != "" && !IsGenericModel(model) {
		return m.resolveModel(model)
	}
	return nil
}

func (m *Matcher) resolveExact(model, manufacturer string) *Descriptor {
	if model == "" || manufacturer == "" {
		return nil
	}
	for i := range m.entries {
		e := &m.entries[i]
		if e.exact() && e.Model == model && e.Manufacturer == manufacturer {
			d := e.Descriptor.Clone()
			d.Specificity = len(manufacturer) + len(model)
			return d
		}
	}
	return nil
}

func (m *Matcher) resolvePrefix(model, manufacturer string) *Descriptor {
	var best *Entry
	for i := range m.entries {
		e := &m.entries[i]
		if !e.prefix() || !strings.HasPrefix(manufacturer, e.ManufacturerPrefix) {
			continue
		}
		if e.Model != "" && e.Model != model {
			continue
		}
		// Strictly longer only: the first declared entry keeps a tie.
		if best == nil || len(e.ManufacturerPrefix) > len(best.ManufacturerPrefix) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	d := best.Descriptor.Clone()
	d.Specificity = len(best.ManufacturerPrefix)
	return d
}

func (m *Matcher) resolveModel(model string) *Descriptor {
	var fallback *Entry
	for i := range m.entries {
		e := &m.entries[i]
		if e.Model != model {
			continue
		}
		if !e.exact() && !e.prefix() {
			return m.modelOnly(e)
		}
		if fallback == nil {
			fallback = e
		}
	}
	if fallback == nil {
		return nil
	}
	return m.modelOnly(fallback)
}

func (m *Matcher) modelOnly(e *Entry) *Descriptor {
	d := e.Descriptor.Clone()
	d.Specificity = 0
	return d
}
