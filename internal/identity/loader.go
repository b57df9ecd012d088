package identity

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
	"github.com/nerrad567/gray-logic-zigbee/internal/profile"
)

//go:embed catalog.schema.json
var catalogSchemaJSON []byte

const catalogSchemaURL = "catalog.schema.json"

var (
	catalogSchemaOnce sync.Once
	catalogSchema     *jsonschema.Schema
	catalogSchemaErr  error
)

func compiledCatalogSchema() (*jsonschema.Schema, error) {
	catalogSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(catalogSchemaJSON))
		if err != nil {
			catalogSchemaErr = fmt.Errorf("unmarshal catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(catalogSchemaURL, doc); err != nil {
			catalogSchemaErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		catalogSchema, catalogSchemaErr = c.Compile(catalogSchemaURL)
	})
	return catalogSchema, catalogSchemaErr
}

// catalogFile is the on-disk catalog layout.
type catalogFile struct {
	Fallback     profile.Name  `json:"fallback"`
	Fingerprints []Fingerprint `json:"fingerprints"`
	Entries      []Entry       `json:"entries"`
}

// LoadCatalog reads a YAML catalog file.
//
// The file is validated against the embedded JSON schema, then every
// profile name is checked against profiles and every capability id against
// the capability table.
//
// Parameters:
//   - path: Path to the YAML catalog file
//   - profiles: Known profiles; referenced names must exist here
//
// Returns:
//   - Catalog: The parsed catalog, usually merged over DefaultCatalog()
//   - error: If the file cannot be read or fails validation
func LoadCatalog(path string, profiles *profile.Set) (Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // catalog path is operator-supplied config
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog file: %w", err)
	}
	return ParseCatalog(data, profiles)
}

// ParseCatalog parses and validates YAML catalog data.
func ParseCatalog(data []byte, profiles *profile.Set) (Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("%w: parsing yaml: %v", ErrInvalidCatalog, err)
	}
	if raw == nil {
		return Catalog{}, nil
	}

	// Round-trip through JSON so the schema sees JSON-typed values.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: converting to json: %v", ErrInvalidCatalog, err)
	}

	schema, err := compiledCatalogSchema()
	if err != nil {
		return Catalog{}, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(asJSON))
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := schema.Validate(inst); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	var f catalogFile
	if err := json.Unmarshal(asJSON, &f); err != nil {
		return Catalog{}, fmt.Errorf("%w: decoding: %v", ErrInvalidCatalog, err)
	}

	if err := f.validate(profiles); err != nil {
		return Catalog{}, err
	}

	return Catalog{
		Fingerprints: f.Fingerprints,
		Fallback:     f.Fallback,
		Entries:      f.Entries,
	}, nil
}

func (f *catalogFile) validate(profiles *profile.Set) error {
	var errs []string

	knownProfile := func(n profile.Name) bool {
		return profiles == nil || profiles.Has(n)
	}

	if f.Fallback != "" && !knownProfile(f.Fallback) {
		errs = append(errs, fmt.Sprintf("fallback: unknown profile %q", f.Fallback))
	}
	for i, fp := range f.Fingerprints {
		if !knownProfile(fp.Profile) {
			errs = append(errs, fmt.Sprintf("fingerprints[%d]: unknown profile %q", i, fp.Profile))
		}
	}
	for i, e := range f.Entries {
		if !knownProfile(e.Descriptor.RecommendedProfile) {
			errs = append(errs, fmt.Sprintf("entries[%d]: unknown profile %q", i, e.Descriptor.RecommendedProfile))
		}
		if e.Manufacturer != "" && e.Model == "" {
			errs = append(errs, fmt.Sprintf("entries[%d]: manufacturer requires model", i))
		}
		for _, c := range e.Descriptor.Capabilities {
			if err := capability.Validate(c); err != nil {
				errs = append(errs, fmt.Sprintf("entries[%d]: %v", i, err))
			}
		}
		if e.Descriptor.PowerSource == "" {
			f.Entries[i].Descriptor.PowerSource = PowerUnknown
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(errs, "; "))
	}
	return nil
}
