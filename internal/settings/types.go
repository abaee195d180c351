package settings

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// ShellID identifies one tenant. Comparison and map keying are
// case-insensitive; the original casing is kept for display.
type ShellID string

// Key returns the folded form used as a map key.
func (id ShellID) Key() string {
	return strings.ToLower(string(id))
}

// Equal reports whether two ids name the same shell, ignoring case.
func (id ShellID) Equal(other ShellID) bool {
	return strings.EqualFold(string(id), string(other))
}

func (id ShellID) String() string {
	return string(id)
}

// FeatureEntry is one element of a shell's enabled-feature list. In the
// settings document an entry is either a bare feature name or a mapping with
// a Name plus inline settings for that feature.
type FeatureEntry struct {
	Name     string
	Settings map[string]any
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (f *FeatureEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&f.Name)
	case yaml.MappingNode:
		var raw map[string]any
		if err := value.Decode(&raw); err != nil {
			return err
		}
		for k, v := range raw {
			if strings.EqualFold(k, "Name") {
				name, ok := v.(string)
				if !ok {
					return fmt.Errorf("feature entry Name must be a string, got %T", v)
				}
				f.Name = name
				delete(raw, k)
				break
			}
		}
		if f.Name == "" {
			return fmt.Errorf("feature entry mapping is missing a Name")
		}
		f.Settings = raw
		return nil
	default:
		return fmt.Errorf("feature entry must be a string or a mapping")
	}
}

// ShellSettings is the configuration record for one shell. Once published
// into the Store it is treated as a read-only snapshot by consumers.
type ShellSettings struct {
	ID            ShellID                   `yaml:"Name"`
	Features      []FeatureEntry            `yaml:"Features"`
	Configuration map[string]map[string]any `yaml:"Configuration"`
}

// EnabledFeatures returns the ordered list of enabled feature names.
func (s ShellSettings) EnabledFeatures() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// InlineConfig returns the inline settings co-located with the feature's
// entry in the feature list, or nil when the entry is a bare name. Matching
// is case-insensitive.
func (s ShellSettings) InlineConfig(feature string) map[string]any {
	for _, f := range s.Features {
		if strings.EqualFold(f.Name, feature) {
			return f.Settings
		}
	}
	return nil
}

// FeatureConfig returns the shell-level configuration block for the feature,
// or nil. Matching is case-insensitive.
func (s ShellSettings) FeatureConfig(feature string) map[string]any {
	for name, cfg := range s.Configuration {
		if strings.EqualFold(name, feature) {
			return cfg
		}
	}
	return nil
}

// Equal reports whether two settings records are identical. Used by the
// reload delta computation.
func (s ShellSettings) Equal(other ShellSettings) bool {
	return reflect.DeepEqual(s, other)
}

// Document is the full shape of the external settings source: the shell list
// plus the root configuration section keyed by feature name.
type Document struct {
	Shells        []ShellSettings           `yaml:"Shells"`
	Configuration map[string]map[string]any `yaml:"Configuration"`
}

// RootConfig returns the root configuration section for a feature, or nil.
// Matching is case-insensitive.
func (d Document) RootConfig(feature string) map[string]any {
	for name, cfg := range d.Configuration {
		if strings.EqualFold(name, feature) {
			return cfg
		}
	}
	return nil
}
