package settings

import (
	"strings"

	"shellhost/pkg/logging"
)

// envPrefix marks shell configuration overrides in the environment.
const envPrefix = "Shells"

// envSeparator is the hierarchy separator used in variable names. Stable and
// documented: the full form is
//
//	Shells__<ShellName>__Configuration__<FeatureName>__<Property>
//
// Further __ segments after the feature name nest into colon-separated
// property paths.
const envSeparator = "__"

// EnvOverrides is the highest-precedence configuration tier, parsed once
// from the process environment. Shell and feature names are matched
// case-insensitively; property paths keep their casing.
type EnvOverrides struct {
	// shell key -> feature key -> property path -> value
	values map[string]map[string]map[string]string
}

// ParseEnv extracts shell configuration overrides from environ, which has
// the os.Environ "KEY=value" form. Malformed entries are skipped.
func ParseEnv(environ []string) *EnvOverrides {
	e := &EnvOverrides{values: make(map[string]map[string]map[string]string)}

	for _, raw := range environ {
		name, value, found := strings.Cut(raw, "=")
		if !found {
			continue
		}
		segments := strings.Split(name, envSeparator)
		// Shells / shell / Configuration / feature / property...
		if len(segments) < 5 {
			continue
		}
		if !strings.EqualFold(segments[0], envPrefix) || !strings.EqualFold(segments[2], "Configuration") {
			continue
		}

		shellKey := strings.ToLower(segments[1])
		featureKey := strings.ToLower(segments[3])
		property := strings.Join(segments[4:], ":")

		features := e.values[shellKey]
		if features == nil {
			features = make(map[string]map[string]string)
			e.values[shellKey] = features
		}
		props := features[featureKey]
		if props == nil {
			props = make(map[string]string)
			features[featureKey] = props
		}
		props[property] = value

		logging.Debug("Settings", "Environment override: shell=%s feature=%s property=%s",
			segments[1], segments[3], property)
	}

	return e
}

// For returns the override tier for one feature in one shell, or nil when
// the environment carries none. The returned map is a copy.
func (e *EnvOverrides) For(shell ShellID, feature string) map[string]string {
	if e == nil {
		return nil
	}
	features := e.values[shell.Key()]
	if features == nil {
		return nil
	}
	props := features[strings.ToLower(feature)]
	if props == nil {
		return nil
	}
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
