package options

import (
	"sort"
	"strings"

	"shellhost/pkg/logging"
)

// Tiers carries the raw configuration layers for one (shell, feature) pair,
// highest precedence first. Each map may be nil. Env is pre-flattened by the
// settings layer; the remaining tiers may be nested and are flattened here.
type Tiers struct {
	Env      map[string]string // tier 1: environment-variable overrides
	Inline   map[string]any    // tier 2: inline settings on the feature entry
	Shell    map[string]any    // tier 3: shell configuration block
	Root     map[string]any    // tier 4: root configuration section
	Defaults map[string]any    // tier 5: feature declared defaults
}

type property struct {
	// key keeps the casing of the highest-precedence tier that set it.
	key   string
	value any
}

// Effective is the merged, frozen configuration view for one feature in one
// shell. It is computed once at shell construction time.
type Effective struct {
	shell   string
	feature string
	props   map[string]property // keyed by folded path
}

// Merge resolves the effective options for one feature in one shell. Lower
// tiers are applied first so that each higher tier overrides per property.
func Merge(shell, feature string, t Tiers) *Effective {
	eff := &Effective{
		shell:   shell,
		feature: feature,
		props:   make(map[string]property),
	}

	eff.apply(Flatten(orEmpty(t.Defaults)))
	eff.apply(Flatten(orEmpty(t.Root)))
	eff.apply(Flatten(orEmpty(t.Shell)))
	eff.apply(Flatten(orEmpty(t.Inline)))

	env := make(map[string]any, len(t.Env))
	for k, v := range t.Env {
		env[k] = v
	}
	eff.apply(env)

	logging.Debug("Options", "Merged %d properties for feature %s in shell %s",
		len(eff.props), feature, shell)
	return eff
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func (e *Effective) apply(flat map[string]any) {
	for k, v := range flat {
		e.props[strings.ToLower(k)] = property{key: k, value: v}
	}
}

// Shell returns the shell id this view was merged for.
func (e *Effective) Shell() string { return e.shell }

// Feature returns the feature id this view was merged for.
func (e *Effective) Feature() string { return e.feature }

// Value returns the merged value for a colon-separated property path.
// Lookup is case-insensitive.
func (e *Effective) Value(path string) (any, bool) {
	p, ok := e.props[strings.ToLower(path)]
	if !ok {
		return nil, false
	}
	return p.value, true
}

// String returns the merged value for path as a string, or "" if unset.
func (e *Effective) String(path string) string {
	v, ok := e.Value(path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Paths returns all merged property paths, sorted, in the casing of the tier
// that supplied each value.
func (e *Effective) Paths() []string {
	paths := make([]string, 0, len(e.props))
	for _, p := range e.props {
		paths = append(paths, p.key)
	}
	sort.Strings(paths)
	return paths
}

// Values returns a copy of the merged flat property map.
func (e *Effective) Values() map[string]any {
	out := make(map[string]any, len(e.props))
	for _, p := range e.props {
		out[p.key] = p.value
	}
	return out
}

// drop removes a property from the view. Used by Bind when a property fails
// type conversion so the target's zero/default survives.
func (e *Effective) drop(path string) bool {
	key := strings.ToLower(path)
	if _, ok := e.props[key]; !ok {
		return false
	}
	delete(e.props, key)
	return true
}
