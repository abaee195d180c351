package feature

import (
	"shellhost/internal/container"
	"shellhost/internal/options"
	"shellhost/internal/settings"
)

// Info is the declaration a feature candidate exposes: its unique name, the
// features it depends on, and flat alternating key/value metadata pairs.
type Info struct {
	Name         string
	Dependencies []string
	Metadata     []string
}

// Module is a loadable unit contributing feature candidates. Modules are
// registered explicitly; there is no runtime type scanning, so the registry
// contents are statically verifiable.
type Module interface {
	Candidates() []any
}

// Definition is the feature marker. Any candidate exposing a declaration is
// treated as feature-capable and must also implement Buildable; a marked
// candidate that does not is a discovery error for the whole pass.
type Definition interface {
	Describe() Info
}

// BuildContext carries the only state a feature may construct itself from:
// the shell's settings, the root-level container, and a read-only view over
// all discovered descriptors for introspection. Shell-scoped services are
// deliberately absent, so feature constructors cannot couple to activation
// order.
type BuildContext struct {
	Settings    settings.ShellSettings
	Root        *container.Container
	Descriptors []Descriptor
}

// Buildable is the capability required of every marked candidate: it
// constructs the per-shell feature instance.
type Buildable interface {
	Build(bctx BuildContext) (Instance, error)
}

// Instance is one feature bound to one shell. Configure declares services
// against the shell-scoped builder; it must not resolve them.
type Instance interface {
	Configure(b *container.Builder) error
}

// Configurable is implemented by instances that consume merged options. The
// callback runs strictly before Configure, so registration logic may read
// bound options synchronously.
type Configurable interface {
	SetOptions(eff *options.Effective) error
}

// HasDefaults is implemented by definitions declaring default option values,
// the lowest configuration tier.
type HasDefaults interface {
	DefaultOptions() map[string]any
}

// HasValidators is implemented by definitions contributing validation rules
// for their merged options.
type HasValidators interface {
	OptionsValidators() []options.Validator
}

// ModuleSet is a convenience Module over a plain candidate slice.
type ModuleSet []any

// Candidates implements Module.
func (m ModuleSet) Candidates() []any {
	return m
}
