package shell

import (
	"shellhost/internal/container"
	"shellhost/internal/options"
	"shellhost/internal/settings"
)

// Context is one fully built shell: the settings it was constructed from,
// the resolved feature activation order, and the sealed service container.
// A Context is immutable after construction; replacing a shell means
// building a new Context and disposing the old one.
type Context struct {
	id       settings.ShellID
	settings settings.ShellSettings
	order    []string
	effects  map[string]*options.Effective
	services *container.Container
}

// ID returns the shell identifier.
func (c *Context) ID() settings.ShellID {
	return c.id
}

// Settings returns the settings snapshot this context was built from.
func (c *Context) Settings() settings.ShellSettings {
	return c.settings
}

// FeatureOrder returns the resolved activation order, dependencies first.
func (c *Context) FeatureOrder() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Options returns the frozen effective options for one of the shell's
// features, or nil if the feature is not active in this shell. Options are
// fixed at build time and never re-read afterwards.
func (c *Context) Options(feature string) *options.Effective {
	return c.effects[foldKey(feature)]
}

// Container returns the shell-scoped service container.
func (c *Context) Container() *container.Container {
	return c.services
}

// Close disposes the shell's container and all services it constructed.
func (c *Context) Close() error {
	return c.services.Close()
}
