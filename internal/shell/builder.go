package shell

import (
	"fmt"
	"strings"

	"shellhost/internal/container"
	"shellhost/internal/dependency"
	"shellhost/internal/feature"
	"shellhost/internal/options"
	"shellhost/internal/settings"
	"shellhost/pkg/logging"
)

// BuildError reports a failed shell construction. The shell is left
// untouched: no container is created and no partial registration survives.
type BuildError struct {
	Shell   settings.ShellID
	Feature string
	Err     error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("building shell %q: feature %q: %v", e.Shell, e.Feature, e.Err)
	}
	return fmt.Sprintf("building shell %q: %v", e.Shell, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// Builder constructs shell contexts from settings. One builder serves all
// shells; it holds the shared feature registry, the root-level container and
// the process environment overrides, all of which are immutable, so Build
// may be called concurrently for different shells.
type Builder struct {
	registry *feature.Registry
	root     *container.Container
	env      *settings.EnvOverrides
}

// NewBuilder creates a builder over the given registry. The root container
// and environment overrides may be nil.
func NewBuilder(registry *feature.Registry, root *container.Container, env *settings.EnvOverrides) *Builder {
	return &Builder{
		registry: registry,
		root:     root,
		env:      env,
	}
}

// Build constructs the shell context for one tenant. The snapshot supplies
// the root configuration tier; the remaining tiers come from the tenant's
// own settings and the environment.
//
// Hooks run in resolved dependency order against a single shell-scoped
// container builder. A feature's options callback runs strictly before its
// registration hook. Any failure, including a panicking hook, aborts the
// whole construction.
func (b *Builder) Build(sh settings.ShellSettings, snap *settings.Snapshot) (*Context, error) {
	order, err := b.resolveOrder(sh)
	if err != nil {
		return nil, &BuildError{Shell: sh.ID, Err: err}
	}

	logging.Debug("Shell", "Building shell %s with %d features: %v", sh.ID, len(order), order)

	descriptors := b.registry.Descriptors()
	cb := container.NewBuilder()
	effects := make(map[string]*options.Effective, len(order))

	for _, id := range order {
		desc, ok := b.registry.Get(id)
		if !ok {
			// Resolve already checked membership; this is a registry bug.
			return nil, &BuildError{Shell: sh.ID, Feature: id,
				Err: fmt.Errorf("resolved feature missing from registry")}
		}

		inst, err := desc.Build(feature.BuildContext{
			Settings:    sh,
			Root:        b.root,
			Descriptors: descriptors,
		})
		if err != nil {
			return nil, &BuildError{Shell: sh.ID, Feature: desc.ID, Err: err}
		}

		eff := b.merge(sh, snap, desc)
		if err := options.Validate(eff, desc.Validators()...); err != nil {
			return nil, &BuildError{Shell: sh.ID, Feature: desc.ID, Err: err}
		}
		effects[foldKey(desc.ID)] = eff

		if cfg, ok := inst.(feature.Configurable); ok {
			if err := cfg.SetOptions(eff); err != nil {
				return nil, &BuildError{Shell: sh.ID, Feature: desc.ID,
					Err: fmt.Errorf("applying options: %w", err)}
			}
		}

		if err := configure(inst, cb); err != nil {
			return nil, &BuildError{Shell: sh.ID, Feature: desc.ID, Err: err}
		}
	}

	ctx := &Context{
		id:       sh.ID,
		settings: sh,
		order:    order,
		effects:  effects,
		services: cb.Seal(),
	}

	logging.Info("Shell", "Built shell %s: %d features, %d services",
		sh.ID, len(order), ctx.services.Len())
	return ctx, nil
}

// resolveOrder computes the activation order for the shell's enabled
// features from the shared registry.
func (b *Builder) resolveOrder(sh settings.ShellSettings) ([]string, error) {
	g := dependency.New()
	for _, desc := range b.registry.Descriptors() {
		g.AddNode(dependency.Node{ID: desc.ID, DependsOn: desc.Dependencies})
	}
	return g.Resolve(sh.EnabledFeatures())
}

// merge resolves the five configuration tiers for one feature.
func (b *Builder) merge(sh settings.ShellSettings, snap *settings.Snapshot, desc feature.Descriptor) *options.Effective {
	var root map[string]any
	if snap != nil {
		root = snap.RootConfig(desc.ID)
	}
	return options.Merge(string(sh.ID), desc.ID, options.Tiers{
		Env:      b.env.For(sh.ID, desc.ID),
		Inline:   sh.InlineConfig(desc.ID),
		Shell:    sh.FeatureConfig(desc.ID),
		Root:     root,
		Defaults: desc.DefaultOptions(),
	})
}

// configure runs one registration hook, converting a panic into an error so
// that a misbehaving feature cannot take the whole process down during a
// reload.
func configure(inst feature.Instance, cb *container.Builder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("registration hook panicked: %v", r)
		}
	}()
	return inst.Configure(cb)
}

func foldKey(id string) string {
	return strings.ToLower(id)
}
