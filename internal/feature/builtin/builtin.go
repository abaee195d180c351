// Package builtin ships a small demonstration feature set so the host
// composes something real out of the box: a core feature every shell wants,
// a database feature with typed options, and a cache feature layered on top
// of it.
package builtin

import (
	"fmt"

	"shellhost/internal/container"
	"shellhost/internal/feature"
	"shellhost/internal/options"
)

// Modules returns the built-in module set.
func Modules() []feature.Module {
	return []feature.Module{
		feature.ModuleSet{
			&Core{},
			&Database{},
			&Cache{},
		},
	}
}

// Core provides the per-shell identity service every other feature may rely
// on.
type Core struct{}

// Describe implements feature.Definition.
func (Core) Describe() feature.Info {
	return feature.Info{
		Name:     "Core",
		Metadata: []string{"category", "infrastructure"},
	}
}

// Build implements feature.Buildable.
func (Core) Build(bctx feature.BuildContext) (feature.Instance, error) {
	return &coreInstance{shell: string(bctx.Settings.ID)}, nil
}

type coreInstance struct {
	shell string
}

func (i *coreInstance) Configure(b *container.Builder) error {
	return b.Register("core.identity", func(c *container.Container) (any, error) {
		return &Identity{Shell: i.shell}, nil
	})
}

// Identity names the tenant a container belongs to.
type Identity struct {
	Shell string
}

// DatabaseOptions is the typed configuration of the Database feature.
type DatabaseOptions struct {
	ConnectionString string
	PoolSize         int
	Timeout          string
}

// Database opens a connection pool per shell. The connection string has no
// default and must come from configuration.
type Database struct{}

// Describe implements feature.Definition.
func (Database) Describe() feature.Info {
	return feature.Info{
		Name:         "Db",
		Dependencies: []string{"Core"},
		Metadata:     []string{"category", "storage"},
	}
}

// DefaultOptions implements feature.HasDefaults.
func (Database) DefaultOptions() map[string]any {
	return map[string]any{
		"PoolSize": 8,
		"Timeout":  "30s",
	}
}

// OptionsValidators implements feature.HasValidators.
func (Database) OptionsValidators() []options.Validator {
	return []options.Validator{
		options.Require("ConnectionString"),
		options.Func(func(eff *options.Effective) []error {
			var opts DatabaseOptions
			if err := eff.Bind(&opts); err != nil {
				return []error{err}
			}
			if opts.PoolSize < 1 {
				return []error{fmt.Errorf("PoolSize must be at least 1, got %d", opts.PoolSize)}
			}
			return nil
		}),
	}
}

// Build implements feature.Buildable.
func (Database) Build(bctx feature.BuildContext) (feature.Instance, error) {
	return &databaseInstance{}, nil
}

type databaseInstance struct {
	opts DatabaseOptions
}

// SetOptions implements feature.Configurable.
func (i *databaseInstance) SetOptions(eff *options.Effective) error {
	return eff.Bind(&i.opts)
}

func (i *databaseInstance) Configure(b *container.Builder) error {
	return b.Register("db.pool", func(c *container.Container) (any, error) {
		return NewPool(i.opts), nil
	})
}

// Pool is a stand-in connection pool sized from the merged options.
type Pool struct {
	Options DatabaseOptions

	closed bool
}

// NewPool creates a pool from the given options.
func NewPool(opts DatabaseOptions) *Pool {
	return &Pool{Options: opts}
}

// Closed reports whether the pool has been disposed.
func (p *Pool) Closed() bool {
	return p.closed
}

// Close implements io.Closer so the container disposes the pool with the
// shell.
func (p *Pool) Close() error {
	p.closed = true
	return nil
}

// CacheOptions is the typed configuration of the Cache feature.
type CacheOptions struct {
	MaxEntries int
}

// Cache keeps a per-shell in-memory cache in front of the database.
type Cache struct{}

// Describe implements feature.Definition.
func (Cache) Describe() feature.Info {
	return feature.Info{
		Name:         "Cache",
		Dependencies: []string{"Db"},
		Metadata:     []string{"category", "storage"},
	}
}

// DefaultOptions implements feature.HasDefaults.
func (Cache) DefaultOptions() map[string]any {
	return map[string]any{"MaxEntries": 1024}
}

// Build implements feature.Buildable.
func (Cache) Build(bctx feature.BuildContext) (feature.Instance, error) {
	return &cacheInstance{}, nil
}

type cacheInstance struct {
	opts CacheOptions
}

// SetOptions implements feature.Configurable.
func (i *cacheInstance) SetOptions(eff *options.Effective) error {
	return eff.Bind(&i.opts)
}

func (i *cacheInstance) Configure(b *container.Builder) error {
	return b.Register("cache.store", func(c *container.Container) (any, error) {
		// The cache fronts the shell's own pool, proving shell-scoped
		// resolution works across features.
		pool, err := c.Resolve("db.pool")
		if err != nil {
			return nil, err
		}
		return &Store{
			MaxEntries: i.opts.MaxEntries,
			pool:       pool.(*Pool),
			entries:    make(map[string]any),
		}, nil
	})
}

// Store is a bounded in-memory cache bound to the shell's pool.
type Store struct {
	MaxEntries int

	pool    *Pool
	entries map[string]any
}

// Get returns a cached value.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Put stores a value, evicting nothing but refusing growth past MaxEntries.
func (s *Store) Put(key string, value any) error {
	if len(s.entries) >= s.MaxEntries {
		if _, exists := s.entries[key]; !exists {
			return fmt.Errorf("cache full at %d entries", s.MaxEntries)
		}
	}
	s.entries[key] = value
	return nil
}
