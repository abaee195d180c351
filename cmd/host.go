package cmd

import (
	"os"

	"shellhost/internal/events"
	"shellhost/internal/feature"
	"shellhost/internal/feature/builtin"
	"shellhost/internal/lifecycle"
	"shellhost/internal/settings"
	"shellhost/internal/shell"
)

// newManager wires the full composition stack: built-in feature discovery,
// environment overrides, the settings store and the lifecycle manager
// backed by the file provider.
func newManager(cfg HostConfig, publisher *events.Publisher) (*lifecycle.Manager, error) {
	registry, err := feature.Discover(builtin.Modules())
	if err != nil {
		return nil, err
	}

	env := settings.ParseEnv(os.Environ())
	store := settings.NewStore()

	return lifecycle.NewManager(lifecycle.Config{
		Store:     store,
		Builder:   shell.NewBuilder(registry, nil, env),
		Provider:  settings.NewFileProvider(cfg.Settings),
		Publisher: publisher,
		Strategy:  events.Parallel,
		Workers:   cfg.Workers,
	}), nil
}
