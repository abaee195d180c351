// Package shell constructs isolated per-tenant service containers.
//
// The builder takes one tenant's settings, resolves the activation order of
// its enabled features, merges each feature's configuration tiers, and runs
// the feature registration hooks against a fresh container builder. The
// result is a Context: the tenant's settings frozen together with its sealed
// container. Construction is atomic: any failure yields a BuildError and no
// Context, so callers never observe a partially built shell.
package shell
