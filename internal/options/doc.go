// Package options resolves the effective configuration for one feature in
// one shell by merging five precedence tiers, highest first:
//
//  1. environment-variable overrides
//  2. inline settings on the feature's entry in the shell's feature list
//  3. the shell's configuration block for the feature
//  4. the root configuration section for the feature
//  5. the feature's declared defaults
//
// The merge is per property: a lower tier may supply a property that every
// higher tier leaves unset. Property paths are colon-separated and compared
// case-insensitively. The merged view is frozen; it is computed once at
// shell construction time and never re-read afterwards.
package options
