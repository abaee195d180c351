// Package feature defines the pluggable feature contract and the registry
// produced by discovering feature candidates across a set of modules.
//
// Discovery is explicit rather than reflective: modules hand back candidate
// values, candidates implementing Definition are feature-marked, and every
// marked candidate must implement Buildable. Validation failures are fatal
// for the entire discovery pass because the resulting registry is shared by
// all shells.
package feature
