// Package lifecycle orchestrates shell add, remove, update and reload
// against the settings store and the shell builder.
//
// The manager is the exclusive owner of all live shell contexts. Reads (get
// a shell's container by id) go through a concurrent map and never block on
// a mutation of an unrelated shell; mutations are serialized and follow the
// state machine Absent, Building, Active, then either Updating back to
// Active or Removing back to Absent. A shell is only ever published to
// readers after it is fully built.
//
// ReloadAll pulls the full settings document from the configured provider,
// computes the delta against the current snapshot and applies the minimal
// set of changes. A failure building one shell never prevents the others
// from reloading; failures are collected and reported together.
package lifecycle
