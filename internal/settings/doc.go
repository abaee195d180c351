// Package settings holds the authoritative per-shell settings: the document
// model fetched from a provider, the environment-variable override tier, and
// the copy-on-write snapshot store that serves the lifecycle manager's read
// path without locks.
package settings
