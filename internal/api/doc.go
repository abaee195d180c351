// Package api defines the error contract shared across the shellhost
// packages. Lifecycle-level failures (shell not found, duplicate shell) are
// expressed as typed errors here so that callers can branch on them with
// errors.As regardless of which layer produced them.
package api
