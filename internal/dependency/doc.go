// Package dependency computes the deterministic activation order for a
// shell's enabled features: transitive dependencies are expanded depth-first
// and emitted before their dependents, with cycles and unknown references
// reported as typed errors instead of a partial order.
package dependency
