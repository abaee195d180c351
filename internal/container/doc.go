// Package container implements the per-shell service container.
//
// Wiring is explicit: features declare named services against a Builder
// during registration and may only resolve them from the sealed Container.
// There is no reflection and no service locator handed out during
// registration, which keeps feature activation order-independent at
// construction time.
package container
