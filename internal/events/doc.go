// Package events publishes shell lifecycle notifications to registered
// handlers.
//
// The lifecycle manager emits one per-shell notification for every add,
// remove and update, plus one aggregate notification per reload pass.
// Handlers run either in parallel (all attempted, failures joined) or
// sequentially in registration order (stop at first failure). Messages are
// rendered through a template engine so operators can customize the wording
// without touching the notification payload.
package events
