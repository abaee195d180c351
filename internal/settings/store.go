package settings

import (
	"sync"
	"sync/atomic"

	"shellhost/pkg/logging"
)

// Snapshot is one immutable, versioned view of all shell settings. Readers
// obtain a snapshot and work against it without coordination; a mutation
// never alters a published snapshot.
type Snapshot struct {
	version uint64
	order   []string // folded ids in document order
	shells  map[string]ShellSettings
	root    map[string]map[string]any
}

// Version returns the monotonically increasing snapshot version.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Get returns the settings for a shell id, case-insensitively.
func (s *Snapshot) Get(id ShellID) (ShellSettings, bool) {
	ss, ok := s.shells[id.Key()]
	return ss, ok
}

// All returns every shell's settings in document order.
func (s *Snapshot) All() []ShellSettings {
	out := make([]ShellSettings, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.shells[key])
	}
	return out
}

// Len returns the number of shells in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// RootConfig returns the root configuration section for a feature.
func (s *Snapshot) RootConfig(feature string) map[string]any {
	return Document{Configuration: s.root}.RootConfig(feature)
}

// Document returns the snapshot in document form: the shell list in order
// plus the root configuration section. Callers must treat it as read-only.
func (s *Snapshot) Document() Document {
	return Document{
		Shells:        s.All(),
		Configuration: s.root,
	}
}

// Store publishes settings snapshots with copy-on-write semantics: Replace
// builds a complete new snapshot and swaps it in atomically, so the read
// path never takes a lock and never observes a half-applied mutation.
type Store struct {
	current atomic.Pointer[Snapshot]

	// mu serializes writers only; readers go through the pointer.
	mu      sync.Mutex
	version uint64
}

// NewStore returns a store seeded with an empty snapshot at version 0.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{
		shells: make(map[string]ShellSettings),
		root:   make(map[string]map[string]any),
	})
	return s
}

// Current returns the latest published snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Replace atomically publishes a new snapshot built from the document and
// returns it. The previous snapshot stays valid for readers still holding
// it.
func (s *Store) Replace(doc Document) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(doc)
}

func (s *Store) replaceLocked(doc Document) *Snapshot {
	s.version++
	snap := &Snapshot{
		version: s.version,
		order:   make([]string, 0, len(doc.Shells)),
		shells:  make(map[string]ShellSettings, len(doc.Shells)),
		root:    doc.Configuration,
	}
	for _, shell := range doc.Shells {
		key := shell.ID.Key()
		if _, dup := snap.shells[key]; dup {
			// ParseDocument rejects duplicates; a programmatic caller
			// passing them gets last-wins without a second order slot.
			snap.shells[key] = shell
			continue
		}
		snap.order = append(snap.order, key)
		snap.shells[key] = shell
	}

	s.current.Store(snap)
	logging.Debug("Settings", "Published settings snapshot v%d with %d shells", snap.version, snap.Len())
	return snap
}

// Mutate publishes a new snapshot derived from the current one by applying
// fn to a copy of its document. Used by single-shell lifecycle operations.
func (s *Store) Mutate(fn func(doc *Document)) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.current.Load().Document()
	fn(&doc)
	return s.replaceLocked(doc)
}
