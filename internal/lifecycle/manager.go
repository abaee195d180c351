package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"

	"shellhost/internal/api"
	"shellhost/internal/events"
	"shellhost/internal/settings"
	"shellhost/internal/shell"
	"shellhost/pkg/logging"
)

// defaultWorkers caps concurrent shell builds during a reload pass.
const defaultWorkers = 4

// Config holds the collaborators of the lifecycle manager.
type Config struct {
	Store     *settings.Store
	Builder   *shell.Builder
	Provider  settings.Provider
	Publisher *events.Publisher

	// Strategy selects handler execution for lifecycle notifications.
	Strategy events.Strategy

	// Workers bounds concurrent shell builds in ReloadAll. Zero means the
	// default.
	Workers int
}

// Manager owns every live shell context and is the only component allowed
// to create or dispose one. Mutations are serialized; reads go through a
// concurrent map and never wait on a mutation of an unrelated shell.
type Manager struct {
	store     *settings.Store
	builder   *shell.Builder
	provider  settings.Provider
	publisher *events.Publisher
	strategy  events.Strategy
	workers   int

	contexts cmap.ConcurrentMap[string, *shell.Context]

	// mu serializes mutations. states tracks every non-absent shell and is
	// only touched under mu.
	mu     sync.Mutex
	states map[string]State
	closed bool
}

// NewManager creates a manager. Store, Builder and Publisher are required;
// Provider may be nil when ReloadAll is not used.
func NewManager(cfg Config) *Manager {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Manager{
		store:     cfg.Store,
		builder:   cfg.Builder,
		provider:  cfg.Provider,
		publisher: cfg.Publisher,
		strategy:  cfg.Strategy,
		workers:   workers,
		contexts:  cmap.New[*shell.Context](),
		states:    make(map[string]State),
	}
}

// GetShell returns the live context for a shell id. Lock-free: a concurrent
// mutation of another shell never delays this call.
func (m *Manager) GetShell(id settings.ShellID) (*shell.Context, error) {
	if ctx, ok := m.contexts.Get(id.Key()); ok {
		return ctx, nil
	}
	return nil, api.NewShellNotFoundError(id.String())
}

// AllShells returns every live context, sorted by shell id.
func (m *Manager) AllShells() []*shell.Context {
	items := m.contexts.Items()
	out := make([]*shell.Context, 0, len(items))
	for _, ctx := range items {
		out = append(out, ctx)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().Key() < out[j].ID().Key()
	})
	return out
}

// ShellState reports a shell's position in the lifecycle state machine.
func (m *Manager) ShellState(id settings.ShellID) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id.Key()]
}

// AddShell builds the shell and publishes it to readers. Fails with a
// DuplicateError when the id is already active or being built; on a build
// failure the shell stays absent and no notification is sent. Handler
// failures from the success notification propagate to the caller, but the
// shell remains active.
func (m *Manager) AddShell(ctx context.Context, sh settings.ShellSettings) error {
	key := sh.ID.Key()

	m.mu.Lock()
	if err := m.claimLocked(key, Building); err != nil {
		m.mu.Unlock()
		return api.NewDuplicateShellError(sh.ID.String())
	}
	m.mu.Unlock()

	built, err := m.builder.Build(sh, m.store.Current())

	m.mu.Lock()
	if err != nil {
		if m.states[key] == Building {
			delete(m.states, key)
		}
		m.mu.Unlock()
		return err
	}
	if closed := m.closed; closed || m.states[key] != Building {
		// A concurrent reload installed this shell while it was building
		// here; its context stays live, this one is discarded.
		m.mu.Unlock()
		built.Close()
		if closed {
			return fmt.Errorf("lifecycle manager is closed")
		}
		return api.NewDuplicateShellError(sh.ID.String())
	}
	m.store.Mutate(func(doc *settings.Document) {
		doc.Shells = upsert(doc.Shells, sh)
	})
	m.contexts.Set(key, built)
	m.states[key] = Active
	m.mu.Unlock()

	logging.Info("Lifecycle", "Shell %s added", sh.ID)
	return m.publisher.Publish(ctx, events.NewNotification(events.ReasonShellAdded, sh.ID, sh), m.strategy)
}

// RemoveShell detaches the shell from readers, removes its settings and
// disposes its container. Removing an id that was never added fails with a
// NotFoundError; a shell that exists without a live container is still
// removed and notified.
func (m *Manager) RemoveShell(ctx context.Context, id settings.ShellID) error {
	key := id.Key()

	m.mu.Lock()
	if _, ok := m.states[key]; !ok {
		m.mu.Unlock()
		return api.NewShellNotFoundError(id.String())
	}
	m.states[key] = Removing
	old, _ := m.contexts.Pop(key)
	m.store.Mutate(func(doc *settings.Document) {
		doc.Shells = remove(doc.Shells, id)
	})
	delete(m.states, key)
	m.mu.Unlock()

	var sh settings.ShellSettings
	if old != nil {
		sh = old.Settings()
		if err := old.Close(); err != nil {
			logging.Error("Lifecycle", err, "Disposing container of shell %s", id)
		}
	}

	logging.Info("Lifecycle", "Shell %s removed", id)
	return m.publisher.Publish(ctx, events.NewNotification(events.ReasonShellRemoved, id, sh), m.strategy)
}

// UpdateShell replaces the shell's settings and container. Semantically a
// remove followed by an add against the same id: readers observe a brief
// window where the shell is absent while the new container builds. When the
// build fails the previous context and settings are restored, so the shell
// returns to its prior active state.
func (m *Manager) UpdateShell(ctx context.Context, sh settings.ShellSettings) error {
	key := sh.ID.Key()

	m.mu.Lock()
	if _, ok := m.states[key]; !ok {
		m.mu.Unlock()
		return api.NewShellNotFoundError(sh.ID.String())
	}
	m.states[key] = Updating
	old, _ := m.contexts.Pop(key)
	m.mu.Unlock()

	built, err := m.builder.Build(sh, m.store.Current())

	m.mu.Lock()
	closed := m.closed
	claimed := !closed && m.states[key] == Updating
	if err != nil {
		if claimed {
			if old != nil {
				m.contexts.Set(key, old)
			}
			m.states[key] = Active
		}
		m.mu.Unlock()
		if !claimed && old != nil {
			// A concurrent reload took over this shell; its context stays
			// live and the one popped here is disposed.
			old.Close()
		}
		return err
	}
	if !claimed {
		m.mu.Unlock()
		built.Close()
		if old != nil {
			old.Close()
		}
		if closed {
			return fmt.Errorf("lifecycle manager is closed")
		}
		return fmt.Errorf("update of shell %s abandoned: shell was concurrently replaced", sh.ID)
	}
	m.store.Mutate(func(doc *settings.Document) {
		doc.Shells = upsert(doc.Shells, sh)
	})
	m.contexts.Set(key, built)
	m.states[key] = Active
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logging.Error("Lifecycle", err, "Disposing replaced container of shell %s", sh.ID)
		}
	}

	logging.Info("Lifecycle", "Shell %s updated", sh.ID)
	return m.publisher.Publish(ctx, events.NewNotification(events.ReasonShellUpdated, sh.ID, sh), m.strategy)
}

// Close tears down every live shell. The manager accepts no further
// mutations afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	keys := m.contexts.Keys()
	var errs []error
	for _, key := range keys {
		if old, ok := m.contexts.Pop(key); ok {
			if err := old.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing shell %s: %w", old.ID(), err))
			}
		}
		delete(m.states, key)
	}
	m.mu.Unlock()
	return errors.Join(errs...)
}

// claimLocked transitions an absent shell into the given state. Callers
// hold m.mu.
func (m *Manager) claimLocked(key string, st State) error {
	if m.closed {
		return fmt.Errorf("lifecycle manager is closed")
	}
	if cur, ok := m.states[key]; ok {
		return fmt.Errorf("shell is %s", cur)
	}
	m.states[key] = st
	return nil
}

// upsert replaces the record with the same id or appends.
func upsert(shells []settings.ShellSettings, sh settings.ShellSettings) []settings.ShellSettings {
	for i, existing := range shells {
		if existing.ID.Equal(sh.ID) {
			shells[i] = sh
			return shells
		}
	}
	return append(shells, sh)
}

// remove drops the record with the given id.
func remove(shells []settings.ShellSettings, id settings.ShellID) []settings.ShellSettings {
	out := shells[:0]
	for _, existing := range shells {
		if !existing.ID.Equal(id) {
			out = append(out, existing)
		}
	}
	return out
}

// buildResult is one shell build from a reload pass.
type buildResult struct {
	sh    settings.ShellSettings
	added bool
	built *shell.Context
	err   error
}

// ReloadAll pulls the full settings document from the provider, computes the
// delta against the current snapshot and applies the minimal change set.
// When the source is unchanged the call is a no-op and publishes nothing.
//
// Added and changed shells build concurrently in a bounded worker pool. A
// failure building one shell does not prevent the others from applying; all
// failures are collected into the returned error and into per-shell
// notifications. A changed shell whose rebuild fails keeps its previous
// container and settings.
//
// Cancellation is atomic: when ctx is done before the apply step, every
// freshly built container is disposed and neither the store nor the live
// contexts are touched.
func (m *Manager) ReloadAll(ctx context.Context) error {
	if m.provider == nil {
		return fmt.Errorf("no settings provider configured")
	}

	doc, err := m.provider.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetching settings: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("lifecycle manager is closed")
	}

	current := m.store.Current()
	d := computeDelta(current, doc)
	if d.empty() && !d.rootChanged {
		m.mu.Unlock()
		logging.Debug("Lifecycle", "Reload: settings unchanged at v%d, nothing to do", current.Version())
		return nil
	}

	logging.Info("Lifecycle", "Reload: %d added, %d removed, %d changed (root changed: %v)",
		len(d.added), len(d.removed), len(d.changed), d.rootChanged)

	results, err := m.buildBatch(ctx, doc, d)
	if err != nil {
		m.mu.Unlock()
		// Cancelled: fully roll back, nothing was applied.
		for _, r := range results {
			if r.built != nil {
				r.built.Close()
			}
		}
		return err
	}

	notifications, errs := m.applyLocked(doc, d, results)
	m.mu.Unlock()

	// Publishing happens unlocked, as in the single-shell operations, so a
	// handler may query the manager without deadlocking the reload.
	var joined error
	if len(errs) > 0 {
		joined = errors.Join(errs...)
	}
	notifications = append(notifications,
		events.NewReloadNotification(len(d.added), len(d.removed), len(d.changed), joined))

	for _, n := range notifications {
		if perr := m.publisher.Publish(ctx, n, m.strategy); perr != nil {
			errs = append(errs, perr)
		}
	}
	return errors.Join(errs...)
}

// buildBatch constructs the containers for every added and changed shell in
// the worker pool. The next snapshot's root configuration is what the new
// containers must see, so merging works off the fetched document rather than
// the current snapshot.
func (m *Manager) buildBatch(ctx context.Context, doc settings.Document, d delta) ([]buildResult, error) {
	// Root tier for the builds comes from the incoming document.
	next := settings.NewStore().Replace(doc)

	results := make([]buildResult, 0, len(d.added)+len(d.changed))
	for _, sh := range d.added {
		results = append(results, buildResult{sh: sh, added: true})
	}
	for _, sh := range d.changed {
		results = append(results, buildResult{sh: sh})
	}

	pool, err := ants.NewPool(m.workers)
	if err != nil {
		return nil, fmt.Errorf("creating build pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range results {
		r := &results[i]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				r.err = ctx.Err()
				return
			}
			r.built, r.err = m.builder.Build(r.sh, next)
		})
		if submitErr != nil {
			r.err = submitErr
			wg.Done()
		}
	}
	wg.Wait()

	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

// applyLocked swaps the store snapshot and the live contexts. Callers hold
// m.mu. A changed shell whose rebuild failed keeps its previous record so
// the published snapshot matches the containers readers actually see.
func (m *Manager) applyLocked(doc settings.Document, d delta, results []buildResult) ([]events.Notification, []error) {
	var notifications []events.Notification
	var errs []error

	failed := make(map[string]error, len(results))
	for _, r := range results {
		if r.err != nil {
			failed[r.sh.ID.Key()] = r.err
		}
	}

	finalShells := make([]settings.ShellSettings, 0, len(doc.Shells))
	for _, sh := range doc.Shells {
		if _, ok := failed[sh.ID.Key()]; !ok {
			finalShells = append(finalShells, sh)
			continue
		}
		if prev, exists := m.store.Current().Get(sh.ID); exists {
			// Rebuild failed: the old container stays live, keep its record.
			finalShells = append(finalShells, prev)
		}
		// A failed brand-new shell stays absent.
	}
	m.store.Replace(settings.Document{Shells: finalShells, Configuration: doc.Configuration})

	for _, sh := range d.removed {
		key := sh.ID.Key()
		if old, ok := m.contexts.Pop(key); ok {
			if cerr := old.Close(); cerr != nil {
				logging.Error("Lifecycle", cerr, "Disposing container of shell %s", sh.ID)
			}
		}
		delete(m.states, key)
		notifications = append(notifications,
			events.NewNotification(events.ReasonShellRemoved, sh.ID, sh))
	}

	for _, r := range results {
		key := r.sh.ID.Key()
		reason := events.ReasonShellUpdated
		if r.added {
			reason = events.ReasonShellAdded
		}
		n := events.NewNotification(reason, r.sh.ID, r.sh)

		if r.err != nil {
			errs = append(errs, fmt.Errorf("shell %s: %w", r.sh.ID, r.err))
			notifications = append(notifications, n.WithError(r.err))
			continue
		}

		if old, ok := m.contexts.Get(key); ok && !r.added {
			m.contexts.Set(key, r.built)
			if cerr := old.Close(); cerr != nil {
				logging.Error("Lifecycle", cerr, "Disposing replaced container of shell %s", r.sh.ID)
			}
		} else {
			m.contexts.Set(key, r.built)
		}
		m.states[key] = Active
		notifications = append(notifications, n)
	}

	return notifications, errs
}
