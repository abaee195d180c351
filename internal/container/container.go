package container

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"shellhost/pkg/logging"
)

// Factory constructs one service. It receives the sealed container so that
// a service may resolve the services it depends on at construction time.
type Factory func(c *Container) (any, error)

type registration struct {
	name    string
	factory Factory
}

// Builder collects service registrations for one shell. Features declare
// services against it during their Configure hook; resolution is only
// possible after Seal. Builder is not safe for concurrent use: registration
// runs single-threaded in feature activation order.
type Builder struct {
	regs   []registration
	byName map[string]int
	sealed bool
}

// NewBuilder returns an empty container builder.
func NewBuilder() *Builder {
	return &Builder{
		byName: make(map[string]int),
	}
}

// Register declares a service under the given name. A later registration for
// the same name replaces the earlier one, so a dependent feature can override
// a service declared by one of its dependencies. Registration order is the
// order of first declaration.
func (b *Builder) Register(name string, factory Factory) error {
	if b.sealed {
		return fmt.Errorf("cannot register service %s: builder already sealed", name)
	}
	if name == "" {
		return fmt.Errorf("cannot register service with empty name")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for service %s", name)
	}

	if idx, exists := b.byName[name]; exists {
		b.regs[idx].factory = factory
		return nil
	}

	b.byName[name] = len(b.regs)
	b.regs = append(b.regs, registration{name: name, factory: factory})
	return nil
}

// Has reports whether a service name has been declared.
func (b *Builder) Has(name string) bool {
	_, ok := b.byName[name]
	return ok
}

// Seal finalizes the builder and returns the container. The builder rejects
// further registrations afterwards.
func (b *Builder) Seal() *Container {
	b.sealed = true

	regs := make(map[string]Factory, len(b.regs))
	names := make([]string, 0, len(b.regs))
	for _, r := range b.regs {
		regs[r.name] = r.factory
		names = append(names, r.name)
	}

	return &Container{
		state: &containerState{
			factories: regs,
			names:     names,
			built:     make(map[string]any),
			building:  make(map[string]*construction),
		},
	}
}

// construction is one in-flight factory call. Waiters block on done; svc and
// err are set before done is closed.
type construction struct {
	done chan struct{}
	svc  any
	err  error
}

// containerState is the shared state behind every Container view of one
// shell. The Container handed to a factory carries the construction path on
// top of this state.
type containerState struct {
	factories map[string]Factory
	names     []string

	mu       sync.Mutex
	built    map[string]any
	building map[string]*construction
	order    []string // construction order, for reverse disposal
	closed   bool

	inflight sync.WaitGroup
}

// Container is an isolated set of lazily constructed singleton services.
// Each service is constructed at most once, on first Resolve; concurrent
// resolvers of the same service share the one construction. Containers are
// safe for concurrent resolution.
type Container struct {
	state *containerState

	// path is the chain of services under construction on this resolution.
	// Only the views handed to factories carry one.
	path []string
}

// Resolve returns the service registered under name, constructing it on
// first use. It fails if the name is unknown, the container is closed, or
// construction recurses back into a service already on the current
// construction path.
func (c *Container) Resolve(name string) (any, error) {
	for _, ancestor := range c.path {
		if ancestor == name {
			return nil, fmt.Errorf("circular construction of service %s", name)
		}
	}

	s := c.state
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("container is closed")
	}
	if svc, ok := s.built[name]; ok {
		s.mu.Unlock()
		return svc, nil
	}
	factory, ok := s.factories[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("service %s not registered", name)
	}
	if cons, ok := s.building[name]; ok {
		// Another goroutine is constructing this service; share its result.
		s.mu.Unlock()
		<-cons.done
		return cons.svc, cons.err
	}
	cons := &construction{done: make(chan struct{})}
	s.building[name] = cons
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()

	// Construction happens outside the lock so a factory may resolve its
	// own dependencies. The factory gets a view carrying the construction
	// path, which breaks cycles without tripping concurrent resolvers.
	path := make([]string, len(c.path)+1)
	copy(path, c.path)
	path[len(c.path)] = name
	svc, err := factory(&Container{state: s, path: path})

	s.mu.Lock()
	delete(s.building, name)
	if err != nil {
		s.mu.Unlock()
		cons.err = fmt.Errorf("constructing service %s: %w", name, err)
		close(cons.done)
		return nil, cons.err
	}
	s.built[name] = svc
	s.order = append(s.order, name)
	s.mu.Unlock()

	cons.svc = svc
	close(cons.done)
	return svc, nil
}

// ServiceNames returns the names of all registered services, sorted.
func (c *Container) ServiceNames() []string {
	names := make([]string, len(c.state.names))
	copy(names, c.state.names)
	sort.Strings(names)
	return names
}

// Len returns the number of registered services.
func (c *Container) Len() int {
	return len(c.state.names)
}

// Close disposes the container. It waits for in-flight resolutions to
// settle, then closes every constructed service implementing io.Closer in
// reverse construction order. Close is idempotent.
func (c *Container) Close() error {
	s := c.state

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		if closer, ok := s.built[name].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logging.Error("Container", err, "Failed to close service: %s", name)
				errs = append(errs, fmt.Errorf("closing service %s: %w", name, err))
			}
		}
	}
	s.built = make(map[string]any)
	s.order = nil

	if len(errs) > 0 {
		return fmt.Errorf("container close: %d services failed to close, first: %w", len(errs), errs[0])
	}
	return nil
}
