package container

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	name  string
	log   *[]string
	fail  bool
	count int
}

func (c *closeRecorder) Close() error {
	c.count++
	*c.log = append(*c.log, c.name)
	if c.fail {
		return fmt.Errorf("close of %s failed", c.name)
	}
	return nil
}

func TestBuilderRegister(t *testing.T) {
	b := NewBuilder()

	require.NoError(t, b.Register("clock", func(c *Container) (any, error) { return "tick", nil }))
	assert.True(t, b.Has("clock"))
	assert.False(t, b.Has("db"))

	assert.Error(t, b.Register("", func(c *Container) (any, error) { return nil, nil }))
	assert.Error(t, b.Register("db", nil))
}

func TestBuilderSealRejectsRegistration(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("clock", func(c *Container) (any, error) { return "tick", nil }))
	b.Seal()

	err := b.Register("late", func(c *Container) (any, error) { return nil, nil })
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sealed")
}

func TestRegisterOverride(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("greeter", func(c *Container) (any, error) { return "hello", nil }))
	require.NoError(t, b.Register("greeter", func(c *Container) (any, error) { return "hi", nil }))

	c := b.Seal()
	svc, err := c.Resolve("greeter")
	require.NoError(t, err)
	assert.Equal(t, "hi", svc)
	assert.Equal(t, 1, c.Len())
}

func TestResolveSingleton(t *testing.T) {
	b := NewBuilder()
	calls := 0
	require.NoError(t, b.Register("counter", func(c *Container) (any, error) {
		calls++
		return calls, nil
	}))
	c := b.Seal()

	first, err := c.Resolve("counter")
	require.NoError(t, err)
	second, err := c.Resolve("counter")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestResolveUnknown(t *testing.T) {
	c := NewBuilder().Seal()
	_, err := c.Resolve("missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestResolveDependencyChain(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("conn", func(c *Container) (any, error) { return "connection", nil }))
	require.NoError(t, b.Register("repo", func(c *Container) (any, error) {
		conn, err := c.Resolve("conn")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("repo(%v)", conn), nil
	}))
	c := b.Seal()

	svc, err := c.Resolve("repo")
	require.NoError(t, err)
	assert.Equal(t, "repo(connection)", svc)
}

func TestResolveCircularConstruction(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("a", func(c *Container) (any, error) { return c.Resolve("b") }))
	require.NoError(t, b.Register("b", func(c *Container) (any, error) { return c.Resolve("a") }))
	c := b.Seal()

	_, err := c.Resolve("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular construction")
}

func TestResolveConcurrentFirstUse(t *testing.T) {
	b := NewBuilder()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	require.NoError(t, b.Register("slow", func(c *Container) (any, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return "ready", nil
	}))
	c := b.Seal()

	type outcome struct {
		svc any
		err error
	}
	results := make(chan outcome, 2)
	go func() {
		svc, err := c.Resolve("slow")
		results <- outcome{svc, err}
	}()
	<-started
	// The second resolver arrives while the first construction is still
	// running; it must wait for that construction, not misreport a cycle.
	go func() {
		svc, err := c.Resolve("slow")
		results <- outcome{svc, err}
	}()

	close(release)
	for i := 0; i < 2; i++ {
		got := <-results
		require.NoError(t, got.err)
		assert.Equal(t, "ready", got.svc)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResolveConcurrentSharesFailure(t *testing.T) {
	b := NewBuilder()
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, b.Register("flaky", func(c *Container) (any, error) {
		close(started)
		<-release
		return nil, fmt.Errorf("boom")
	}))
	c := b.Seal()

	errs := make(chan error, 2)
	go func() {
		_, err := c.Resolve("flaky")
		errs <- err
	}()
	<-started
	go func() {
		_, err := c.Resolve("flaky")
		errs <- err
	}()

	close(release)
	for i := 0; i < 2; i++ {
		err := <-errs
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.NotContains(t, err.Error(), "circular")
	}
}

func TestCloseReverseOrder(t *testing.T) {
	var closed []string
	b := NewBuilder()
	require.NoError(t, b.Register("first", func(c *Container) (any, error) {
		return &closeRecorder{name: "first", log: &closed}, nil
	}))
	require.NoError(t, b.Register("second", func(c *Container) (any, error) {
		return &closeRecorder{name: "second", log: &closed}, nil
	}))
	c := b.Seal()

	_, err := c.Resolve("first")
	require.NoError(t, err)
	_, err = c.Resolve("second")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, []string{"second", "first"}, closed)
}

func TestCloseIdempotent(t *testing.T) {
	var closed []string
	b := NewBuilder()
	require.NoError(t, b.Register("svc", func(c *Container) (any, error) {
		return &closeRecorder{name: "svc", log: &closed}, nil
	}))
	c := b.Seal()
	_, err := c.Resolve("svc")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Len(t, closed, 1)
}

func TestResolveAfterClose(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("svc", func(c *Container) (any, error) { return 1, nil }))
	c := b.Seal()
	require.NoError(t, c.Close())

	_, err := c.Resolve("svc")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestCloseCollectsErrors(t *testing.T) {
	var closed []string
	b := NewBuilder()
	require.NoError(t, b.Register("bad", func(c *Container) (any, error) {
		return &closeRecorder{name: "bad", log: &closed, fail: true}, nil
	}))
	require.NoError(t, b.Register("good", func(c *Container) (any, error) {
		return &closeRecorder{name: "good", log: &closed}, nil
	}))
	c := b.Seal()
	_, err := c.Resolve("bad")
	require.NoError(t, err)
	_, err = c.Resolve("good")
	require.NoError(t, err)

	err = c.Close()
	require.Error(t, err)
	// Both services are closed even though one fails.
	assert.ElementsMatch(t, []string{"bad", "good"}, closed)
}

func TestServiceNames(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Register("zeta", func(c *Container) (any, error) { return nil, nil }))
	require.NoError(t, b.Register("alpha", func(c *Container) (any, error) { return nil, nil }))
	c := b.Seal()

	assert.Equal(t, []string{"alpha", "zeta"}, c.ServiceNames())
}
