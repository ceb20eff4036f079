package di

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerBuildsOnce(t *testing.T) {
	c := New()
	builds := 0
	c.RegisterBuilder("counter", func(c *Container) (interface{}, error) {
		builds++
		return builds, nil
	})

	first, err := Resolve[int](c, "counter")
	require.NoError(t, err)
	second, err := Resolve[int](c, "counter")
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, builds)
}

func TestContainerNestedResolution(t *testing.T) {
	c := New()
	c.Register("base", "ledger")
	c.RegisterBuilder("derived", func(c *Container) (interface{}, error) {
		base, err := Resolve[string](c, "base")
		if err != nil {
			return nil, err
		}
		return base + "+index", nil
	})

	got, err := Resolve[string](c, "derived")
	require.NoError(t, err)
	assert.Equal(t, "ledger+index", got)
	assert.True(t, c.Has("derived"))
	assert.False(t, c.Has("missing"))
}

func TestContainerErrors(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	c.RegisterBuilder("broken", func(c *Container) (interface{}, error) {
		return nil, boom
	})
	c.Register("number", 42)
	c.RegisterBuilder("absent", func(c *Container) (interface{}, error) {
		return nil, nil
	})

	_, err := c.Get("broken")
	assert.ErrorIs(t, err, boom)

	_, err = c.Get("missing")
	assert.Error(t, err)

	_, err = Resolve[string](c, "number")
	assert.Error(t, err)

	ptr, err := Resolve[*int](c, "absent")
	require.NoError(t, err)
	assert.Nil(t, ptr)

	assert.Panics(t, func() { c.MustGet("missing") })
}

func TestContainerCloseOrder(t *testing.T) {
	c := New()
	var order []string
	failure := errors.New("close failed")

	c.OnClose("storage", func(context.Context) error {
		order = append(order, "storage")
		return nil
	})
	c.OnClose("index", func(context.Context) error {
		order = append(order, "index")
		return failure
	})
	c.OnClose("service", func(context.Context) error {
		order = append(order, "service")
		return nil
	})

	err := c.Close(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"service", "index", "storage"}, order)

	// Closers run once.
	require.NoError(t, c.Close(context.Background()))
	assert.Len(t, order, 3)
}
