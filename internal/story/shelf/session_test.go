package shelf

import (
	"bytes"
	"context"
	"shortshelf/internal/domain/library"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	closes atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return nil
}

func newSessionShelf() *Shelf {
	lib := library.New(context.Background(), sampleSource(), nil)
	return New(Options{Library: lib, Out: &bytes.Buffer{}, In: strings.NewReader("")})
}

func TestSession_CloseOnce(t *testing.T) {
	var session Session
	assert.Nil(t, session.App())

	app := newSessionShelf()
	store := &countingCloser{}
	require.NoError(t, session.Set(app, store))
	assert.Same(t, app, session.App())

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.EqualValues(t, 1, store.closes.Load())
	assert.Error(t, app.ctx.Err())
}

func TestSession_SetAfterClose(t *testing.T) {
	var session Session
	require.NoError(t, session.Close())

	app := newSessionShelf()
	store := &countingCloser{}
	require.NoError(t, session.Set(app, store))

	assert.Nil(t, session.App())
	assert.EqualValues(t, 1, store.closes.Load())
	assert.Error(t, app.ctx.Err())
}

func TestSession_ConcurrentSetAndClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		var session Session
		store := &countingCloser{}
		app := newSessionShelf()

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			assert.NoError(t, session.Set(app, store))
		}()
		go func() {
			defer wg.Done()
			session.App()
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, session.Close())
		}()
		wg.Wait()

		// whichever ran first, the store ends up closed exactly once
		require.NoError(t, session.Close())
		assert.EqualValues(t, 1, store.closes.Load())
	}
}
