package pkgdiff

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyString(t *testing.T) {
	t.Parallel()

	k := Key{Source: "npm", Package: "@types/node", Version: "20.0.0"}
	assert.Equal(t, "npm:@types/node:20.0.0", k.String())
}

func TestCacheSingleFlight(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	c := NewCache(func(ctx context.Context, key Key) (Files, error) {
		calls.Add(1)
		<-release
		return Files{"index.js": {Type: "file", Content: key.Version}}, nil
	})

	const n = 16
	key := Key{Source: "npm", Package: "left-pad", Version: "1.3.0"}
	results := make([]Files, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			files, err := c.Get(context.Background(), key)
			assert.NoError(t, err)
			results[i] = files
		}()
	}

	// Let every caller reach the flight before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, files := range results {
		assert.Equal(t, results[0], files)
	}
	assert.Equal(t, 1, c.Len())

	_, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheDistinctKeys(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := NewCache(func(ctx context.Context, key Key) (Files, error) {
		calls.Add(1)
		return Files{}, nil
	})

	ctx := context.Background()
	for _, v := range []string{"1.0.0", "2.0.0", "1.0.0"} {
		_, err := c.Get(ctx, Key{Source: "npm", Package: "a", Version: v})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"npm:a:1.0.0", "npm:a:2.0.0"}, c.Keys())
}

func TestCacheFailureIsNotCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	c := NewCache(func(ctx context.Context, key Key) (Files, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return Files{"a": {Type: "file"}}, nil
	})

	key := Key{Source: "npm", Package: "a", Version: "1"}
	_, err := c.Get(context.Background(), key)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	files, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheFailurePropagatesToAllWaiters(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	release := make(chan struct{})
	var calls atomic.Int32
	c := NewCache(func(ctx context.Context, key Key) (Files, error) {
		calls.Add(1)
		<-release
		return nil, boom
	})

	key := Key{Source: "npm", Package: "a", Version: "1"}
	errs := make(chan error, 4)
	for range 4 {
		go func() {
			_, err := c.Get(context.Background(), key)
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	for range 4 {
		assert.ErrorIs(t, <-errs, boom)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCacheCallerCancellationDoesNotStopLoad(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	loaded := make(chan struct{})
	c := NewCache(func(ctx context.Context, key Key) (Files, error) {
		<-release
		defer close(loaded)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Files{"a": {Type: "file"}}, nil
	})

	key := Key{Source: "npm", Package: "a", Version: "1"}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, key)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	<-loaded
	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)

	files, err := c.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
