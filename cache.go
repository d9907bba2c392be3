package pkgdiff

import (
	"context"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/aweris/pkgdiff/internal/store"
)

// Key identifies one package version from one source.
type Key struct {
	Source  string
	Package string
	Version string
}

func (k Key) String() string {
	return k.Source + ":" + k.Package + ":" + k.Version
}

// LoadFunc produces the extraction for a key.
type LoadFunc func(ctx context.Context, key Key) (Files, error)

// Cache computes each key's extraction at most once at a time and keeps
// successful results for its own lifetime. Failed computations are not
// kept, so the next Get retries.
type Cache struct {
	load    LoadFunc
	settled *store.Memory[Files]
	flights singleflight.Group
}

func NewCache(load LoadFunc) *Cache {
	return &Cache{
		load:    load,
		settled: store.NewMemory[Files](),
	}
}

// Get returns the extraction for key, joining a computation already in
// progress if there is one. The computation is not tied to ctx: if ctx
// ends first, Get returns ctx.Err() and the computation carries on for
// other and later callers.
func (c *Cache) Get(ctx context.Context, key Key) (Files, error) {
	id := key.String()
	if files, ok := c.settled.Get(id); ok {
		return files, nil
	}

	ch := c.flights.DoChan(id, func() (any, error) {
		// A flight that finished between the check above and DoChan has
		// already stored its result.
		if files, ok := c.settled.Get(id); ok {
			return files, nil
		}
		files, err := c.load(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		c.settled.Add(id, files)
		return files, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Files), nil
	}
}

// Len returns the number of settled extractions.
func (c *Cache) Len() int {
	return c.settled.Len()
}

// Keys returns the settled keys in sorted "source:package:version" form.
func (c *Cache) Keys() []string {
	keys := c.settled.Keys()
	slices.Sort(keys)
	return keys
}
