package bake_cache

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-bake/engine/bakery"
	"golang.org/x/sync/singleflight"
)

// BakeFunc performs a bake on a cache miss.
type BakeFunc func(req Request) (*bakery.BakeResult, error)

// bakeCache is the implementation of the BakeCache interface.
type bakeCache struct {
	mu *sync.RWMutex

	entries map[Key]*entry
	flight  singleflight.Group
	bake    BakeFunc
	verbose bool
}

// entry is a cached result and the full input it was baked from.
type entry struct {
	res         *bakery.BakeResult
	fingerprint string
}

// BakeCache memoizes bakes by content key. Entries are never evicted.
// Concurrent requests for the same key share a single bake.
type BakeCache interface {
	// GetOrBake returns the cached result for req, baking it on the first request.
	//
	// Parameters:
	//   - req: the bake request
	//
	// Returns:
	//   - *bakery.BakeResult: the shared result; callers must not modify it
	//   - Key: the content key of req
	//   - error: error from the bake; failed bakes are not cached
	GetOrBake(req Request) (*bakery.BakeResult, Key, error)

	// Lookup returns a cached result without baking. It matches on the key alone;
	// GetOrBake additionally compares the full request content.
	//
	// Parameters:
	//   - key: the content key
	//
	// Returns:
	//   - *bakery.BakeResult: the result, or nil
	//   - bool: true if key is cached
	Lookup(key Key) (*bakery.BakeResult, bool)

	// Keys returns the cached keys ordered by hash.
	//
	// Returns:
	//   - []Key: the keys
	Keys() []Key

	// Len returns the number of cached entries.
	//
	// Returns:
	//   - int: the entry count
	Len() int
}

var _ BakeCache = &bakeCache{}

var shared = sync.OnceValue(func() BakeCache {
	return NewBakeCache()
})

// Shared returns the process-wide cache, creating it on first use.
func Shared() BakeCache {
	return shared()
}

// NewBakeCache creates an empty cache. Without WithBakeFunc, misses are baked with a
// bakery configured from the request's frame rate and wrap overrides.
//
// Parameters:
//   - options: functional options for the cache
//
// Returns:
//   - BakeCache: the cache
func NewBakeCache(options ...BakeCacheBuilderOption) BakeCache {
	c := &bakeCache{
		mu:      &sync.RWMutex{},
		entries: make(map[Key]*entry),
		bake:    defaultBake,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func defaultBake(req Request) (*bakery.BakeResult, error) {
	b, err := bakery.NewBakery(
		bakery.WithFrameRate(req.FrameRate),
		bakery.WithWrapModes(req.WrapModes),
	)
	if err != nil {
		return nil, err
	}
	return b.BakeClips(req.Skeleton, req.Clips)
}

func (c *bakeCache) GetOrBake(req Request) (*bakery.BakeResult, Key, error) {
	key, fingerprint := req.identity()
	if res, ok := c.match(key, fingerprint); ok {
		return res, key, nil
	}

	v, err, _ := c.flight.Do(fingerprint, func() (any, error) {
		// A bake for this key may have finished between match and Do.
		if res, ok := c.match(key, fingerprint); ok {
			return res, nil
		}
		res, err := c.bake(req)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		_, taken := c.entries[key]
		if !taken {
			c.entries[key] = &entry{res: res, fingerprint: fingerprint}
		}
		c.mu.Unlock()
		if taken {
			log.Printf("[BakeCache] hash collision for %q on %s, result not cached", req.Name, key)
		} else if c.verbose {
			log.Printf("[BakeCache] baked %q as %s (%d entries)", req.Name, key, c.Len())
		}
		return res, nil
	})
	if err != nil {
		return nil, key, fmt.Errorf("bake %q: %w", req.Name, err)
	}
	return v.(*bakery.BakeResult), key, nil
}

// match returns the cached result for key only if it was baked from the same input.
func (c *bakeCache) match(key Key, fingerprint string) (*bakery.BakeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.fingerprint != fingerprint {
		return nil, false
	}
	return e.res, true
}

func (c *bakeCache) Lookup(key Key) (*bakery.BakeResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.res, true
}

func (c *bakeCache) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Hash < keys[j].Hash
	})
	return keys
}

func (c *bakeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
