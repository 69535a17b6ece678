package bake_cache

// BakeCacheBuilderOption is a functional option for configuring a BakeCache via NewBakeCache.
type BakeCacheBuilderOption func(*bakeCache)

// WithBakeFunc replaces the function used to bake on a miss.
//
// Parameters:
//   - fn: the bake function
//
// Returns:
//   - BakeCacheBuilderOption: option function to apply
func WithBakeFunc(fn BakeFunc) BakeCacheBuilderOption {
	return func(c *bakeCache) {
		if fn != nil {
			c.bake = fn
		}
	}
}

// WithVerbose enables "[BakeCache]" log output on misses.
func WithVerbose(verbose bool) BakeCacheBuilderOption {
	return func(c *bakeCache) {
		c.verbose = verbose
	}
}
