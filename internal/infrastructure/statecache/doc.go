// Package statecache keeps the last-known capability values per device in
// Redis, backing GET /api/v1/devices/{id}/state.
//
//	cache, err := statecache.Connect(cfg.Redis)
//	if errors.Is(err, statecache.ErrDisabled) {
//	    // run without a cache
//	}
//	cache.Set(ctx, "meter-1", "measure_power.a", 120.0, time.Now())
package statecache
