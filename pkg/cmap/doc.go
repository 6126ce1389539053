// Package cmap provides a concurrent map split into independently locked
// shards.
//
//	m := cmap.New[string, *rate.Limiter]()
//	lim := m.GetOrCreate(ip, func() *rate.Limiter { return rate.NewLimiter(10, 10) })
//
// Operations on different shards never contend. Count visits shards one
// at a time, so it is not a consistent snapshot of the whole map.
package cmap
