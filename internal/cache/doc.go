// Package cache implements the two caching disciplines the pipeline relies
// on: a short-TTL in-memory response cache for high-volume search-derived
// adapters, and a stale-while-revalidate snapshot cache for the scraped
// venue dataset.
//
// The snapshot cache always serves its current in-memory copy immediately,
// however old. Staleness only decides whether a detached background refresh
// is launched; the read path never waits on one.
package cache
