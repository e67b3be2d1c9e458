// Package cache keeps audio fetched from the remote speech service so that
// repeating a request, or downloading what was just played, does not hit the
// network again. It has an in-memory LRU (L1) in front of a zstd-compressed
// disk cache (L2) with TTL cleanup.
package cache
