package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cache data is corrupted
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Entry is one cached audio payload.
type Entry struct {
	Data []byte
	MIME string
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity (entries for L1, bytes for L2)
	Size      int64 // Current size in bytes
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)
}

func (s *Stats) updateHitRate() {
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}

// Config holds configuration for the cache manager
type Config struct {
	// Memory cache (L1)
	MemoryEntries int

	// Disk cache (L2)
	DiskCapacity     int64  // Bytes
	DiskPath         string // Directory for cache files
	CompressionLevel int    // Zstd compression level (1-22, 0 disables)

	// Cleanup settings
	TTL             time.Duration // Age before items expire
	CleanupInterval time.Duration // How often to run cleanup, 0 disables
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		MemoryEntries:    32,
		DiskCapacity:     100 * 1024 * 1024, // 100MB
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Key builds the cache key for a request to the speech service.
func Key(text, speakerID string) string {
	hash := sha256.Sum256([]byte(text + "|" + speakerID))
	return hex.EncodeToString(hash[:16])
}
