package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Manager coordinates the memory and disk caches: reads check L1 then L2 and
// promote disk hits, writes go to both.
type Manager struct {
	l1     *MemoryCache
	l2     *DiskCache
	config Config
	logger *log.Logger

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	mu    sync.Mutex
	stats struct {
		L1Hits      int64
		L2Hits      int64
		Misses      int64
		CleanupRuns int64
		LastCleanup time.Time
	}
}

// NewManager opens the cache described by config.
func NewManager(config Config, logger *log.Logger) (*Manager, error) {
	if config.DiskPath == "" {
		return nil, errors.New("cache directory is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	l2, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	m := &Manager{
		l1:          NewMemoryCache(config.MemoryEntries),
		l2:          l2,
		config:      config,
		logger:      logger.WithPrefix("cache"),
		cleanupStop: make(chan struct{}),
	}

	m.performCleanup()
	if config.CleanupInterval > 0 {
		m.startCleanupRoutine()
	}

	return m, nil
}

// Get looks key up in L1, then L2.
func (m *Manager) Get(key string) (Entry, bool) {
	if e, ok := m.l1.Get(key); ok {
		m.count(func() { m.stats.L1Hits++ })
		return e, true
	}

	if e, ok := m.l2.Get(key); ok {
		m.count(func() { m.stats.L2Hits++ })
		// promotion is best effort
		_ = m.l1.Put(key, e)
		return e, true
	}

	m.count(func() { m.stats.Misses++ })
	return Entry{}, false
}

// Put stores an entry in both levels. A payload too large for the disk cache
// is still kept in memory.
func (m *Manager) Put(key string, e Entry) error {
	if err := m.l1.Put(key, e); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("L1 cache error: %w", err)
	}
	if err := m.l2.Put(key, e); err != nil {
		if errors.Is(err, ErrItemTooLarge) {
			m.logger.Debug("payload too large for disk cache", "size", humanize.Bytes(uint64(len(e.Data))))
			return nil
		}
		return fmt.Errorf("L2 cache error: %w", err)
	}
	return nil
}

// Delete removes key from both levels.
func (m *Manager) Delete(key string) {
	m.l1.Delete(key)
	m.l2.Delete(key)
}

// Clear empties both levels.
func (m *Manager) Clear() error {
	m.l1.Clear()
	return m.l2.Clear()
}

// ManagerStats aggregates statistics from both levels.
type ManagerStats struct {
	L1Hits      int64
	L2Hits      int64
	Misses      int64
	HitRate     float64
	CleanupRuns int64
	LastCleanup time.Time
	Memory      Stats
	Disk        Stats
}

// Stats returns aggregated statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := ManagerStats{
		L1Hits:      m.stats.L1Hits,
		L2Hits:      m.stats.L2Hits,
		Misses:      m.stats.Misses,
		CleanupRuns: m.stats.CleanupRuns,
		LastCleanup: m.stats.LastCleanup,
	}
	m.mu.Unlock()

	if total := s.L1Hits + s.L2Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.L1Hits+s.L2Hits) / float64(total)
	}
	s.Memory = m.l1.Stats()
	s.Disk = m.l2.Stats()
	return s
}

// String summarizes the cache for logs.
func (s ManagerStats) String() string {
	return fmt.Sprintf("%d memory / %d disk entries, %s on disk, %.0f%% hit rate",
		s.Memory.ItemCount, s.Disk.ItemCount, humanize.Bytes(uint64(s.Disk.Size)), s.HitRate*100)
}

// Close stops the cleanup routine and saves the disk index.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.cleanupStop)
		m.cleanupWg.Wait()
		m.logger.Debug("closing", "stats", m.Stats())
		if cerr := m.l2.Close(); cerr != nil {
			err = fmt.Errorf("failed to close disk cache: %w", cerr)
		}
	})
	return err
}

func (m *Manager) count(fn func()) {
	m.mu.Lock()
	fn()
	m.mu.Unlock()
}

// startCleanupRoutine starts the background cleanup goroutine.
func (m *Manager) startCleanupRoutine() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.performCleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

// performCleanup drops expired entries from both levels.
func (m *Manager) performCleanup() {
	m.count(func() {
		m.stats.CleanupRuns++
		m.stats.LastCleanup = time.Now()
	})

	if m.config.TTL <= 0 {
		return
	}
	removed := m.l2.RemoveOlderThan(time.Now().Add(-m.config.TTL))
	pruned := m.l1.Prune(m.config.TTL)
	if removed+pruned > 0 {
		m.logger.Debug("expired cache entries", "disk", removed, "memory", pruned)
	}
}
