package cache

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// ClipCache coordinates the memory and disk levels. Disk hits are promoted
// to memory.
type ClipCache struct {
	memory *MemoryCache
	disk   *DiskCache // nil when no disk path is configured
	logger *log.Logger
}

// New creates a clip cache. An empty cfg.DiskPath keeps clips in memory only.
func New(cfg Config, logger *log.Logger) (*ClipCache, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("cache")
	}

	c := &ClipCache{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		logger: logger,
	}

	if cfg.DiskPath != "" {
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open disk cache: %w", err)
		}
		if cfg.MaxAge > 0 {
			if n := disk.Prune(time.Now().Add(-cfg.MaxAge)); n > 0 {
				logger.Debug("Pruned expired clips", "count", n)
			}
		}
		c.disk = disk
	}

	return c, nil
}

// Get looks up a clip in memory, then on disk.
func (c *ClipCache) Get(key string) ([]byte, bool) {
	if data, ok := c.memory.Get(key); ok {
		return data, true
	}
	if c.disk == nil {
		return nil, false
	}

	data, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	if err := c.memory.Put(key, data); err != nil {
		c.logger.Debug("Clip not promoted", "err", err)
	}
	return data, true
}

// Put stores a clip in both levels. Clips too large for one level are
// still stored in the other.
func (c *ClipCache) Put(key string, value []byte) error {
	memErr := c.memory.Put(key, value)
	if c.disk == nil {
		return memErr
	}

	if err := c.disk.Put(key, value); err != nil {
		if memErr != nil {
			return err
		}
		c.logger.Warn("Failed to write clip to disk", "err", err)
	}
	return nil
}

// Stats returns the statistics of each level.
func (c *ClipCache) Stats() map[Level]Stats {
	stats := map[Level]Stats{LevelMemory: c.memory.Stats()}
	if c.disk != nil {
		stats[LevelDisk] = c.disk.Stats()
	}
	return stats
}

// Close flushes the disk index.
func (c *ClipCache) Close() error {
	if c.disk == nil {
		return nil
	}
	return c.disk.Close()
}
