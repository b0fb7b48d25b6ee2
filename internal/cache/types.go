package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cached data cannot be decoded
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Level identifies the cache tier a clip was found in.
type Level int

const (
	LevelMemory Level = iota
	LevelDisk
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds cache performance counters.
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	Items     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Config holds cache sizing.
type Config struct {
	MemoryCapacity   int64         // Bytes
	DiskCapacity     int64         // Bytes
	DiskPath         string        // Directory for cache files, empty disables L2
	CompressionLevel int           // Zstd level (1-22), 0 disables compression
	MaxAge           time.Duration // Entries older than this are pruned on open
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   64 * 1024 * 1024,  // 64MB
		DiskCapacity:     512 * 1024 * 1024, // 512MB
		CompressionLevel: 3,
		MaxAge:           7 * 24 * time.Hour,
	}
}

// Key identifies a synthesized clip. Two utterances with equal keys
// produce the same audio.
type Key struct {
	Text  string
	Voice string
	Rate  float64
}

// String hashes the key components into a stable cache key.
func (k Key) String() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.2f", strings.TrimSpace(k.Text), k.Voice, k.Rate)
	return hex.EncodeToString(h.Sum(nil))
}
