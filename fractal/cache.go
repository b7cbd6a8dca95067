package fractal

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	cache "github.com/patrickmn/go-cache"

	"fractal-ledger/fault"
	"fractal-ledger/models"
)

const (
	defaultExpiration = 10 * time.Minute
	cleanupInterval   = 20 * time.Minute
)

// Cache memoises computed levels. A miss extends the deepest cached level
// below the requested one instead of rebuilding from the root.
type Cache struct {
	levels *cache.Cache
}

// NewCache creates a cache whose levels expire after ttl (zero = default)
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultExpiration
	}
	return &Cache{
		levels: cache.New(ttl, cleanupInterval),
	}
}

func key(level models.Level) string {
	return strconv.Itoa(int(level))
}

// Segments returns the same result as ComputeSegments. The returned slice is
// a copy and may be modified by the caller.
func (c *Cache) Segments(level models.Level) ([]models.Segment, error) {
	if level < 0 {
		return nil, errors.Wrapf(fault.ErrInvalidLevel, "level: %d", level)
	}
	if s, found := c.get(level); found {
		return clone(s), nil
	}

	// find the deepest level already known
	base := level - 1
	var segments []models.Segment
	for ; base >= 0; base-- {
		if s, found := c.get(base); found {
			segments = s
			break
		}
	}
	if segments == nil {
		base = 0
		segments = root()
		c.levels.SetDefault(key(0), segments)
	}

	for l := base + 1; l <= level; l++ {
		segments = subdivide(segments, l)
		c.levels.SetDefault(key(l), segments)
	}
	return clone(segments), nil
}

// Flush drops every memoised level
func (c *Cache) Flush() {
	c.levels.Flush()
}

func (c *Cache) get(level models.Level) ([]models.Segment, bool) {
	obj, found := c.levels.Get(key(level))
	if !found {
		return nil, false
	}
	return obj.([]models.Segment), true
}

func clone(s []models.Segment) []models.Segment {
	out := make([]models.Segment, len(s))
	copy(out, s)
	return out
}
