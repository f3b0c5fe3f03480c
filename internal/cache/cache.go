package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/almartin82/vtschooldata/internal/config"
	apperrors "github.com/almartin82/vtschooldata/internal/errors"
	"github.com/almartin82/vtschooldata/internal/infrastructure"
	"github.com/almartin82/vtschooldata/pkg/contracts/domain"
)

// EntryStatus is one line of the cache report.
type EntryStatus struct {
	Key        Key           `json:"key"`
	Kind       string        `json:"kind"`
	EndYear    int           `json:"end_year"`
	Size       int64         `json:"size"`
	StoredAt   time.Time     `json:"stored_at"`
	Age        time.Duration `json:"-"`
	AgeSeconds float64       `json:"age_seconds"`
	MaxAge     time.Duration `json:"-"`
	Fresh      bool          `json:"fresh"`
}

// Cache applies a freshness policy over a Store. It is the handle passed to
// every component that reads or writes cached tables.
type Cache struct {
	store   Store
	policy  Policy
	logger  *slog.Logger
	metrics *infrastructure.PipelineMetrics
	now     func() time.Time
}

// New wraps store. A nil policy uses DefaultPolicy; metrics may be nil.
func New(store Store, policy Policy, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *Cache {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Cache{
		store:   store,
		policy:  policy,
		logger:  infrastructure.WithComponent(logger, "cache"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Open builds the cache described by cfg.
func Open(cfg config.CacheConfig, logger *slog.Logger, metrics *infrastructure.PipelineMetrics) (*Cache, error) {
	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open cache", err)
	}
	return New(store, PolicyFromConfig(cfg), logger, metrics), nil
}

// Driver reports the backing store.
func (c *Cache) Driver() Driver { return c.store.Driver() }

// Policy returns the freshness policy in use.
func (c *Cache) Policy() Policy { return c.policy }

// Close closes the store.
func (c *Cache) Close() error { return c.store.Close() }

// Get returns the blob stored under key when it is fresh. Stale and
// unreadable entries are reported as absent so callers rebuild them.
func (c *Cache) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, apperrors.NewAppValidationError(err.Error())
	}

	entry, found, err := c.store.Read(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache entry unreadable, treating as absent",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		c.metrics.RecordCacheLookup(ctx, string(key.Kind), false)
		return nil, false, nil
	}
	if !found {
		c.metrics.RecordCacheLookup(ctx, string(key.Kind), false)
		return nil, false, nil
	}

	age := c.now().Sub(entry.StoredAt)
	if !c.policy.Fresh(key.Kind, age) {
		c.logger.DebugContext(ctx, "cache entry stale",
			slog.String("key", key.String()),
			slog.Duration("age", age))
		c.metrics.RecordCacheLookup(ctx, string(key.Kind), false)
		return nil, false, nil
	}

	c.metrics.RecordCacheLookup(ctx, string(key.Kind), true)
	return entry.Data, true, nil
}

// Put stores blob under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key Key, blob []byte) error {
	if err := key.Validate(); err != nil {
		return apperrors.NewAppValidationError(err.Error())
	}

	if err := c.store.Write(ctx, Entry{Key: key, Data: blob, StoredAt: c.now()}); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write cache entry %s", key), err)
	}
	c.metrics.RecordCacheWrite(ctx, string(key.Kind))
	c.logger.DebugContext(ctx, "cache entry written",
		slog.String("key", key.String()),
		slog.Int("size", len(blob)))
	return nil
}

// GetJSON decodes a fresh entry into v.
func (c *Cache) GetJSON(ctx context.Context, key Key, v any) (bool, error) {
	blob, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(blob, v); err != nil {
		c.logger.WarnContext(ctx, "cache entry undecodable, treating as absent",
			slog.String("key", key.String()),
			slog.String("error", err.Error()))
		return false, nil
	}
	return true, nil
}

// PutJSON encodes v and stores it under key.
func (c *Cache) PutJSON(ctx context.Context, key Key, v any) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to encode cache entry %s", key), err)
	}
	return c.Put(ctx, key, blob)
}

// Invalidate removes one entry. Removing an absent entry is not an error.
func (c *Cache) Invalidate(ctx context.Context, key Key) (bool, error) {
	removed, err := c.store.Delete(ctx, key)
	if err != nil {
		return false, apperrors.NewStorageError(fmt.Sprintf("failed to remove cache entry %s", key), err)
	}
	if removed {
		c.logger.InfoContext(ctx, "cache entry removed", slog.String("key", key.String()))
	}
	return removed, nil
}

// InvalidateWhere removes every entry match accepts and returns how many
// were removed.
func (c *Cache) InvalidateWhere(ctx context.Context, match func(Key) bool) (int, error) {
	infos, err := c.store.List(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to list cache entries", err)
	}

	removed := 0
	for _, info := range infos {
		if match != nil && !match(info.Key) {
			continue
		}
		ok, err := c.store.Delete(ctx, info.Key)
		if err != nil {
			return removed, apperrors.NewStorageError(fmt.Sprintf("failed to remove cache entry %s", info.Key), err)
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll(ctx context.Context) (int, error) {
	n, err := c.InvalidateWhere(ctx, nil)
	if err == nil {
		c.logger.InfoContext(ctx, "cache cleared", slog.Int("removed", n))
	}
	return n, err
}

// Status lists every entry with its age and freshness.
func (c *Cache) Status(ctx context.Context) ([]EntryStatus, error) {
	infos, err := c.store.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list cache entries", err)
	}

	now := c.now()
	out := make([]EntryStatus, 0, len(infos))
	for _, info := range infos {
		age := now.Sub(info.StoredAt)
		out = append(out, EntryStatus{
			Key:        info.Key,
			Kind:       string(info.Key.Kind),
			EndYear:    info.Key.EndYear,
			Size:       info.Size,
			StoredAt:   info.StoredAt,
			Age:        age,
			AgeSeconds: age.Seconds(),
			MaxAge:     c.policy.MaxAge(info.Key.Kind),
			Fresh:      c.policy.Fresh(info.Key.Kind, age),
		})
	}
	return out, nil
}

// Prune removes stale entries and returns how many were removed.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	now := c.now()
	infos, err := c.store.List(ctx)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to list cache entries", err)
	}

	stale := make(map[Key]bool)
	for _, info := range infos {
		if !c.policy.Fresh(info.Key.Kind, now.Sub(info.StoredAt)) {
			stale[info.Key] = true
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := c.InvalidateWhere(ctx, func(k Key) bool { return stale[k] })
	if err != nil {
		return n, err
	}
	c.logger.InfoContext(ctx, "cache pruned", slog.Int("removed", n))
	return n, nil
}

// KindAndYear matches every entry of kind for endYear, whatever its name.
func KindAndYear(kind domain.DatasetKind, endYear int) func(Key) bool {
	return func(k Key) bool { return k.Kind == kind && k.EndYear == endYear }
}
