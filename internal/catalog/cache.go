package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/redisx"
)

const (
	kindDish    = "dish"
	kindSetmeal = "setmeal"
)

// Blobs is the cache backend; redisx.Store satisfies it. Get reports a
// missing key with redisx.ErrMiss.
type Blobs interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Source is the persistent catalog the cache reads through to.
type Source interface {
	DishesByCategory(ctx context.Context, categoryID int64) ([]Dish, error)
	FlavorsByDish(ctx context.Context, dishID int64) ([]Flavor, error)
	SetmealsByCategory(ctx context.Context, categoryID int64, status Status) ([]Setmeal, error)
	SetmealDishes(ctx context.Context, setmealID int64) ([]SetmealDish, error)
}

// Cache serves the customer menu per (category, status). A broken backend
// never fails a read: the cache is bypassed and the source answers.
type Cache struct {
	Blobs  Blobs
	Source Source
	TTL    time.Duration
	Log    *slog.Logger
}

func NewCache(blobs Blobs, src Source, ttl time.Duration, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = redisx.TTLCatalog
	}
	return &Cache{Blobs: blobs, Source: src, TTL: ttl, Log: logx.OrDiscard(log)}
}

// AvailableDishes returns the dishes of categoryID whose status is exactly
// status, each with its flavors.
func (c *Cache) AvailableDishes(ctx context.Context, categoryID int64, status Status) ([]DishView, error) {
	key := redisx.CatalogKey(kindDish, categoryID, int(status))
	return readThrough(ctx, c, key, func(ctx context.Context) ([]DishView, error) {
		dishes, err := c.Source.DishesByCategory(ctx, categoryID)
		if err != nil {
			return nil, fmt.Errorf("dishes of category %d: %w", categoryID, err)
		}
		out := make([]DishView, 0, len(dishes))
		for _, d := range dishes {
			if d.Status != status {
				continue
			}
			flavors, err := c.Source.FlavorsByDish(ctx, d.ID)
			if err != nil {
				return nil, fmt.Errorf("flavors of dish %d: %w", d.ID, err)
			}
			out = append(out, DishView{Dish: d, Flavors: flavors})
		}
		return out, nil
	})
}

// AvailableSetmeals returns the setmeals of categoryID in status, each with
// its component dishes.
func (c *Cache) AvailableSetmeals(ctx context.Context, categoryID int64, status Status) ([]SetmealView, error) {
	key := redisx.CatalogKey(kindSetmeal, categoryID, int(status))
	return readThrough(ctx, c, key, func(ctx context.Context) ([]SetmealView, error) {
		setmeals, err := c.Source.SetmealsByCategory(ctx, categoryID, status)
		if err != nil {
			return nil, fmt.Errorf("setmeals of category %d: %w", categoryID, err)
		}
		out := make([]SetmealView, 0, len(setmeals))
		for _, s := range setmeals {
			dishes, err := c.Source.SetmealDishes(ctx, s.ID)
			if err != nil {
				return nil, fmt.Errorf("dishes of setmeal %d: %w", s.ID, err)
			}
			out = append(out, SetmealView{Setmeal: s, Dishes: dishes})
		}
		return out, nil
	})
}

// Keys lists every cache key that can hold items of categoryID.
func Keys(categoryID int64) []string {
	keys := make([]string, 0, 2*len(Statuses))
	for _, kind := range []string{kindDish, kindSetmeal} {
		for _, st := range Statuses {
			keys = append(keys, redisx.CatalogKey(kind, categoryID, int(st)))
		}
	}
	return keys
}

// Invalidate evicts the dish and setmeal entries of every given category for
// both sale states. A backend failure is logged; the entries then age out
// with their TTL.
func (c *Cache) Invalidate(ctx context.Context, categoryIDs ...int64) {
	if c == nil || c.Blobs == nil || len(categoryIDs) == 0 {
		return
	}
	seen := map[int64]bool{}
	keys := make([]string, 0, 4*len(categoryIDs))
	for _, id := range categoryIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, Keys(id)...)
	}
	if err := c.Blobs.Del(ctx, keys...); err != nil {
		c.Log.Error("catalog cache eviction failed", "action", "catalog_invalidate", "keys", keys, "error", err)
		return
	}
	c.Log.Debug("catalog cache evicted", "action", "catalog_invalidate", "keys", keys)
}

func readThrough[T any](ctx context.Context, c *Cache, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	if c.Blobs != nil {
		b, err := c.Blobs.Get(ctx, key)
		switch {
		case err == nil:
			var out []T
			uerr := json.Unmarshal(b, &out)
			if uerr == nil {
				return out, nil
			}
			c.Log.Warn("catalog cache entry unreadable", "action", "catalog_read", "key", key, "error", uerr)
		case errors.Is(err, redisx.ErrMiss):
			c.Log.Debug("catalog cache miss", "action", "catalog_read", "key", key)
		default:
			c.Log.Warn("catalog cache unavailable, reading store", "action", "catalog_read", "key", key, "error", err)
		}
	}

	out, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if c.Blobs == nil {
		return out, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		c.Log.Warn("catalog cache encode", "action", "catalog_read", "key", key, "error", err)
		return out, nil
	}
	if err := c.Blobs.Set(ctx, key, b, c.TTL); err != nil {
		c.Log.Warn("catalog cache fill failed", "action", "catalog_read", "key", key, "error", err)
	}
	return out, nil
}
