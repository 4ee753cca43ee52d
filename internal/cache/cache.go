// Package cache stores product listing pages in Redis. Writes to products
// bump a version counter, which orphans every page cached under the old
// version until it expires.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopfront/apiserver/config"
	"github.com/shopfront/apiserver/internal/listing"
	"github.com/shopfront/apiserver/types"
)

const (
	keyPrefix         = "products"
	versionKey        = keyPrefix + ":version"
	defaultTTL        = 5 * time.Minute
	defaultPingTimout = 3 * time.Second
)

// ProductCache caches product listing pages.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache connects to Redis and verifies the connection.
func NewProductCache(ctx context.Context, cfg config.RedisConfig) (*ProductCache, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(client, cfg.CacheTTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ProductCache{client: client, ttl: ttl}
}

// GetPage returns a cached page. Redis failures are logged and reported as a miss.
func (c *ProductCache) GetPage(ctx context.Context, p listing.Params) (listing.Page[types.Product], bool) {
	key, err := c.pageKey(ctx, p)
	if err != nil {
		log.Printf("cache=products op=get error=%q", err)
		return listing.Page[types.Product]{}, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache=products op=get key=%s error=%q", key, err)
		}
		return listing.Page[types.Product]{}, false
	}

	var page listing.Page[types.Product]
	if err := json.Unmarshal(raw, &page); err != nil {
		log.Printf("cache=products op=decode key=%s error=%q", key, err)
		return listing.Page[types.Product]{}, false
	}
	return page, true
}

// SetPage stores page under the current version.
func (c *ProductCache) SetPage(ctx context.Context, p listing.Params, page listing.Page[types.Product]) {
	key, err := c.pageKey(ctx, p)
	if err != nil {
		log.Printf("cache=products op=set error=%q", err)
		return
	}
	raw, err := json.Marshal(page)
	if err != nil {
		log.Printf("cache=products op=encode key=%s error=%q", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("cache=products op=set key=%s error=%q", key, err)
	}
}

// Invalidate retires every cached page.
func (c *ProductCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		log.Printf("cache=products op=invalidate error=%q", err)
	}
}

func (c *ProductCache) Close() error {
	return c.client.Close()
}

func (c *ProductCache) pageKey(ctx context.Context, p listing.Params) (string, error) {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return PageKey(version, p), nil
}

// PageKey derives the cache key for a listing under a cache version.
// Equivalent parameters map to the same key.
func PageKey(version int64, p listing.Params) string {
	p = p.Normalize()

	categories := make([]string, 0, len(p.CategoryIDs))
	for _, id := range p.CategoryIDs {
		categories = append(categories, id.String())
	}
	sort.Strings(categories)

	field, explicit := p.Sort(listing.SortByName, listing.SortByPrice, listing.SortByDate)
	ascending := p.Ascending || !explicit

	canonical := fmt.Sprintf("kw=%s|min=%g|max=%g|cat=%s|sort=%s|explicit=%t|asc=%t|page=%d|size=%d",
		strings.ToLower(p.Keyword), p.MinPrice, p.MaxPrice, strings.Join(categories, ","),
		field, explicit, ascending, p.PageNumber, p.PageSize)
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%s:v%d:%s", keyPrefix, version, hex.EncodeToString(sum[:]))
}
