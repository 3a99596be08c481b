package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/PaulSpaurgen/interface-v2/constants"
	"github.com/PaulSpaurgen/interface-v2/internal/models"
)

// Pool hands out redis connections. *redis.Pool satisfies it.
type Pool interface {
	Get() redis.Conn
}

func NewRedisPool(url string, password string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     5,
		MaxActive:   0,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			if password != "" {
				return redis.DialURL(url, redis.DialPassword(password))
			}
			return redis.DialURL(url)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			_, err := c.Do("PING")
			return err
		},
	}
}

// MarketplaceCache keeps the last good marketplace snapshot of a chain, used when the
// operator api cannot be reached.
type MarketplaceCache struct {
	pool Pool
	key  string
	ttl  time.Duration
}

type snapshot struct {
	SavedAt  int64                       `json:"saved_at"`
	Listings []models.MarketplaceListing `json:"listings"`
}

func NewMarketplaceCache(pool Pool, chainId string, ttl time.Duration) *MarketplaceCache {
	return &MarketplaceCache{
		pool: pool,
		key:  constants.REDIS_MARKETPLACE_PREFIX + strings.ToLower(chainId),
		ttl:  ttl,
	}
}

func (c *MarketplaceCache) Save(listings []models.MarketplaceListing, now int64) error {
	data, err := json.Marshal(snapshot{SavedAt: now, Listings: listings})
	if err != nil {
		return fmt.Errorf("failed marshal marketplace snapshot, error: %w", err)
	}
	conn := c.pool.Get()
	defer conn.Close()

	args := redis.Args{}.Add(c.key, data)
	if seconds := int64(c.ttl / time.Second); seconds > 0 {
		args = args.Add("EX", seconds)
	}
	if _, err := conn.Do("SET", args...); err != nil {
		return fmt.Errorf("failed save marketplace snapshot, key: %s, error: %w", c.key, err)
	}
	return nil
}

// Load returns the stored listings and the time they were saved. found is false when
// nothing is stored or the key expired.
func (c *MarketplaceCache) Load() (listings []models.MarketplaceListing, savedAt int64, found bool, err error) {
	conn := c.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", c.key))
	if err == redis.ErrNil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed load marketplace snapshot, key: %s, error: %w", c.key, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, 0, false, fmt.Errorf("failed parse marketplace snapshot, key: %s, error: %w", c.key, err)
	}
	if snap.Listings == nil {
		snap.Listings = []models.MarketplaceListing{}
	}
	return snap.Listings, snap.SavedAt, true, nil
}

func (c *MarketplaceCache) Clear() error {
	conn := c.pool.Get()
	defer conn.Close()
	_, err := conn.Do("DEL", redis.Args{}.AddFlat(c.key)...)
	return err
}
