package storage

import (
	"fmt"

	"github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// LimiterStore returns a shared rate limit counter store when s is backed by
// Redis, so that limits hold across processes. Other stores return nil,
// which callers treat as in-memory counters.
func LimiterStore(s Store, prefix string) (limiter.Store, error) {
	rs, ok := s.(*RedisStore)
	if !ok {
		return nil, nil
	}
	store, err := redisstore.NewStoreWithOptions(rs.Client(), limiter.StoreOptions{
		Prefix: prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}
	return store, nil
}
