package ai

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DomainRoleCache memoizes domain-role judgments, which depend only on
// (domain, role). Every other judgment passes straight through.
type DomainRoleCache struct {
	Oracle
	ttl   time.Duration
	now   func() time.Time
	cache sync.Map // map[string]cacheEntry
}

type cacheEntry struct {
	at     time.Time
	result ScoreJudgment
}

// WithDomainRoleCache wraps next with a TTL cache. A non-positive ttl returns
// next unchanged.
func WithDomainRoleCache(next Oracle, ttl time.Duration) Oracle {
	if next == nil || ttl <= 0 {
		return next
	}
	return &DomainRoleCache{Oracle: next, ttl: ttl, now: time.Now}
}

// ScoreDomainRole serves fresh cached judgments and caches successful ones.
func (c *DomainRoleCache) ScoreDomainRole(ctx context.Context, input DomainRoleInput) (ScoreJudgment, error) {
	key := strings.ToLower(strings.TrimSpace(input.Domain)) + "|" + strings.ToLower(strings.TrimSpace(input.Role))
	if entry, ok := c.cache.Load(key); ok {
		cached := entry.(cacheEntry)
		if c.now().Sub(cached.at) < c.ttl {
			return cached.result, nil
		}
		c.cache.Delete(key)
	}

	result, err := c.Oracle.ScoreDomainRole(ctx, input)
	if err != nil {
		return ScoreJudgment{}, err
	}
	if result.Score != nil {
		c.cache.Store(key, cacheEntry{at: c.now(), result: result})
	}
	return result, nil
}
