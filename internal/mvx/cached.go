package mvx

import (
	"context"

	"github.com/fd1az/price-getter/internal/caching"
)

var _ QueryExecutor = (*CachedExecutor)(nil)

// CachedExecutor memoises another executor's answers under one policy.
type CachedExecutor struct {
	next     QueryExecutor
	strategy caching.Strategy
	policy   caching.Policy
}

// NewCachedExecutor wraps next. A nil strategy disables caching.
func NewCachedExecutor(next QueryExecutor, strategy caching.Strategy, policy caching.Policy) *CachedExecutor {
	if strategy == nil {
		strategy = caching.Nop{}
	}
	return &CachedExecutor{next: next, strategy: strategy, policy: policy}
}

// Execute returns the cached answer for q or runs it on next.
func (c *CachedExecutor) Execute(ctx context.Context, q Query) ([][]byte, error) {
	return caching.Fetch(ctx, c.strategy, q.Fingerprint(), c.policy, func(ctx context.Context) ([][]byte, error) {
		return c.next.Execute(ctx, q)
	})
}

// Policy returns the policy applied to every query.
func (c *CachedExecutor) Policy() caching.Policy {
	return c.policy
}
