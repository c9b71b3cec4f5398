// Package round derives the chain position from wall-clock time.
package round

import (
	"context"
	"fmt"
	"time"

	"github.com/fd1az/price-getter/business/blockchain/app"
	"github.com/fd1az/price-getter/business/blockchain/domain"
	"github.com/fd1az/price-getter/internal/apperror"
)

const sourceName = "round"

// Ensure Clock implements BlockSource.
var _ app.BlockSource = (*Clock)(nil)

// Clock computes the current round as (now - genesis) / roundDuration.
// It needs no network and never disconnects.
type Clock struct {
	genesis  time.Time
	duration time.Duration
	shard    uint32
	now      func() time.Time
}

// NewClock creates a round clock.
func NewClock(genesis time.Time, roundDuration time.Duration, shard uint32) (*Clock, error) {
	if roundDuration <= 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("round duration must be positive, got %s", roundDuration)))
	}
	return &Clock{
		genesis:  genesis,
		duration: roundDuration,
		shard:    shard,
		now:      time.Now,
	}, nil
}

// WithNow replaces the wall clock. For tests.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	c.now = now
	return c
}

// LatestBlock returns the round in progress.
func (c *Clock) LatestBlock(_ context.Context) (*domain.Block, error) {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return nil, apperror.New(apperror.CodeBlockStatusFailed,
			apperror.WithContext("clock is before genesis"))
	}

	r := uint64(elapsed / c.duration)
	return &domain.Block{
		Round:     r,
		Shard:     c.shard,
		Timestamp: c.genesis.Add(time.Duration(r) * c.duration),
		Source:    sourceName,
	}, nil
}

// State is always connected.
func (c *Clock) State() domain.ConnectionState {
	return domain.StateConnected
}
