// Package caching memoises remote query results under an expiry policy.
//
// Callers hand a Strategy a fingerprint key, a Policy and a producer. The producer runs
// only when no live entry exists, and concurrent callers for the same key share one run.
package caching

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/price-getter/internal/apperror"
)

// Key is a 64-bit fingerprint of a request.
type Key uint64

// KeyFromBytes derives a Key from the first eight bytes of keccak256(parts...).
func KeyFromBytes(parts ...[]byte) Key {
	h := crypto.Keccak256(parts...)
	return Key(binary.BigEndian.Uint64(h[:8]))
}

// String renders the key as fixed-width hex.
func (k Key) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// Producer computes the value for a key on a miss.
type Producer func(ctx context.Context) ([]byte, error)

// BlockClock reports the current block; until-next-block entries live while it is unchanged.
type BlockClock interface {
	CurrentBlock(ctx context.Context) (uint64, error)
}

// Strategy is the cache facade.
type Strategy interface {
	GetOrSet(ctx context.Context, key Key, policy Policy, produce Producer) ([]byte, error)
}

type policyKind uint8

const (
	kindNone policyKind = iota
	kindDuration
	kindUntilNextBlock
)

// Policy decides how long a produced value stays valid.
type Policy struct {
	kind policyKind
	ttl  time.Duration
}

// NoCache always runs the producer.
func NoCache() Policy {
	return Policy{kind: kindNone}
}

// For keeps values for d. A non-positive d behaves like NoCache.
func For(d time.Duration) Policy {
	if d <= 0 {
		return NoCache()
	}
	return Policy{kind: kindDuration, ttl: d}
}

// UntilNextBlock keeps values while the block clock reports the same block.
func UntilNextBlock() Policy {
	return Policy{kind: kindUntilNextBlock}
}

// IsNone reports whether the policy disables caching.
func (p Policy) IsNone() bool { return p.kind == kindNone }

// PerBlock reports whether the policy is bound to the block clock.
func (p Policy) PerBlock() bool { return p.kind == kindUntilNextBlock }

// TTL returns the duration of a For policy, zero otherwise.
func (p Policy) TTL() time.Duration { return p.ttl }

func (p Policy) String() string {
	switch p.kind {
	case kindDuration:
		return "for " + p.ttl.String()
	case kindUntilNextBlock:
		return "until next block"
	default:
		return "none"
	}
}

// record is what strategies store.
type record struct {
	Value []byte `json:"v"`
	Block uint64 `json:"b,omitempty"`
	// Pinned records are only valid for Block.
	Pinned bool `json:"p,omitempty"`
}

func (r record) validFor(p Policy, block uint64) bool {
	if p.PerBlock() {
		return r.Pinned && r.Block == block
	}
	return true
}

// resolveBlock reads the clock for per-block policies.
func resolveBlock(ctx context.Context, clock BlockClock, p Policy) (uint64, error) {
	if !p.PerBlock() {
		return 0, nil
	}
	if clock == nil {
		return 0, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("until-next-block policy needs a block clock"))
	}
	return clock.CurrentBlock(ctx)
}

func flightKey(key Key, block uint64) string {
	return fmt.Sprintf("%s/%d", key, block)
}

// flightTimeout bounds a shared producer run, which outlives the caller that started it.
const flightTimeout = 30 * time.Second

// share runs fn once for all concurrent callers of key. The run ignores the cancellation
// of whichever caller started it; each caller stops waiting when its own ctx is done.
func share(ctx context.Context, group *singleflight.Group, key string, fn Producer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Cancelled(ctx, err)
	}

	ch := group.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return fn(runCtx)
	})

	select {
	case <-ctx.Done():
		return nil, apperror.Cancelled(ctx, nil)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Fetch is GetOrSet for any JSON-serialisable T.
func Fetch[T any](ctx context.Context, s Strategy, key Key, policy Policy, produce func(context.Context) (T, error)) (T, error) {
	var out T

	raw, err := s.GetOrSet(ctx, key, policy, func(ctx context.Context) ([]byte, error) {
		v, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, apperror.New(apperror.CodeCacheCodecError, apperror.WithCause(err))
		}
		return b, nil
	})
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, apperror.New(apperror.CodeCacheCodecError,
			apperror.WithContext("key "+key.String()), apperror.WithCause(err))
	}
	return out, nil
}

// Nop never stores anything.
type Nop struct{}

var _ Strategy = Nop{}

// GetOrSet always runs produce.
func (Nop) GetOrSet(ctx context.Context, _ Key, _ Policy, produce Producer) ([]byte, error) {
	return produce(ctx)
}
