package caching

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fd1az/price-getter/internal/apperror"
)

func TestPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		none     bool
		perBlock bool
		ttl      time.Duration
		str      string
	}{
		{"no cache", NoCache(), true, false, 0, "none"},
		{"duration", For(time.Second), false, false, time.Second, "for 1s"},
		{"zero duration", For(0), true, false, 0, "none"},
		{"negative duration", For(-time.Second), true, false, 0, "none"},
		{"until next block", UntilNextBlock(), false, true, 0, "until next block"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.IsNone(); got != tt.none {
				t.Errorf("IsNone() = %v, want %v", got, tt.none)
			}
			if got := tt.policy.PerBlock(); got != tt.perBlock {
				t.Errorf("PerBlock() = %v, want %v", got, tt.perBlock)
			}
			if got := tt.policy.TTL(); got != tt.ttl {
				t.Errorf("TTL() = %v, want %v", got, tt.ttl)
			}
			if got := tt.policy.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestKeyFromBytes(t *testing.T) {
	a := KeyFromBytes([]byte("getPair"), []byte("x"))
	b := KeyFromBytes([]byte("getPair"), []byte("x"))
	c := KeyFromBytes([]byte("getPair"), []byte("y"))

	if a != b {
		t.Errorf("equal inputs produced different keys: %s %s", a, b)
	}
	if a == c {
		t.Errorf("different inputs produced the same key %s", a)
	}
	if len(a.String()) != 16 {
		t.Errorf("expected 16 hex chars, got %q", a.String())
	}
}

func TestFetch_RoundTripsThroughStrategy(t *testing.T) {
	l, err := NewLocal(DefaultLocalConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	var calls atomic.Int32
	produce := func(context.Context) (*big.Int, error) {
		calls.Add(1)
		return big.NewInt(1_000_000_000_000_000_000), nil
	}

	for i := 0; i < 2; i++ {
		got, err := Fetch(context.Background(), l, 11, For(time.Hour), produce)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if got.Cmp(big.NewInt(1_000_000_000_000_000_000)) != 0 {
			t.Errorf("got %s", got)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("expected 1 producer call, got %d", calls.Load())
	}
}

func TestFetch_CodecErrors(t *testing.T) {
	_, err := Fetch(context.Background(), Nop{}, 1, NoCache(), func(context.Context) (chan int, error) {
		return make(chan int), nil
	})
	if !apperror.HasCode(err, apperror.CodeCacheCodecError) {
		t.Errorf("expected CACHE_CODEC_ERROR, got %v", err)
	}
}

func TestNop_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Nop{}.GetOrSet(context.Background(), 1, For(time.Hour), func(context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}
