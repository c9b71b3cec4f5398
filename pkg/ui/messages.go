package ui

import (
	"time"

	"github.com/fd1az/price-getter/business/pricing/domain"
)

// SnapshotMsg carries the result of a refresh.
type SnapshotMsg struct {
	Snapshot *domain.PriceSnapshot
	Err      error
	Took     time.Duration
}

// BlockMsg reports the block the cache is keyed on.
type BlockMsg struct {
	Round uint64
	State string
	Err   error
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
