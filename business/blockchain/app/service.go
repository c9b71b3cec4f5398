package app

import (
	"context"

	"github.com/fd1az/price-getter/business/blockchain/domain"
	"github.com/fd1az/price-getter/internal/caching"
)

var _ caching.BlockClock = (*BlockchainService)(nil)

// BlockchainService coordinates blockchain interactions.
type BlockchainService struct {
	source BlockSource
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(source BlockSource) *BlockchainService {
	return &BlockchainService{source: source}
}

// CurrentBlock returns the current round. Rounds advance even when a shard
// misses a block, so per-block cache entries never outlive one round.
func (s *BlockchainService) CurrentBlock(ctx context.Context) (uint64, error) {
	b, err := s.source.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	return b.Round, nil
}

// LatestBlock returns the latest observed block.
func (s *BlockchainService) LatestBlock(ctx context.Context) (*domain.Block, error) {
	return s.source.LatestBlock(ctx)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.source.State()
}
