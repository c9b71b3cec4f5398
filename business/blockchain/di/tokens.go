// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/price-getter/business/blockchain/app"
	"github.com/fd1az/price-getter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	BlockSource = di.NewToken[app.BlockSource]("blockchain:blockSource")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetBlockSource(c di.ServiceRegistry) app.BlockSource {
	return di.GetToken(c, BlockSource)
}
