// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/price-getter/business/pricing/app"
	"github.com/fd1az/price-getter/internal/caching"
	"github.com/fd1az/price-getter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PriceService = di.NewToken[*app.PriceService]("pricing.PriceService")
)

// Private dependency tokens - internal to pricing module
var (
	CacheStrategy    = di.NewToken[caching.Strategy]("pricing:cacheStrategy")
	PairLocator      = di.NewToken[app.PairLocator]("pricing:pairLocator")
	ReserveReader    = di.NewToken[app.ReserveReader]("pricing:reserveReader")
	DecimalsProvider = di.NewToken[app.DecimalsProvider]("pricing:decimalsProvider")
)

// Helper functions for type-safe access
func GetPriceService(c di.ServiceRegistry) *app.PriceService {
	return di.GetToken(c, PriceService)
}

func GetCacheStrategy(c di.ServiceRegistry) caching.Strategy {
	return di.GetToken(c, CacheStrategy)
}

func GetPairLocator(c di.ServiceRegistry) app.PairLocator {
	return di.GetToken(c, PairLocator)
}

func GetReserveReader(c di.ServiceRegistry) app.ReserveReader {
	return di.GetToken(c, ReserveReader)
}

func GetDecimalsProvider(c di.ServiceRegistry) app.DecimalsProvider {
	return di.GetToken(c, DecimalsProvider)
}
