package assign

import (
	"context"
	"math/rand"
	"time"

	"github.com/wonny/vox/backend/internal/contracts"
	"github.com/wonny/vox/backend/pkg/logger"
	"github.com/wonny/vox/backend/pkg/redis"
)

// Resolver finds stocks related to a topic and distributes them
// across personas
// ⭐ SSOT: 종목 배정은 여기서만
type Resolver struct {
	market contracts.MarketData
	cache  *redis.Cache
	logger *logger.Logger
}

// NewResolver creates a new stock assignment resolver. cache may be nil.
func NewResolver(market contracts.MarketData, cache *redis.Cache, log *logger.Logger) *Resolver {
	return &Resolver{
		market: market,
		cache:  cache,
		logger: log.WithField("module", "assign"),
	}
}

// Resolve looks up the stocks related to a topic
func (r *Resolver) Resolve(ctx context.Context, topic contracts.Topic) (contracts.StockResolution, error) {
	if r.cache != nil {
		var cached []contracts.Stock
		if found, _ := r.cache.Get(ctx, redis.TopicStocksKey(topic.ID), &cached); found {
			return contracts.StockResolution{HasStocks: len(cached) > 0, Stocks: cached}, nil
		}
	}

	stocks, err := r.market.StocksForTopic(ctx, topic)
	if err != nil {
		return contracts.StockResolution{}, err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, redis.TopicStocksKey(topic.ID), stocks, redis.TTLShort)
	}

	return contracts.StockResolution{HasStocks: len(stocks) > 0, Stocks: stocks}, nil
}

// Assign distributes stocks across personas.
//
// len(stocks) >= len(personas): every persona gets a distinct stock
// (a random permutation subset, no repeats).
// 0 < len(stocks) < len(personas): sample with replacement so every
// persona still receives a stock.
// No stocks: every persona maps to nil and generation degrades to a
// non-stock-specific narrative.
//
// The generator is freshly seeded per call so repeated invocations do
// not converge on the same assignment.
func (r *Resolver) Assign(stocks []contracts.Stock, personaIDs []string) map[string]*contracts.Stock {
	assignment := make(map[string]*contracts.Stock, len(personaIDs))

	if len(stocks) == 0 {
		for _, id := range personaIDs {
			assignment[id] = nil
		}
		return assignment
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	if len(stocks) >= len(personaIDs) {
		perm := rng.Perm(len(stocks))
		for i, id := range personaIDs {
			s := stocks[perm[i]]
			assignment[id] = &s
		}
		return assignment
	}

	// Fewer stocks than personas: with-replacement sampling, but hand
	// each stock out once before repeating so coverage stays broad
	perm := rng.Perm(len(stocks))
	for i, id := range personaIDs {
		var s contracts.Stock
		if i < len(stocks) {
			s = stocks[perm[i]]
		} else {
			s = stocks[rng.Intn(len(stocks))]
		}
		assignment[id] = &s
	}
	return assignment
}
