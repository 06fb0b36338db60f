package trading

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/exchange"
	"github.com/ajitpratap0/cryptocascade/internal/market"
	"github.com/ajitpratap0/cryptocascade/internal/signals"
)

// klineLookback is how many recent candles feed each consensus round. 60
// one-minute candles gives every strategy agent's longest default period
// (26) comfortable room.
const klineLookback = 60

// BinanceMarketData pulls OHLCV history straight from Binance's public
// klines endpoint, using the same client construction as the exchange
// package's Binance adapter. It serves both the consensus engine's
// snapshots and the executor's PriceFeed from one cached last-price map, so
// every symbol is fetched once per cycle rather than twice.
type BinanceMarketData struct {
	client *binance.Client
	venue  string
	cache  *market.RedisPriceCache

	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewBinanceMarketData builds a market data source. Reading klines needs no
// authentication, so apiKey/secretKey may be empty for paper trading.
func NewBinanceMarketData(venue, apiKey, secretKey string) *BinanceMarketData {
	return &BinanceMarketData{
		client: binance.NewClient(apiKey, secretKey),
		venue:  venue,
		prices: make(map[string]decimal.Decimal),
	}
}

// WithPriceCache attaches a Redis-backed last-price cache so LastPrice can
// serve other processes/restarts a recent quote even before this instance's
// own in-memory map has been populated by a Snapshot call. Nil-safe: passing
// nil leaves the in-memory-only behavior unchanged.
func (m *BinanceMarketData) WithPriceCache(cache *market.RedisPriceCache) *BinanceMarketData {
	m.cache = cache
	return m
}

// Snapshot fetches the latest klines for symbol and returns a MarketSnapshot
// ready for the consensus engine, caching the latest close as the symbol's
// last price along the way.
func (m *BinanceMarketData) Snapshot(ctx context.Context, symbol string) (signals.MarketSnapshot, error) {
	var klines []*binance.Kline
	err := exchange.WithRetry(ctx, exchange.DefaultRetryConfig(), func() error {
		var fetchErr error
		klines, fetchErr = m.client.NewKlinesService().
			Symbol(symbol).
			Interval("1m").
			Limit(klineLookback).
			Do(ctx)
		return fetchErr
	})
	if err != nil {
		return signals.MarketSnapshot{}, fmt.Errorf("trading: fetch klines for %s: %w", symbol, err)
	}

	closes := make([]float64, len(klines))
	highs := make([]float64, len(klines))
	lows := make([]float64, len(klines))
	volumes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i], _ = strconv.ParseFloat(k.Close, 64)
		highs[i], _ = strconv.ParseFloat(k.High, 64)
		lows[i], _ = strconv.ParseFloat(k.Low, 64)
		volumes[i], _ = strconv.ParseFloat(k.Volume, 64)
	}

	if len(closes) > 0 {
		last := closes[len(closes)-1]
		m.mu.Lock()
		m.prices[m.key(symbol)] = decimal.NewFromFloat(last)
		m.mu.Unlock()
		if m.cache != nil {
			if err := m.cache.Set(ctx, symbol, m.venue, last); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("trading: failed to cache last price")
			}
		}
	}

	return signals.MarketSnapshot{
		Venue:     m.venue,
		Symbol:    symbol,
		Closes:    closes,
		Highs:     highs,
		Lows:      lows,
		Volumes:   volumes,
		Timestamp: time.Now(),
	}, nil
}

// LastPrice implements PriceFeed from the most recently fetched snapshot,
// falling back to the Redis price cache (if attached) when this instance
// hasn't snapshotted symbol itself yet.
func (m *BinanceMarketData) LastPrice(venue, symbol string) (decimal.Decimal, bool) {
	if venue != m.venue {
		return decimal.Decimal{}, false
	}
	m.mu.RLock()
	p, ok := m.prices[m.key(symbol)]
	m.mu.RUnlock()
	if ok {
		return p, true
	}
	if m.cache != nil {
		if price, found := m.cache.Get(context.Background(), symbol, m.venue); found {
			return decimal.NewFromFloat(price), true
		}
	}
	return decimal.Decimal{}, false
}

func (m *BinanceMarketData) key(symbol string) string {
	return m.venue + ":" + symbol
}
