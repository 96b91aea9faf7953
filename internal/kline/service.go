package kline

import (
	"fmt"

	"github.com/aristath/arduino-watcher/internal/clients/eastmoney"
	"github.com/aristath/arduino-watcher/internal/domain"
)

// quoteFetcher is the subset of *eastmoney.Client a Service needs; an
// interface here keeps this package testable without a live HTTP client.
type quoteFetcher interface {
	FetchDailyKlines(symbol string, limit int) ([]domain.KlineBar, error)
}

// Service is the cache-backed K-line source every dispatcher and formula
// evaluation reads through: a hit avoids a round trip to the upstream
// market-data client entirely.
type Service struct {
	cache  *Cache
	client quoteFetcher
}

// NewService wires a cache in front of an eastmoney client.
func NewService(cache *Cache, client *eastmoney.Client) *Service {
	return &Service{cache: cache, client: client}
}

// Fetch returns up to limit daily bars for symbol, serving from cache
// when fresh and falling through to the market-data client on a miss.
func (s *Service) Fetch(symbol string, limit int) ([]domain.KlineBar, error) {
	if bars, ok := s.cache.Get(symbol, limit); ok {
		return bars, nil
	}
	if c, isClient := s.client.(*eastmoney.Client); s.client == nil || (isClient && c == nil) {
		return nil, fmt.Errorf("kline: no market-data client to fetch %s", symbol)
	}
	bars, err := s.client.FetchDailyKlines(symbol, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Put(symbol, limit, bars)
	return bars, nil
}
