package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable means no rate could be resolved for a currency pair
// from any tier. It must reach the caller; a default rate is never
// substituted.
var ErrUnavailable = errors.New("exchange rate unavailable")

// DefaultCacheTTL governs cache freshness only; the durable store stays
// the source of truth for stored rates.
const DefaultCacheTTL = 24 * time.Hour

// RateStore is the durable tier of the rate lookup.
type RateStore interface {
	RateOnOrBefore(currency, base string, day time.Time) (float64, bool, error)
	SaveRate(currency, base string, day time.Time, rate float64) error
}

// Rates holds the two reference-currency rates frozen onto a new
// monetary entity.
type Rates struct {
	EUR float64
	USD float64
}

// Service resolves conversion rates with a three-tier lookup: memory
// cache, durable store, then the external API, writing results back on
// every miss. Construct with NewService and share one instance; there
// is no package-level state.
type Service struct {
	store  RateStore
	cache  *Cache
	client Client
	now    func() time.Time
}

// NewService creates a rate service over the given store and API client.
func NewService(store RateStore, client Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		store:  store,
		cache:  NewCache(cacheTTL),
		client: client,
		now:    time.Now,
	}
}

// Rate resolves the conversion rate from one currency to another as of
// the given date. Same-currency pairs are exactly 1. A pair that cannot
// be resolved from cache, store or API yields ErrUnavailable.
func (s *Service) Rate(ctx context.Context, from, to string, asOf time.Time) (float64, error) {
	if from == to {
		return 1, nil
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	key := cacheKey(from, to, asOf)
	if rate, ok := s.cache.Get(key); ok {
		return rate, nil
	}

	rate, found, err := s.store.RateOnOrBefore(from, to, asOf)
	if err != nil {
		log.Error().Err(err).Str("from", from).Str("to", to).Msg("Rate store lookup failed")
	} else if found {
		s.cache.Set(key, rate)
		return rate, nil
	}

	rate, err = s.client.PairRate(ctx, from, to)
	if err != nil {
		log.Warn().Err(err).Str("from", from).Str("to", to).Msg("Live rate fetch failed")
		return 0, fmt.Errorf("%w: %s -> %s", ErrUnavailable, from, to)
	}

	// Write-back is best effort: a racing writer for the same day is
	// harmless because the store keeps the first value.
	if err := s.store.SaveRate(from, to, asOf, rate); err != nil {
		log.Error().Err(err).Str("from", from).Str("to", to).Msg("Failed to persist rate")
	}
	s.cache.Set(key, rate)

	return rate, nil
}

// RatesFor returns the EUR and USD rates for a currency, both as of the
// same date, for freezing onto a new transaction or debt.
func (s *Service) RatesFor(ctx context.Context, currency string, asOf time.Time) (Rates, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	eur, err := s.Rate(ctx, currency, "EUR", asOf)
	if err != nil {
		return Rates{}, err
	}
	usd, err := s.Rate(ctx, currency, "USD", asOf)
	if err != nil {
		return Rates{}, err
	}

	return Rates{EUR: eur, USD: usd}, nil
}

func cacheKey(from, to string, asOf time.Time) string {
	return from + ":" + to + ":" + asOf.UTC().Format(time.DateOnly)
}
