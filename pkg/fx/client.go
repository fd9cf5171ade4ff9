package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Client fetches a live conversion rate for a currency pair.
type Client interface {
	PairRate(ctx context.Context, from, to string) (float64, error)
}

// APIClient talks to the external pair-rate API
// (GET {baseURL}/{apiKey}/pair/{from}/{to}). Calls are time-bounded and
// shed through a circuit breaker while the provider is down.
type APIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewAPIClient creates a rate API client with the given request timeout.
func NewAPIClient(baseURL, apiKey string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "fx-rate-api",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
		}),
	}
}

type pairRateResponse struct {
	Result         string  `json:"result"`
	ConversionRate float64 `json:"conversion_rate"`
	ErrorType      string  `json:"error-type"`
}

// PairRate fetches the live rate for from -> to.
func (c *APIClient) PairRate(ctx context.Context, from, to string) (float64, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, from, to)
	})
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

func (c *APIClient) fetch(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/%s/pair/%s/%s", c.baseURL, c.apiKey, from, to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var body pairRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode rate response: %w", err)
	}

	if body.Result != "success" {
		return 0, fmt.Errorf("rate API error: %s", body.ErrorType)
	}
	if body.ConversionRate <= 0 {
		return 0, fmt.Errorf("rate API returned non-positive rate %f", body.ConversionRate)
	}

	log.Info().Str("from", from).Str("to", to).Float64("rate", body.ConversionRate).Msg("Fetched live rate")
	return body.ConversionRate, nil
}
