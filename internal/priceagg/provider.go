// Package priceagg implements PriceAggregator: a priority-ordered list of
// gold/forex spot-price providers queried in turn until one returns a
// validated quote, with 15-minute internal caching and a final
// literal-placeholder fallback when every provider and the cache are empty.
// Grounded on original_source/gold_bot/gold_price.py's GoldPriceManager.
package priceagg

import (
	"context"
	"io"
	"net/http"
	"time"
)

// ParseContract names the three response shapes providers return, mirroring
// the original's per-API parsers.
type ParseContract string

const (
	// ContractSpotPrice is a bare {"price": N} spot quote (api_ninjas-style);
	// change/ask/bid/high/low are estimated around the spot price.
	ContractSpotPrice ParseContract = "spot_price"
	// ContractInvertedRate returns 1/price under a currency-rate key (the
	// metals-api/metalpriceapi "XAU" inversion quirk).
	ContractInvertedRate ParseContract = "inverted_rate"
	// ContractVendorQuote is a full vendor quote list with regular-market
	// fields (the yahoo-finance-style shape).
	ContractVendorQuote ParseContract = "vendor_quote"
)

// Provider is one configured upstream spot-price source.
type Provider struct {
	Name        string
	Description string
	URL         string
	APIKey      string
	Priority    int
	Contract    ParseContract
	Timeout     time.Duration
	httpClient  *http.Client
}

// NewProvider builds a Provider with its own bounded HTTP client, mirroring
// the teacher's provider clients (providers/anthropic/provider.go), which
// each own a *http.Client rather than sharing a package-level default.
func NewProvider(name, description, url, apiKey string, priority int, contract ParseContract, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		Name:        name,
		Description: description,
		URL:         url,
		APIKey:      apiKey,
		Priority:    priority,
		Contract:    contract,
		Timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// fetch performs the HTTP GET and classifies the response by status code,
// matching the original's enhanced status-code error messages (401/429/403/404).
func (p *Provider) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Message: "request build failed", Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; gold-analysis-service/1.0)")
	if p.APIKey != "" {
		req.Header.Set("X-Api-Key", p.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Message: "network error", Cause: err, Retryable: true}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to body read below
	case http.StatusUnauthorized:
		return nil, &FetchError{Provider: p.Name, Message: "invalid API key (401)"}
	case http.StatusTooManyRequests:
		return nil, &FetchError{Provider: p.Name, Message: "rate limit exceeded (429)", Retryable: true}
	case http.StatusForbidden:
		return nil, &FetchError{Provider: p.Name, Message: "access forbidden (403)"}
	case http.StatusNotFound:
		return nil, &FetchError{Provider: p.Name, Message: "endpoint not found (404)"}
	default:
		return nil, &FetchError{Provider: p.Name, Message: "unexpected HTTP status", Retryable: true}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Provider: p.Name, Message: "read body failed", Cause: err, Retryable: true}
	}
	return body, nil
}

// FetchError wraps a provider-specific failure.
type FetchError struct {
	Provider  string
	Message   string
	Cause     error
	Retryable bool
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *FetchError) Unwrap() error { return e.Cause }
