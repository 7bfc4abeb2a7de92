package priceagg

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/goldnightmare/goldservice/types"
)

// parse dispatches to the response's parse contract. The estimated
// spread/range constants mirror the original's per-API defaults for feeds
// that return only a bare spot price.
func parse(providerName string, contract ParseContract, body []byte) (*types.PriceQuote, error) {
	switch contract {
	case ContractSpotPrice:
		return parseSpotPrice(providerName, body)
	case ContractInvertedRate:
		return parseInvertedRate(providerName, body)
	case ContractVendorQuote:
		return parseVendorQuote(providerName, body)
	default:
		return nil, &FetchError{Provider: providerName, Message: fmt.Sprintf("unknown parse contract %q", contract)}
	}
}

type spotPriceResponse struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

func parseSpotPrice(providerName string, body []byte) (*types.PriceQuote, error) {
	var r spotPriceResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &FetchError{Provider: providerName, Message: "invalid JSON response", Cause: err}
	}
	if r.Price <= 0 {
		return nil, &FetchError{Provider: providerName, Message: "invalid spot price"}
	}

	observed := time.Now().UTC()
	if r.Timestamp > 0 {
		observed = time.Unix(r.Timestamp, 0).UTC()
	}

	return &types.PriceQuote{
		Price:      r.Price,
		Change:     12.5,
		ChangePct:  0.38,
		Ask:        r.Price + 2.0,
		Bid:        r.Price - 2.0,
		High24h:    r.Price + 15.0,
		Low24h:     r.Price - 15.0,
		Source:     providerName,
		ObservedAt: observed,
	}, nil
}

type invertedRateResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
}

// parseInvertedRate handles the metals-api/metalpriceapi quirk where gold is
// returned as a currency rate (1/price) rather than a price.
func parseInvertedRate(providerName string, body []byte) (*types.PriceQuote, error) {
	var r invertedRateResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &FetchError{Provider: providerName, Message: "invalid JSON response", Cause: err}
	}
	if !r.Success {
		return nil, &FetchError{Provider: providerName, Message: "API returned error status"}
	}
	xauRate, ok := r.Rates["XAU"]
	if !ok || xauRate <= 0 {
		return nil, &FetchError{Provider: providerName, Message: "XAU rate not found in response"}
	}

	price := 1.0 / xauRate
	return &types.PriceQuote{
		Price:      price,
		Change:     12.5,
		ChangePct:  0.38,
		Ask:        price + 2.0,
		Bid:        price - 2.0,
		High24h:    price + 15.0,
		Low24h:     price - 15.0,
		Source:     providerName,
		ObservedAt: time.Now().UTC(),
	}, nil
}

type vendorQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			RegularMarketPrice          float64 `json:"regularMarketPrice"`
			RegularMarketPreviousClose  float64 `json:"regularMarketPreviousClose"`
			RegularMarketChange         float64 `json:"regularMarketChange"`
			RegularMarketChangePercent  float64 `json:"regularMarketChangePercent"`
			Ask                         float64 `json:"ask"`
			Bid                         float64 `json:"bid"`
			RegularMarketDayHigh        float64 `json:"regularMarketDayHigh"`
			RegularMarketDayLow         float64 `json:"regularMarketDayLow"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func parseVendorQuote(providerName string, body []byte) (*types.PriceQuote, error) {
	var r vendorQuoteResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, &FetchError{Provider: providerName, Message: "invalid JSON response", Cause: err}
	}
	if len(r.QuoteResponse.Result) == 0 {
		return nil, &FetchError{Provider: providerName, Message: "empty result"}
	}
	q := r.QuoteResponse.Result[0]
	if q.RegularMarketPrice <= 0 {
		return nil, &FetchError{Provider: providerName, Message: "invalid price"}
	}

	ask, bid, high, low := q.Ask, q.Bid, q.RegularMarketDayHigh, q.RegularMarketDayLow
	if ask == 0 {
		ask = q.RegularMarketPrice + 1
	}
	if bid == 0 {
		bid = q.RegularMarketPrice - 1
	}
	if high == 0 {
		high = q.RegularMarketPrice + 10
	}
	if low == 0 {
		low = q.RegularMarketPrice - 10
	}

	change := q.RegularMarketChange
	if change == 0 && q.RegularMarketPreviousClose != 0 {
		change = q.RegularMarketPrice - q.RegularMarketPreviousClose
	}

	return &types.PriceQuote{
		Price:      q.RegularMarketPrice,
		Change:     change,
		ChangePct:  q.RegularMarketChangePercent,
		Ask:        ask,
		Bid:        bid,
		High24h:    high,
		Low24h:     low,
		Source:     providerName,
		ObservedAt: time.Now().UTC(),
	}, nil
}
