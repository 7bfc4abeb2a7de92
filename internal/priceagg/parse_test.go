package priceagg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpotPrice(t *testing.T) {
	t.Parallel()
	q, err := parseSpotPrice("api-ninjas", []byte(`{"price": 2007.33, "timestamp": 1706000000}`))
	require.NoError(t, err)
	assert.Equal(t, 2007.33, q.Price)
	assert.Equal(t, q.Price+2.0, q.Ask)
}

func TestParseSpotPrice_RejectsZero(t *testing.T) {
	t.Parallel()
	_, err := parseSpotPrice("api-ninjas", []byte(`{"price": 0}`))
	assert.Error(t, err)
}

func TestParseInvertedRate(t *testing.T) {
	t.Parallel()
	q, err := parseInvertedRate("metals-api", []byte(`{"success": true, "rates": {"XAU": 0.0003}}`))
	require.NoError(t, err)
	assert.InDelta(t, 1.0/0.0003, q.Price, 0.001)
}

func TestParseInvertedRate_MissingXAU(t *testing.T) {
	t.Parallel()
	_, err := parseInvertedRate("metals-api", []byte(`{"success": true, "rates": {}}`))
	assert.Error(t, err)
}

func TestParseInvertedRate_FailureStatus(t *testing.T) {
	t.Parallel()
	_, err := parseInvertedRate("metals-api", []byte(`{"success": false}`))
	assert.Error(t, err)
}

func TestParseVendorQuote(t *testing.T) {
	t.Parallel()
	body := []byte(`{"quoteResponse":{"result":[{"regularMarketPrice":3321.5,"regularMarketChange":5.5,"regularMarketChangePercent":0.16}]}}`)
	q, err := parseVendorQuote("yahoo-finance", body)
	require.NoError(t, err)
	assert.Equal(t, 3321.5, q.Price)
	assert.Equal(t, 5.5, q.Change)
	assert.Equal(t, q.Price+1, q.Ask)
}

func TestParseVendorQuote_EmptyResult(t *testing.T) {
	t.Parallel()
	_, err := parseVendorQuote("yahoo-finance", []byte(`{"quoteResponse":{"result":[]}}`))
	assert.Error(t, err)
}
