package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldnightmare/goldservice/types"
)

func fixedNow() time.Time {
	return time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
}

func TestComposer_System(t *testing.T) {
	t.Parallel()
	c := New(fixedNow)
	sys := c.System()
	assert.Contains(t, sys, "2026-07-31 10:00 UTC")
	assert.Contains(t, sys, "محلل ذهب")
}

func TestPriceRequired(t *testing.T) {
	t.Parallel()
	assert.True(t, PriceRequired(types.KindQuick))
	assert.True(t, PriceRequired(types.KindDetailed))
	assert.True(t, PriceRequired(types.KindChart))
	assert.False(t, PriceRequired(types.KindNews))
	assert.True(t, PriceRequired(types.KindForecast))
}

func TestBuildContext(t *testing.T) {
	t.Parallel()
	q := &types.PriceQuote{Price: 3321.5, Change: 5.5, ChangePct: 0.16, High24h: 3330, Low24h: 3310, Source: "primary", ObservedAt: fixedNow()}
	ctx := BuildContext(q)
	assert.Contains(t, ctx, "3321.50")
	assert.Contains(t, ctx, "primary")
}

func TestBuildContext_NilQuote(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", BuildContext(nil))
}

func TestComposer_ComposeEachKind(t *testing.T) {
	t.Parallel()
	c := New(fixedNow)
	for _, kind := range []types.AnalysisKind{types.KindQuick, types.KindDetailed, types.KindChart, types.KindNews, types.KindForecast} {
		out, err := c.Compose(kind, "بيانات السوق هنا", "")
		require.NoError(t, err)
		assert.Contains(t, out, signOff)
		assert.Contains(t, out, educationalDisclaimer)
		assert.True(t, strings.Contains(out, "2026-07-31 10:00 UTC"))
	}
}

func TestComposer_ComposeUnknownKind(t *testing.T) {
	t.Parallel()
	c := New(fixedNow)
	_, err := c.Compose(types.AnalysisKind("bogus"), "", "")
	assert.Error(t, err)
}

func TestComposer_ChartIncludesExtraNotes(t *testing.T) {
	t.Parallel()
	c := New(fixedNow)
	out, err := c.Compose(types.KindChart, "ctx", "ملاحظة خاصة")
	require.NoError(t, err)
	assert.Contains(t, out, "ملاحظة خاصة")
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ctx", Fingerprint("ctx", ""))
	assert.Equal(t, "ctx\n\nextra", Fingerprint("ctx", "extra"))
}
