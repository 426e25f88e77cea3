package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyOracle struct {
	rate float64
	err  error
}

func (o *flakyOracle) GetRate(context.Context, string, string) (float64, error) {
	return o.rate, o.err
}

func TestStaticQuotesFixedRate(t *testing.T) {
	rate, err := Static{Rate: 100_000}.GetRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, 100_000.0, rate)
}

func TestCachedServesLastGoodOnFailure(t *testing.T) {
	inner := &flakyOracle{rate: 97_500}
	cached := NewCached(inner, time.Hour)
	ctx := context.Background()

	rate, err := cached.GetRate(ctx, "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, 97_500.0, rate)

	inner.err = errors.New("oracle timeout")
	rate, err = cached.GetRate(ctx, "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, 97_500.0, rate)
}

func TestCachedPropagatesErrorWhenCold(t *testing.T) {
	inner := &flakyOracle{err: errors.New("oracle timeout")}
	cached := NewCached(inner, time.Hour)

	_, err := cached.GetRate(context.Background(), "BTC", "USD")
	require.Error(t, err)
}

func TestCachedRejectsNonPositiveRate(t *testing.T) {
	inner := &flakyOracle{rate: 0}
	cached := NewCached(inner, time.Hour)

	_, err := cached.GetRate(context.Background(), "BTC", "USD")
	require.Error(t, err)
}

func TestCachedKeysByPair(t *testing.T) {
	inner := &flakyOracle{rate: 50}
	cached := NewCached(inner, time.Hour)
	ctx := context.Background()

	_, err := cached.GetRate(ctx, "BTC", "USD")
	require.NoError(t, err)

	inner.err = errors.New("oracle timeout")
	_, err = cached.GetRate(ctx, "ETH", "USD")
	require.Error(t, err, "a different pair must not hit the BTC cache entry")
}
