package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/kimata/merhist/crawl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_SpacesOutWaits(t *testing.T) {
	t.Parallel()

	p := crawl.NewPacer(50 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}

	// Burst of 1: the second and third waits each pay the full interval.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	p := crawl.NewPacer(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, p.Wait(ctx))
}
