package marketdata

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateGateNeverExceedsCeilingInAnyWindow(t *testing.T) {
	const limit = 5
	window := time.Minute
	gate := NewRateGate(limit, window)

	start := time.Now()
	var admitted []time.Time
	for offset := time.Duration(0); offset < 5*window; offset += 250 * time.Millisecond {
		at := start.Add(offset)
		if gate.allowAt(at) {
			admitted = append(admitted, at)
		}
	}

	require.NotEmpty(t, admitted)
	for i, from := range admitted {
		inWindow := 0
		for _, at := range admitted[i:] {
			if at.Sub(from) < window {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, limit, "window starting at %s", from.Sub(start))
	}

	// the gate admits the full ceiling rather than starving callers
	assert.GreaterOrEqual(t, len(admitted), 5*limit-1)
}

func TestRateGateCeilingHoldsForUnevenLimits(t *testing.T) {
	window := time.Minute
	for _, limit := range []int{5, 7, 9, 11, 13, 30} {
		t.Run(fmt.Sprintf("%d calls per minute", limit), func(t *testing.T) {
			gate := NewRateGate(limit, window)
			assert.GreaterOrEqual(t, time.Duration(limit)*gate.Interval(), window)

			// callers queue back to back, each reserving the earliest slot
			at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
			admitted := make([]time.Time, 0, 3*limit)
			for i := 0; i < 3*limit; i++ {
				r := gate.limiter.ReserveN(at, 1)
				require.True(t, r.OK())
				at = at.Add(r.DelayFrom(at))
				admitted = append(admitted, at)
			}

			for i := 0; i+limit < len(admitted); i++ {
				span := admitted[i+limit].Sub(admitted[i])
				assert.GreaterOrEqual(t, span, window,
					"calls %d..%d fit in one window (span %s)", i, i+limit, span)
			}
		})
	}
}

func TestRateGateWaitUnderConcurrentCallers(t *testing.T) {
	const callers = 10
	gate := NewRateGate(5, 100*time.Millisecond)

	start := time.Now()
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- gate.Wait(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	elapsed := time.Since(start)

	for err := range errs {
		require.NoError(t, err)
	}
	// ten calls spaced 20ms apart need at least nine intervals
	assert.GreaterOrEqual(t, elapsed, 9*gate.Interval()-5*time.Millisecond)
}

func TestRateGateWaitHonorsContext(t *testing.T) {
	gate := NewRateGate(1, time.Hour)
	require.NoError(t, gate.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := gate.Wait(ctx)
	assert.Error(t, err)
}

func TestNewRateGateClampsInvalidInput(t *testing.T) {
	gate := NewRateGate(0, 0)
	assert.Equal(t, DefaultRateWindow+gateMargin, gate.Interval())
	assert.Equal(t, "1 calls per 1m0s", gate.String())
}
