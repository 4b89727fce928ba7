package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(lat, lng float64, at time.Time) Sample {
	return Sample{Lat: lat, Lng: lng, Timestamp: at}
}

func TestObserveSuppressesJitter(t *testing.T) {
	tr := NewTrails()
	require.True(t, tr.Observe("bus-1", sample(-1.29, 36.8, testNow)))

	// ~3m north: inside the threshold.
	assert.False(t, tr.Observe("bus-1", sample(-1.29+0.00003, 36.8, testNow.Add(5*time.Second))))
	assert.Len(t, tr.Trail("bus-1", testNow), 1)

	// ~11m east: beyond it.
	assert.True(t, tr.Observe("bus-1", sample(-1.29, 36.8+0.0001, testNow.Add(10*time.Second))))
	assert.Len(t, tr.Trail("bus-1", testNow.Add(10*time.Second)), 2)
}

func TestObservePurgesBeforeDeciding(t *testing.T) {
	tr := NewTrails()
	tr.Observe("bus-1", sample(-1.29, 36.8, testNow))

	// Same spot a day and an hour later: the old sample is purged first, so
	// the new one seeds the trail instead of being dropped as jitter.
	later := testNow.Add(25 * time.Hour)
	assert.True(t, tr.Observe("bus-1", sample(-1.29, 36.8, later)))

	trail := tr.Trail("bus-1", later)
	require.Len(t, trail, 1)
	assert.Equal(t, later, trail[0].Timestamp)
}

func TestObserveKeepsWindow(t *testing.T) {
	tr := NewTrails()
	for i := 0; i < 30; i++ {
		tr.Observe("bus-1", sample(-1.29+float64(i)*0.001, 36.8, testNow.Add(time.Duration(i)*time.Hour)))
	}
	trail := tr.Trail("bus-1", testNow.Add(29*time.Hour))
	require.NotEmpty(t, trail)
	last := trail[len(trail)-1].Timestamp
	for _, s := range trail {
		assert.False(t, s.Timestamp.Before(last.Add(-TrailWindow)))
	}
	assert.Len(t, trail, 25)
}

func TestObserveRejectsOutOfOrderSamples(t *testing.T) {
	tr := NewTrails()
	tr.Observe("bus-1", sample(-1.29, 36.8, testNow))
	assert.False(t, tr.Observe("bus-1", sample(-1.30, 36.9, testNow.Add(-time.Minute))))
	assert.Len(t, tr.Trail("bus-1", testNow), 1)
}

func TestTrailsAreIndependentAndSurviveSwitching(t *testing.T) {
	tr := NewTrails()
	tr.Observe("bus-1", sample(-1.29, 36.8, testNow))
	tr.Observe("bus-1", sample(-1.28, 36.8, testNow.Add(time.Minute)))
	tr.Observe("bus-2", sample(-1.10, 37.0, testNow))

	// Switch to bus-2 and back: bus-1 history is intact and ends at "now".
	got := tr.Select("bus-2", sample(-1.11, 37.0, testNow.Add(2*time.Minute)), testNow.Add(2*time.Minute))
	assert.Len(t, got, 2)

	got = tr.Select("bus-1", sample(-1.27, 36.8, testNow.Add(3*time.Minute)), testNow.Add(3*time.Minute))
	require.Len(t, got, 3)
	assert.Equal(t, testNow.Add(3*time.Minute), got[2].Timestamp)
}

func TestSelectSeedsEmptyTrail(t *testing.T) {
	tr := NewTrails()
	got := tr.Select("bus-9", sample(-1.29, 36.8, testNow), testNow)
	assert.Len(t, got, 1)
}

func TestTrailReadPurgesAgainstNow(t *testing.T) {
	tr := NewTrails()
	tr.Observe("bus-1", sample(-1.29, 36.8, testNow))
	tr.Observe("bus-1", sample(-1.28, 36.8, testNow.Add(2*time.Hour)))

	// No new samples arrive, but reads still honour the window.
	got := tr.Trail("bus-1", testNow.Add(25*time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, testNow.Add(2*time.Hour), got[0].Timestamp)

	assert.Empty(t, tr.Recent("bus-1", SnapPoints, testNow.Add(27*time.Hour)))
}

func TestSelectDropsStaleHistoryBeforeLiveFix(t *testing.T) {
	tr := NewTrails()
	tr.Observe("bus-1", sample(-1.29, 36.8, testNow))

	// The device clock lags, but the trail is read as of the server's now.
	now := testNow.Add(30 * time.Hour)
	got := tr.Select("bus-1", sample(-1.20, 36.8, testNow.Add(time.Hour)), now)
	assert.Empty(t, got)
}

func TestRecent(t *testing.T) {
	var trail []Sample
	for i := 0; i < 25; i++ {
		trail = append(trail, sample(float64(i), 0, testNow))
	}
	got := Recent(trail, SnapPoints)
	require.Len(t, got, SnapPoints)
	assert.Equal(t, 5.0, got[0].Lat)
	assert.Len(t, Recent(trail[:3], SnapPoints), 3)
}
