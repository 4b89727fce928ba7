package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"school_tracker/internal/models"
)

var testNow = time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

func raw(lat, lng models.Number) models.RawLocation {
	return models.RawLocation{Plate: "KAA 123B", Latitude: lat, Longitude: lng}
}

func TestNormalizeMissingCoordinates(t *testing.T) {
	region := DefaultRegion()
	cases := map[string]models.RawLocation{
		"both missing": raw(models.Number{}, models.Number{}),
		"lat missing":  raw(models.Number{}, models.Num(36.8)),
		"lng missing":  raw(models.Num(-1.29), models.Number{}),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			pos := region.Normalize(in, testNow)
			assert.True(t, pos.Fallback)
			assert.Equal(t, region.Fallback, pos.Point)
			assert.Equal(t, Unknown, pos.Movement)
		})
	}
}

func TestNormalizeOutOfGlobalBounds(t *testing.T) {
	region := DefaultRegion()
	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"lat beyond 90", 120, 36.8},
		{"lng beyond 180", -1.29, 250},
		{"both huge", -400, 999},
		{"swapped but corrupt", 200, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pos := region.Normalize(raw(models.Num(tc.lat), models.Num(tc.lng)), testNow)
			assert.True(t, pos.Fallback)
			assert.Equal(t, region.Fallback, pos.Point)
		})
	}
}

func TestNormalizeSwapsLatLng(t *testing.T) {
	pos := DefaultRegion().Normalize(raw(models.Num(36.8), models.Num(-1.29)), testNow)

	assert.False(t, pos.Fallback)
	assert.InDelta(t, -1.29, pos.Lat, 1e-9)
	assert.InDelta(t, 36.8, pos.Lng, 1e-9)
}

func TestNormalizeValidInRegion(t *testing.T) {
	pos := DefaultRegion().Normalize(raw(models.Num(-1.3032), models.Num(36.7073)), testNow)

	assert.False(t, pos.Fallback)
	assert.Equal(t, Point{Lat: -1.3032, Lng: 36.7073}, pos.Point)
	assert.Equal(t, testNow, pos.Timestamp)
}

func TestNormalizeOutsideOperatingRegion(t *testing.T) {
	// Kampala is a real fix but outside the Kenyan operating box.
	pos := DefaultRegion().Normalize(raw(models.Num(0.3476), models.Num(32.5825)), testNow)

	assert.True(t, pos.Fallback)
	assert.Equal(t, DefaultRegion().Fallback, pos.Point)
}

func TestNormalizeCoercesDirectionAndSpeed(t *testing.T) {
	in := raw(models.Num(-1.29), models.Num(36.8))
	pos := DefaultRegion().Normalize(in, testNow)
	assert.Zero(t, pos.Direction)
	assert.Zero(t, pos.Speed)
	assert.Equal(t, Standing, pos.Movement)

	in.Direction = models.Num(90)
	in.Speed = models.Num(32.5)
	pos = DefaultRegion().Normalize(in, testNow)
	assert.Equal(t, 90.0, pos.Direction)
	assert.Equal(t, 32.5, pos.Speed)
	assert.Equal(t, Moving, pos.Movement)
}

func TestNormalizeReportedMovementWins(t *testing.T) {
	in := raw(models.Num(-1.29), models.Num(36.8))
	in.Speed = models.Num(40)
	in.Movement = "parked"

	assert.Equal(t, Standing, DefaultRegion().Normalize(in, testNow).Movement)
}

func TestNormalizeKeepsDeviceTimestamp(t *testing.T) {
	in := raw(models.Num(-1.29), models.Num(36.8))
	in.Timestamp = testNow.Add(-time.Minute)

	assert.Equal(t, testNow.Add(-time.Minute), DefaultRegion().Normalize(in, testNow).Timestamp)
}

func TestNormalizeClampsFutureTimestamp(t *testing.T) {
	in := raw(models.Num(-1.29), models.Num(36.8))
	in.Timestamp = testNow.Add(3 * time.Hour)

	assert.Equal(t, testNow, DefaultRegion().Normalize(in, testNow).Timestamp)
}
