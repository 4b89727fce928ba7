package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawLocationUnmarshalAliases(t *testing.T) {
	payload := `{
		"deviceId": 4411,
		"plate": "KAA 123B",
		"lat": "-1.2921",
		"lon": 36.8219,
		"course": "270",
		"speed": null,
		"status": "MOVING",
		"gpsTime": "2024-03-01T07:15:00"
	}`

	var rl RawLocation
	require.NoError(t, json.Unmarshal([]byte(payload), &rl))

	assert.Equal(t, "4411", rl.DeviceID)
	assert.Equal(t, "KAA 123B", rl.Plate)
	assert.True(t, rl.Latitude.Valid)
	assert.InDelta(t, -1.2921, rl.Latitude.Value, 1e-9)
	assert.InDelta(t, 36.8219, rl.Longitude.Value, 1e-9)
	assert.Equal(t, 270.0, rl.Direction.Or(0))
	assert.False(t, rl.Speed.Valid)
	assert.Equal(t, "MOVING", rl.Movement)
	assert.Equal(t, time.Date(2024, 3, 1, 7, 15, 0, 0, time.UTC), rl.Timestamp)
}

func TestRawLocationGarbageCoordinates(t *testing.T) {
	var rl RawLocation
	require.NoError(t, json.Unmarshal([]byte(`{"plateNumber":"KBC 1","latitude":"n/a","longitude":""}`), &rl))

	assert.False(t, rl.Latitude.Valid)
	assert.False(t, rl.Longitude.Valid)
	assert.True(t, rl.Timestamp.IsZero())
}

func TestParseTimestampUnix(t *testing.T) {
	sec, err := ParseTimestamp("1709277300")
	require.NoError(t, err)
	ms, err := ParseTimestamp("1709277300000")
	require.NoError(t, err)

	assert.Equal(t, sec, ms)
	assert.Equal(t, 2024, sec.Year())
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var out struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 17, "b": "bus-17"}`), &out))
	assert.Equal(t, ID("17"), out.A)
	assert.Equal(t, ID("bus-17"), out.B)
}
