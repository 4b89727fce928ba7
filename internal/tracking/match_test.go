package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_tracker/internal/models"
)

func TestPlateKey(t *testing.T) {
	assert.Equal(t, "KAA123B", PlateKey(" KAA 123B "))
	assert.Equal(t, "KAA123B", PlateKey("kaa123b"))
	assert.Equal(t, "KCD456X", PlateKey("k c d\t456x"))
	assert.Equal(t, "", PlateKey("   "))
}

func TestMatchIgnoresCaseAndWhitespace(t *testing.T) {
	buses := []models.Bus{{ID: "1", PlateNumber: "KAA 123B"}}
	reports := []models.RawLocation{{Plate: "kaa123b", DeviceID: "dev-9"}}

	got := Match(buses, reports)
	require.Contains(t, got, models.ID("1"))
	assert.Equal(t, "dev-9", got["1"].DeviceID)
}

func TestMatchBusWithoutDeviceIsAbsent(t *testing.T) {
	buses := []models.Bus{
		{ID: "1", PlateNumber: "KAA 123B"},
		{ID: "2", PlateNumber: "KBB 999Z"},
		{ID: "3", PlateNumber: ""},
	}
	reports := []models.RawLocation{{Plate: "KAA123B"}, {Plate: ""}}

	got := Match(buses, reports)
	assert.Len(t, got, 1)
	assert.NotContains(t, got, models.ID("2"))
	assert.NotContains(t, got, models.ID("3"))
}

func TestMatchFirstReportWins(t *testing.T) {
	buses := []models.Bus{{ID: "1", PlateNumber: "KAA 123B"}}
	reports := []models.RawLocation{
		{Plate: "KAA 123B", DeviceID: "first"},
		{Plate: "kaa 123b", DeviceID: "second"},
	}

	assert.Equal(t, "first", Match(buses, reports)["1"].DeviceID)
}
