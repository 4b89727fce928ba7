package tracking

import (
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"school_tracker/internal/models"
)

// PlateKey normalizes a plate for joining: whitespace removed, uppercased.
func PlateKey(plate string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, plate)
}

// Match joins device reports to buses by plate. Buses without a report are
// absent from the result. When several reports share a plate the first one
// wins.
func Match(buses []models.Bus, reports []models.RawLocation) map[models.ID]models.RawLocation {
	byPlate := make(map[string]models.RawLocation, len(reports))
	for _, rep := range reports {
		key := PlateKey(rep.Plate)
		if key == "" {
			continue
		}
		if _, dup := byPlate[key]; dup {
			logrus.WithFields(logrus.Fields{
				"plate":     key,
				"device_id": rep.DeviceID,
			}).Debug("duplicate device report for plate, keeping first")
			continue
		}
		byPlate[key] = rep
	}

	out := make(map[models.ID]models.RawLocation, len(buses))
	for _, bus := range buses {
		key := PlateKey(bus.PlateNumber)
		if key == "" {
			continue
		}
		if rep, ok := byPlate[key]; ok {
			out[bus.ID] = rep
		}
	}
	return out
}
