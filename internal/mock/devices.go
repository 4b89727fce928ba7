package mock

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type device struct {
	id        string
	plate     string
	lat, lng  float64
	direction float64
	speed     float64
	moving    bool
	blank     bool
}

// report renders the device the way a vendor feed would; blank devices send
// null and empty coordinates.
func (d *device) report(now time.Time) gin.H {
	out := gin.H{
		"deviceId":      d.id,
		"plateNumber":   d.plate,
		"direction":     d.direction,
		"speed":         d.speed,
		"movementState": "STOPPED",
		"timestamp":     now.UTC().Format(time.RFC3339),
	}
	if d.moving {
		out["movementState"] = "MOVING"
	}
	if d.blank {
		out["latitude"] = nil
		out["longitude"] = ""
	} else {
		out["latitude"] = d.lat
		out["longitude"] = d.lng
	}
	return out
}

// advance nudges moving devices along roughly their heading.
func (b *Backend) advance() {
	for _, d := range b.devices {
		if !d.moving || d.blank {
			continue
		}
		d.lat += (b.rng.Float64() - 0.3) * 0.0006
		d.lng += (b.rng.Float64() - 0.3) * 0.0006
		d.speed = 20 + b.rng.Float64()*25
		d.direction = float64(int(d.direction+b.rng.Float64()*20-10+360) % 360)
	}
}

func (b *Backend) deviceLocations(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	now := b.now()
	out := make([]gin.H, 0, len(b.devices))
	for _, d := range b.devices {
		out = append(out, d.report(now))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
