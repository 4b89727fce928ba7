package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"school_tracker/internal/tracking"
)

// Fleet returns the latest snapshot: every bus with its marker, if it has a
// device.
func (ctl *Controller) Fleet(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.Tracker.Current())
}

// SelectBus returns the bus's accumulated trail extended to its live
// position, snapped to roads when the map-matching service cooperates.
func (ctl *Controller) SelectBus(c *gin.Context) {
	busID := c.Param("busId")
	route, err := ctl.Tracker.Select(c.Request.Context(), busID)
	if errors.Is(err, tracking.ErrUnknownBus) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bus not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	geo, err := route.GeoJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not encode route"})
		return
	}
	vehicle, _ := ctl.Tracker.Current().Vehicle(busID)
	c.JSON(http.StatusOK, gin.H{
		"vehicle": vehicle,
		"route":   route,
		"geojson": geo,
		"trail":   ctl.Tracker.Trail(busID),
	})
}
