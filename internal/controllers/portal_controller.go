package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"school_tracker/internal/apiclient"
	"school_tracker/internal/models"
	"school_tracker/internal/tracking"
)

// portalBuses resolves which buses a portal user may watch: a parent's
// children's buses, or the bus a driver or assistant crews. Admins get nil,
// meaning the whole fleet.
func portalBuses(ctx context.Context, api *apiclient.Client, role string, userID models.ID) (map[string]bool, []models.Student, error) {
	ids := make(map[string]bool)
	switch role {
	case models.RoleAdmin:
		return nil, nil, nil

	case models.RoleParent:
		students, err := api.Students().List(ctx, nil)
		if err != nil {
			return nil, nil, err
		}
		var children []models.Student
		for _, s := range students {
			if s.ParentID != userID {
				continue
			}
			children = append(children, s)
			if s.BusID != "" {
				ids[s.BusID.String()] = true
			}
		}
		return ids, children, nil

	case models.RoleDriver, models.RoleAssistant:
		buses, err := api.ListBuses(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, b := range buses {
			if crewOf(b, role) == userID {
				ids[b.ID.String()] = true
			}
		}
		return ids, nil, nil
	}
	return ids, nil, nil
}

func crewOf(b models.Bus, role string) models.ID {
	if role == models.RoleDriver {
		return b.DriverID
	}
	return b.AssistantID
}

func (ctl *Controller) portalView(c *gin.Context) (tracking.Snapshot, []models.Student, bool) {
	user := userFrom(c)
	role := sessionFrom(c).Role
	ids, children, err := portalBuses(c.Request.Context(), apiFrom(c), role, user.ID)
	if err != nil {
		respondAPIError(c, err, "bus")
		return tracking.Snapshot{}, nil, false
	}
	snap := ctl.Tracker.Current()
	if ids != nil {
		snap = snap.Filter(func(b models.Bus) bool { return ids[b.ID.String()] })
	}
	return snap, children, true
}

// ParentBuses lists the parent's children and the live state of their buses.
func (ctl *Controller) ParentBuses(c *gin.Context) {
	snap, children, ok := ctl.portalView(c)
	if !ok {
		return
	}
	if children == nil {
		children = []models.Student{}
	}
	c.JSON(http.StatusOK, gin.H{
		"students":   children,
		"vehicles":   snap.Vehicles,
		"fetched_at": snap.FetchedAt,
	})
}

// CrewBus returns the bus crewed by the signed-in driver or assistant.
func (ctl *Controller) CrewBus(c *gin.Context) {
	snap, _, ok := ctl.portalView(c)
	if !ok {
		return
	}
	if len(snap.Vehicles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no bus assigned"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vehicle":    snap.Vehicles[0],
		"fetched_at": snap.FetchedAt,
	})
}

// RaisePanic forwards a crew member's panic alert, stamped with the bus's
// last live position when there is one.
func (ctl *Controller) RaisePanic(c *gin.Context) {
	var body struct {
		Message string `json:"message" binding:"max=480"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, _, ok := ctl.portalView(c)
	if !ok {
		return
	}
	if len(snap.Vehicles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no bus assigned"})
		return
	}

	v := snap.Vehicles[0]
	user := userFrom(c)
	alert := models.PanicAlert{
		BusID:    v.Bus.ID,
		RaisedBy: user.ID,
		Message:  body.Message,
		RaisedAt: ctl.now().UTC(),
	}
	if v.Position != nil && !v.Position.Fallback {
		alert.Latitude = models.Num(v.Position.Lat)
		alert.Longitude = models.Num(v.Position.Lng)
	}

	if err := apiFrom(c).RaisePanic(c.Request.Context(), alert); err != nil {
		respondAPIError(c, err, "bus")
		return
	}
	logrus.WithFields(logrus.Fields{
		"bus_id":    alert.BusID,
		"raised_by": alert.RaisedBy,
	}).Warn("panic alert raised")
	c.JSON(http.StatusCreated, gin.H{"message": "alert sent", "alert": alert})
}

func (ctl *Controller) SendSMS(c *gin.Context) {
	var sms models.SMSNotification
	if err := c.ShouldBindJSON(&sms); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := apiFrom(c).SendSMS(c.Request.Context(), sms); err != nil {
		respondAPIError(c, err, "notification")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "sms queued", "recipients": len(sms.Recipients)})
}
