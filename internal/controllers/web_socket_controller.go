package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"school_tracker/internal/models"
	"school_tracker/internal/tracking"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Message types pushed to clients.
const (
	MsgSnapshot   = "snapshot"
	MsgRoute      = "route"
	MsgRouteFrame = "route_frame"
	MsgError      = "error"
)

type wsMessage struct {
	Type     string             `json:"type"`
	Snapshot *tracking.Snapshot `json:"snapshot,omitempty"`
	Route    *tracking.Route    `json:"route,omitempty"`
	GeoJSON  json.RawMessage    `json:"geojson,omitempty"`
	Frame    *tracking.Frame    `json:"frame,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// inbound is what clients send: {"type":"select","bus_id":"3"} or
// {"type":"deselect"}.
type inbound struct {
	Type  string    `json:"type"`
	BusID models.ID `json:"bus_id"`
}

// LocationHub fans tracker snapshots out to WebSocket clients. Fleet clients
// get every cycle; portal clients get their own buses at the portal cadence.
type LocationHub struct {
	tracker        *tracking.Tracker
	portalInterval time.Duration
	animationTick  time.Duration
	upgrader       websocket.Upgrader
	now            func() time.Time

	mu      sync.Mutex
	clients map[*wsClient]bool
}

// NewLocationHub creates the hub and subscribes it to tracker.
func NewLocationHub(tracker *tracking.Tracker, portalInterval, animationTick time.Duration, origins []string) *LocationHub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	hub := &LocationHub{
		tracker:        tracker,
		portalInterval: portalInterval,
		animationTick:  animationTick,
		now:            time.Now,
		clients:        make(map[*wsClient]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
	tracker.Subscribe(hub.onSnapshot)
	return hub
}

// ClientCount is the number of connected clients.
func (h *LocationHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *LocationHub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	logrus.WithFields(logrus.Fields{
		"user_id":  c.userID,
		"role":     c.role,
		"conn_ptr": fmt.Sprintf("%p", c.conn),
	}).Info("Client registered with LocationHub.")
}

func (h *LocationHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	logrus.WithFields(logrus.Fields{
		"user_id":  c.userID,
		"role":     c.role,
		"conn_ptr": fmt.Sprintf("%p", c.conn),
	}).Info("Client unregistered from LocationHub.")
}

// onSnapshot runs on the poller's apply path and must not block.
func (h *LocationHub) onSnapshot(snap tracking.Snapshot, grown map[string]bool) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	now := h.now()
	for _, c := range clients {
		c.mu.Lock()
		due := c.buses == nil || c.lastPush.IsZero() || now.Sub(c.lastPush) >= h.portalInterval
		if due {
			c.lastPush = now
		}
		selected := c.selected
		c.mu.Unlock()

		if due {
			view := c.view(snap)
			c.enqueue(wsMessage{Type: MsgSnapshot, Snapshot: &view})
		}
		if selected != "" && grown[selected] {
			go c.render(selected)
		}
	}
}

// Serve runs a client until its connection drops. initialBus, when set, is
// selected straight away.
func (h *LocationHub) Serve(conn *websocket.Conn, userID, role string, buses map[string]bool, initialBus string) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		hub:      h,
		conn:     conn,
		send:     make(chan wsMessage, sendBuffer),
		userID:   userID,
		role:     role,
		buses:    buses,
		ctx:      ctx,
		cancel:   cancel,
		animator: tracking.NewAnimator(h.animationTick),
	}

	h.register(c)
	defer func() {
		h.unregister(c)
		c.close()
	}()

	go c.writePump()

	current := c.view(h.tracker.Current())
	c.mu.Lock()
	c.lastPush = h.now()
	c.mu.Unlock()
	c.enqueue(wsMessage{Type: MsgSnapshot, Snapshot: &current})

	if initialBus != "" {
		c.selectBus(initialBus)
	}
	c.readPump()
}

type wsClient struct {
	hub      *LocationHub
	conn     *websocket.Conn
	send     chan wsMessage
	userID   string
	role     string
	buses    map[string]bool // nil: whole fleet
	ctx      context.Context
	cancel   context.CancelFunc
	animator *tracking.Animator

	mu        sync.Mutex
	lastPush  time.Time
	selected  string
	unwatch   func()
	renderGen uint64
}

func (c *wsClient) allowed(busID string) bool {
	return c.buses == nil || c.buses[busID]
}

func (c *wsClient) view(s tracking.Snapshot) tracking.Snapshot {
	if c.buses == nil {
		return s
	}
	return s.Filter(func(b models.Bus) bool { return c.buses[b.ID.String()] })
}

// enqueue never blocks; a client that cannot keep up loses messages.
func (c *wsClient) enqueue(m wsMessage) {
	select {
	case <-c.ctx.Done():
	case c.send <- m:
	default:
		logrus.WithFields(logrus.Fields{
			"user_id": c.userID,
			"type":    m.Type,
		}).Warn("WebSocket send buffer full, dropping message.")
	}
}

func (c *wsClient) selectBus(busID string) {
	if busID != "" && !c.allowed(busID) {
		c.enqueue(wsMessage{Type: MsgError, Error: "bus not available"})
		return
	}

	c.mu.Lock()
	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
	c.selected = busID
	if busID != "" {
		c.unwatch = c.hub.tracker.Watch(busID)
	}
	c.mu.Unlock()

	if busID == "" {
		c.animator.Stop()
		return
	}
	go c.render(busID)
}

// render builds the selected bus's route, sends it whole and then replays it
// progressively. A later render supersedes this one.
func (c *wsClient) render(busID string) {
	c.mu.Lock()
	c.renderGen++
	gen := c.renderGen
	c.mu.Unlock()

	route, err := c.hub.tracker.Select(c.ctx, busID)
	if errors.Is(err, tracking.ErrUnknownBus) {
		c.enqueue(wsMessage{Type: MsgError, Error: "bus not found"})
		return
	}
	if err != nil {
		logrus.WithError(err).WithField("bus_id", busID).Warn("route render failed")
		return
	}

	c.mu.Lock()
	current := c.selected == busID && c.renderGen == gen
	c.mu.Unlock()
	if !current || c.ctx.Err() != nil {
		return
	}

	geo, err := route.GeoJSON()
	if err != nil {
		logrus.WithError(err).WithField("bus_id", busID).Warn("route geojson encode failed")
	}
	c.enqueue(wsMessage{Type: MsgRoute, Route: &route, GeoJSON: geo})

	err = c.animator.Play(c.ctx, route, func(f tracking.Frame) {
		c.enqueue(wsMessage{Type: MsgRouteFrame, Frame: &f})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.WithError(err).WithField("bus_id", busID).Debug("route animation stopped")
	}
}

func (c *wsClient) readPump() {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithField("user_id", c.userID).Warn("Error reading WebSocket message.")
			}
			return
		}
		switch msg.Type {
		case "select":
			c.selectBus(msg.BusID.String())
		case "deselect":
			c.selectBus("")
		default:
			logrus.WithFields(logrus.Fields{
				"user_id": c.userID,
				"type":    msg.Type,
			}).Warn("Client sent unexpected message. Ignoring.")
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				logrus.WithError(err).WithField("user_id", c.userID).Warn("Failed to send message to client.")
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	if c.unwatch != nil {
		c.unwatch()
		c.unwatch = nil
	}
	c.selected = ""
	c.mu.Unlock()

	c.animator.Stop()
	c.cancel()
	c.conn.Close()
}

// HandleTrackingWebSocket upgrades an authenticated request and streams
// snapshots and routes. Portal users only see their own buses.
func (ctl *Controller) HandleTrackingWebSocket(c *gin.Context) {
	user := userFrom(c)
	role := sessionFrom(c).Role

	buses, _, err := portalBuses(c.Request.Context(), apiFrom(c), role, user.ID)
	if err != nil {
		respondAPIError(c, err, "bus")
		return
	}

	conn, err := ctl.Hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	ctl.Hub.Serve(conn, user.ID.String(), role, buses, c.Query("bus_id"))
}
