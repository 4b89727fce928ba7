package routes

import (
	"io"
	"net/http"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"school_tracker/internal/controllers"
)

// MockPrefix is where the in-process mock backend is mounted.
const MockPrefix = "/mock-api"

// SetupRouter wires every route group. accessLog receives the request log;
// mockBackend is mounted under MockPrefix when non-nil.
func SetupRouter(ctl *controllers.Controller, accessLog io.Writer, mockBackend http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger(
		ginlog.WithWriter(accessLog),
		ginlog.WithSkipPath([]string{"/healthz"}),
	))

	r.GET("/healthz", func(c *gin.Context) {
		snap := ctl.Tracker.Current()
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"seq":        snap.Seq,
			"fetched_at": snap.FetchedAt,
			"ws_clients": ctl.Hub.ClientCount(),
		})
	})

	if mockBackend != nil {
		r.Any(MockPrefix+"/*path", gin.WrapH(http.StripPrefix(MockPrefix, mockBackend)))
	}

	AuthRoutes(r, ctl)
	AdminRoutes(r, ctl)
	PortalRoutes(r, ctl)
	WebSocketRoutes(r, ctl)

	return r
}

// authenticated is the chain every signed-in route starts with.
func authenticated(ctl *controllers.Controller) []gin.HandlerFunc {
	return []gin.HandlerFunc{ctl.Tokens.RequireAuth(), ctl.LoadSession()}
}
