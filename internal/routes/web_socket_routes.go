package routes

import (
	"github.com/gin-gonic/gin"

	"school_tracker/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, ctl *controllers.Controller) {
	wsRoutes := r.Group("/ws", authenticated(ctl)...)
	{
		wsRoutes.GET("/tracking", ctl.HandleTrackingWebSocket)
	}
}
