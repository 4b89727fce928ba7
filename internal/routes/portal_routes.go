package routes

import (
	"github.com/gin-gonic/gin"

	"school_tracker/internal/controllers"
	"school_tracker/internal/middleware"
	"school_tracker/internal/models"
)

func PortalRoutes(r *gin.Engine, ctl *controllers.Controller) {
	parent := r.Group("/parent", authenticated(ctl)...)
	parent.Use(middleware.RequireRole(models.RoleParent))
	{
		parent.GET("/buses", ctl.ParentBuses)
	}

	driver := r.Group("/driver", authenticated(ctl)...)
	driver.Use(middleware.RequireRole(models.RoleDriver))
	{
		driver.GET("/bus", ctl.CrewBus)
	}

	assistant := r.Group("/assistant", authenticated(ctl)...)
	assistant.Use(middleware.RequireRole(models.RoleAssistant))
	{
		assistant.GET("/bus", ctl.CrewBus)
	}

	r.POST("/panic", append(authenticated(ctl),
		middleware.RequireRole(models.RoleDriver, models.RoleAssistant),
		ctl.RaisePanic)...)
}
