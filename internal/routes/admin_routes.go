package routes

import (
	"github.com/gin-gonic/gin"

	"school_tracker/internal/controllers"
	"school_tracker/internal/crud"
	"school_tracker/internal/middleware"
	"school_tracker/internal/models"
)

func AdminRoutes(r *gin.Engine, ctl *controllers.Controller) {
	admin := r.Group("/admin", authenticated(ctl)...)
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/fleet", ctl.Fleet)
		admin.GET("/fleet/:busId/route", ctl.SelectBus)
		admin.POST("/sms", ctl.SendSMS)
	}

	registerEntity(admin, "/buses", controllers.BusEntity())
	registerEntity(admin, "/students", controllers.StudentEntity())
	registerEntity(admin, "/manifests", controllers.ManifestEntity())
	registerEntity(admin, "/drivers", controllers.CrewEntity("driver", "DRIVER"))
	registerEntity(admin, "/assistants", controllers.CrewEntity("assistant", "ASSISTANT"))
	registerEntity(admin, "/parents", controllers.ParentEntity())
	registerEntity(admin, "/schools", controllers.SchoolEntity())
}

func registerEntity[T crud.Record](g *gin.RouterGroup, path string, e controllers.Entity[T]) {
	g.GET(path, e.List)
	g.GET(path+"/:id", e.Get)
	g.POST(path, e.Create)
	g.PUT(path+"/:id", e.Update)
	g.DELETE(path+"/:id", e.Delete)
}
