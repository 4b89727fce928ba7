package routes

import (
	"github.com/gin-gonic/gin"

	"school_tracker/internal/controllers"
)

func AuthRoutes(r *gin.Engine, ctl *controllers.Controller) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", ctl.Login)
		auth.POST("/forgot-password", ctl.ForgotPassword)
	}

	session := r.Group("/auth", authenticated(ctl)...)
	{
		session.POST("/logout", ctl.Logout)
		session.GET("/me", ctl.Me)
		session.PUT("/preferences", ctl.UpdatePreferences)
	}
}
