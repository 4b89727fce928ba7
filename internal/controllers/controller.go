package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"school_tracker/internal/apiclient"
	"school_tracker/internal/middleware"
	"school_tracker/internal/models"
	"school_tracker/internal/session"
	"school_tracker/internal/tracking"
)

const (
	ctxSession = "session"
	ctxAPI     = "api"
)

// Controller carries the dependencies shared by every handler.
type Controller struct {
	API      *apiclient.Client
	Mock     *apiclient.Client // nil unless the mock backend is mounted
	Sessions session.Store
	Tokens   *middleware.TokenIssuer
	Tracker  *tracking.Tracker
	Hub      *LocationHub

	// AllowBaseURL reports whether a session may point at another API
	// deployment.
	AllowBaseURL func(string) bool
	Now          func() time.Time
}

func (ctl *Controller) now() time.Time {
	if ctl.Now != nil {
		return ctl.Now()
	}
	return time.Now()
}

// clientFor picks the API deployment a session's preferences point at.
func (ctl *Controller) clientFor(mockData bool, baseURL string) *apiclient.Client {
	if mockData && ctl.Mock != nil {
		return ctl.Mock
	}
	if baseURL != "" && ctl.AllowBaseURL != nil && ctl.AllowBaseURL(baseURL) {
		return ctl.API.WithBaseURL(baseURL)
	}
	return ctl.API
}

// LoadSession runs after RequireAuth. It resolves the session named in the
// token and binds an API client carrying the session's remote token. A 401
// from the remote API clears the session.
func (ctl *Controller) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetString(middleware.CtxSessionID)
		sess, err := ctl.Sessions.Get(c.Request.Context(), sessionID)
		if errors.Is(err, session.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please sign in again", "redirect": "/login"})
			return
		}
		if err != nil {
			logrus.WithError(err).WithField("session_id", sessionID).Error("failed to load session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
			return
		}

		api := ctl.clientFor(sess.MockData, sess.APIBaseURL).WithToken(sess.Token, func() {
			logrus.WithField("session_id", sessionID).Info("remote api rejected token, clearing session")
			if err := ctl.Sessions.Clear(context.Background(), sessionID); err != nil {
				logrus.WithError(err).Warn("failed to clear session")
			}
		})

		c.Set(ctxSession, sess)
		c.Set(ctxAPI, api)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *models.Session {
	sess, _ := c.MustGet(ctxSession).(*models.Session)
	return sess
}

func apiFrom(c *gin.Context) *apiclient.Client {
	api, _ := c.MustGet(ctxAPI).(*apiclient.Client)
	return api
}

func userFrom(c *gin.Context) models.User {
	u, err := sessionFrom(c).User()
	if err != nil {
		logrus.WithError(err).Warn("stored profile is unreadable")
	}
	return u
}

// respondAPIError maps a remote API failure onto the response.
func respondAPIError(c *gin.Context, err error, what string) {
	var apiErr *apiclient.APIError
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please sign in again", "redirect": "/login"})
	case errors.Is(err, apiclient.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": verrs.Error()})
	case errors.As(err, &apiErr) && apiErr.Status < 500:
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Message})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "The school transport service timed out"})
	default:
		logrus.WithError(err).WithField("resource", what).Error("remote api call failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not reach the school transport service"})
	}
}
