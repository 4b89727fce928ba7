package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"school_tracker/internal/models"
)

type loginInput struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	MockData   bool   `json:"mock_data"`
	APIBaseURL string `json:"api_base_url"`
}

// Login proxies the credentials to the remote API, opens a session holding
// the remote token and answers with the service's own JWT.
func (ctl *Controller) Login(c *gin.Context) {
	var body loginInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.APIBaseURL != "" && (ctl.AllowBaseURL == nil || !ctl.AllowBaseURL(body.APIBaseURL)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_base_url is not allowed"})
		return
	}

	api := ctl.clientFor(body.MockData, body.APIBaseURL)
	res, err := api.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		respondAPIError(c, err, "user")
		return
	}

	role := res.User.NormalizedRole()
	if role == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "this account has no portal"})
		return
	}

	sess := &models.Session{
		Token:      res.Token,
		MockData:   body.MockData && ctl.Mock != nil,
		APIBaseURL: body.APIBaseURL,
	}
	if err := sess.SetProfile(res.User); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store profile"})
		return
	}
	if err := ctl.Sessions.Init(c.Request.Context(), sess); err != nil {
		logrus.WithError(err).Error("failed to open session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open session"})
		return
	}

	token, err := ctl.Tokens.Generate(res.User.ID.String(), role, sess.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate token"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    res.User.ID,
		"role":       role,
		"session_id": sess.ID,
	}).Info("user signed in")

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"role":  role,
		"user":  res.User,
	})
}

func (ctl *Controller) Logout(c *gin.Context) {
	sess := sessionFrom(c)
	if err := ctl.Sessions.Clear(c.Request.Context(), sess.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out", "redirect": "/login"})
}

func (ctl *Controller) ForgotPassword(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required,email"`
		MockData bool   `json:"mock_data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ctl.clientFor(body.MockData, "").ForgotPassword(c.Request.Context(), body.Email); err != nil {
		respondAPIError(c, err, "account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the address is registered a reset link has been sent."})
}

// Me returns the signed-in profile and preferences.
func (ctl *Controller) Me(c *gin.Context) {
	sess := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         userFrom(c),
		"role":         sess.Role,
		"mock_data":    sess.MockData,
		"api_base_url": sess.APIBaseURL,
	})
}

// UpdatePreferences switches the session between the real and mock API, or
// to another allowed deployment.
func (ctl *Controller) UpdatePreferences(c *gin.Context) {
	var body struct {
		MockData   *bool   `json:"mock_data"`
		APIBaseURL *string `json:"api_base_url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := *sessionFrom(c)
	if body.MockData != nil {
		if *body.MockData && ctl.Mock == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mock data is not available on this server"})
			return
		}
		sess.MockData = *body.MockData
	}
	if body.APIBaseURL != nil {
		if *body.APIBaseURL != "" && (ctl.AllowBaseURL == nil || !ctl.AllowBaseURL(*body.APIBaseURL)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "api_base_url is not allowed"})
			return
		}
		sess.APIBaseURL = *body.APIBaseURL
	}

	if err := ctl.Sessions.Update(c.Request.Context(), &sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mock_data": sess.MockData, "api_base_url": sess.APIBaseURL})
}
