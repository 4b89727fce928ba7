package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"school_tracker/internal/models"
)

type LoginResult struct {
	Token string
	User  models.User
}

// Login exchanges credentials for a bearer token and the user's profile.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	in := map[string]string{"email": email, "password": password}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &raw); err != nil {
		return nil, err
	}

	var out struct {
		Token       string      `json:"token"`
		AccessToken string      `json:"accessToken"`
		User        models.User `json:"user"`
	}
	if err := json.Unmarshal(unwrap(raw), &out); err != nil {
		return nil, fmt.Errorf("decode login: %w", err)
	}
	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return nil, errors.New("login response carried no token")
	}
	if err := c.validate.Struct(out.User); err != nil {
		return nil, fmt.Errorf("invalid user in login response: %w", err)
	}
	return &LoginResult{Token: token, User: out.User}, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, map[string]string{"email": email}, nil)
}

func (c *Client) RaisePanic(ctx context.Context, alert models.PanicAlert) error {
	if err := c.validate.Struct(alert); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/panic-alerts", nil, alert, nil)
}

func (c *Client) SendSMS(ctx context.Context, sms models.SMSNotification) error {
	if err := c.validate.Struct(sms); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/notifications/sms", nil, sms, nil)
}
