// Package apiclient talks to the remote school-transport REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnauthorized means the remote API rejected the bearer token. The
	// bound session has already been cleared when this is returned.
	ErrUnauthorized = errors.New("remote api: unauthorized")
	ErrNotFound     = errors.New("remote api: not found")
)

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote api: status %d: %s", e.Status, e.Message)
}

// Client issues authenticated JSON requests. Copies made with WithToken share
// the underlying http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate

	token          string
	onUnauthorized func()
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
	}
}

// WithToken returns a copy that sends token and calls onUnauthorized (at most
// once) when the API answers 401.
func (c *Client) WithToken(token string, onUnauthorized func()) *Client {
	cp := *c
	cp.token = token
	if onUnauthorized != nil {
		var once sync.Once
		cp.onUnauthorized = func() { once.Do(onUnauthorized) }
	} else {
		cp.onUnauthorized = nil
	}
	return &cp
}

// WithBaseURL returns a copy pointed at another deployment of the API.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(baseURL, "/")
	return &cp
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	logrus.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start).String(),
	}).Debug("remote api call")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400:
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// envelope matches the API's {"data": ...} wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Items json.RawMessage `json:"items"`
}

// unwrap returns the payload inside a data/items envelope, or raw itself.
func unwrap(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return trimmed
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		return unwrap(env.Data)
	}
	if len(env.Items) > 0 && string(env.Items) != "null" {
		return env.Items
	}
	return trimmed
}

func decodeList[T any](c *Client, raw json.RawMessage, what string) ([]T, error) {
	payload := unwrap(raw)
	if len(payload) == 0 || string(payload) == "null" {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(payload, &elems); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", what, err)
	}

	// One malformed record costs only itself.
	valid := make([]T, 0, len(elems))
	for i, elem := range elems {
		var it T
		if err := json.Unmarshal(elem, &it); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"resource": what,
				"index":    i,
			}).Warn("dropping undecodable record from remote api")
			continue
		}
		if err := c.validate.Struct(it); err != nil {
			logrus.WithError(err).WithField("resource", what).Warn("dropping invalid record from remote api")
			continue
		}
		valid = append(valid, it)
	}
	return valid, nil
}

func decodeOne[T any](c *Client, raw json.RawMessage, what string) (T, error) {
	var item T
	if err := json.Unmarshal(unwrap(raw), &item); err != nil {
		return item, fmt.Errorf("decode %s: %w", what, err)
	}
	if err := c.validate.Struct(item); err != nil {
		return item, fmt.Errorf("invalid %s from remote api: %w", what, err)
	}
	return item, nil
}
