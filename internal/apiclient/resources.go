package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"school_tracker/internal/models"
)

// Resource is one REST collection on the remote API.
type Resource[T any] struct {
	c     *Client
	path  string
	name  string
	scope url.Values
}

func newResource[T any](c *Client, path, name string, scope url.Values) Resource[T] {
	return Resource[T]{c: c, path: path, name: name, scope: scope}
}

func (r Resource[T]) Name() string { return r.name }

func (r Resource[T]) query(extra url.Values) url.Values {
	q := url.Values{}
	for k, v := range r.scope {
		q[k] = v
	}
	for k, v := range extra {
		q[k] = v
	}
	return q
}

func (r Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := r.c.do(ctx, http.MethodGet, r.path, r.query(query), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](r.c, raw, r.name)
}

func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var raw json.RawMessage
	if err := r.c.do(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil, nil, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](r.c, raw, r.name)
}

func (r Resource[T]) Create(ctx context.Context, in T) (T, error) {
	var raw json.RawMessage
	if err := r.c.do(ctx, http.MethodPost, r.path, r.query(nil), in, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](r.c, raw, r.name)
}

func (r Resource[T]) Update(ctx context.Context, id string, in T) (T, error) {
	var raw json.RawMessage
	if err := r.c.do(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), nil, in, &raw); err != nil {
		var zero T
		return zero, err
	}
	return decodeOne[T](r.c, raw, r.name)
}

func (r Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) Buses() Resource[models.Bus] {
	return newResource[models.Bus](c, "/buses", "bus", nil)
}

func (c *Client) Students() Resource[models.Student] {
	return newResource[models.Student](c, "/students", "student", nil)
}

func (c *Client) Manifests() Resource[models.Manifest] {
	return newResource[models.Manifest](c, "/manifests", "manifest", nil)
}

func (c *Client) Schools() Resource[models.School] {
	return newResource[models.School](c, "/schools", "school", nil)
}

func (c *Client) Parents() Resource[models.User] {
	return newResource[models.User](c, "/parents", "parent", nil)
}

// Users is the user collection scoped to one role ("DRIVER", "ASSISTANT", ...).
func (c *Client) Users(role string) Resource[models.User] {
	var scope url.Values
	if role != "" {
		scope = url.Values{"role": {role}}
	}
	return newResource[models.User](c, "/users", "user", scope)
}

// ListBuses lists every bus visible to the token.
func (c *Client) ListBuses(ctx context.Context) ([]models.Bus, error) {
	return c.Buses().List(ctx, nil)
}

// DeviceLocations lists the latest report of every tracked device.
func (c *Client) DeviceLocations(ctx context.Context) ([]models.RawLocation, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/devices/locations", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.RawLocation](c, raw, "device location")
}
