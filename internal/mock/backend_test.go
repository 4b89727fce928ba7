package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(bcrypt.MinCost)
	require.NoError(t, err)
	return b
}

func TestLogin(t *testing.T) {
	h := newBackend(t).Handler()

	w := httptest.NewRecorder()
	body := `{"email":"parent@riverside.ac.ke","password":"` + DemoPassword + `"}`
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				Role string `json:"role"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Data.Token)
	assert.Equal(t, "PARENT", out.Data.User.Role)

	w = httptest.NewRecorder()
	body = `{"email":"parent@riverside.ac.ke","password":"wrong"}`
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRequiresToken(t *testing.T) {
	b := newBackend(t)
	h := b.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/buses", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/buses", nil)
	req.Header.Set("Authorization", "Bearer "+b.ServiceToken)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDevicesMove(t *testing.T) {
	b := newBackend(t)
	h := b.Handler()

	fetch := func() []map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/devices/locations", nil)
		req.Header.Set("Authorization", "Bearer "+b.ServiceToken)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var out struct {
			Data []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out.Data
	}

	first, second := fetch(), fetch()
	require.Len(t, first, 3)
	assert.NotEqual(t, first[0]["latitude"], second[0]["latitude"])
	assert.Equal(t, first[1]["latitude"], second[1]["latitude"], "standing device does not move")
	assert.Nil(t, first[2]["latitude"])
}

func TestCollectionCRUD(t *testing.T) {
	b := newBackend(t)
	h := b.Handler()
	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+b.ServiceToken)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/buses", `{"name":"Bus 5","plateNumber":"KBB 555E"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"5"`)

	w = do(http.MethodPut, "/buses/5", `{"name":"Bus Five","plateNumber":"KBB 555E"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Bus Five")

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/buses/5", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/buses/5", "").Code)

	w = do(http.MethodGet, "/users?role=driver", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, strings.Count(w.Body.String(), `"role":"DRIVER"`))
}
