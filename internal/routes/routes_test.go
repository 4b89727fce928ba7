package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"school_tracker/internal/apiclient"
	"school_tracker/internal/controllers"
	"school_tracker/internal/middleware"
	"school_tracker/internal/mock"
	"school_tracker/internal/session"
	"school_tracker/internal/tracking"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	backend *mock.Backend
	ctl     *controllers.Controller
	router  *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	backend, err := mock.New(bcrypt.MinCost)
	require.NoError(t, err)
	mockSrv := httptest.NewServer(backend.Handler())
	t.Cleanup(mockSrv.Close)

	api := apiclient.New(mockSrv.URL, 5*time.Second)
	service := api.WithToken(backend.ServiceToken, nil)
	tracker := tracking.NewTracker(tracking.TrackerOptions{
		Region:  tracking.DefaultRegion(),
		Buses:   service,
		Devices: service,
	})
	snap, err := tracker.Fetch(context.Background())
	require.NoError(t, err)
	tracker.Apply(1, snap)

	ctl := &controllers.Controller{
		API:      api,
		Mock:     api,
		Sessions: session.NewMemoryStore(),
		Tokens:   middleware.NewTokenIssuer("test-secret", time.Hour),
		Tracker:  tracker,
		Hub:      controllers.NewLocationHub(tracker, time.Minute, time.Millisecond, nil),
	}
	return &testEnv{backend: backend, ctl: ctl, router: SetupRouter(ctl, io.Discard, nil)}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"`+mock.DemoPassword+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"seq":1`)
}

func TestLoginFailures(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/auth/login", "", `{"email":"admin@riverside.ac.ke","password":"bad"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = e.do(t, http.MethodPost, "/auth/login", "", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/auth/login", "", `{"email":"admin@riverside.ac.ke","password":"x","api_base_url":"http://elsewhere"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminFleet(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin@riverside.ac.ke")

	w := e.do(t, http.MethodGet, "/admin/fleet", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[tracking.Snapshot](t, w)
	require.Len(t, snap.Vehicles, 4)

	byID := map[string]tracking.VehicleState{}
	for _, v := range snap.Vehicles {
		byID[v.Bus.ID.String()] = v
	}

	moving := byID["1"]
	require.NotNil(t, moving.Marker)
	assert.Equal(t, tracking.ColorMoving, moving.Marker.Color)
	assert.False(t, moving.Position.Fallback)

	swapped := byID["2"]
	require.NotNil(t, swapped.Position)
	assert.InDelta(t, -1.2921, swapped.Position.Lat, 1e-9)
	assert.InDelta(t, 36.7837, swapped.Position.Lng, 1e-9)
	assert.Equal(t, tracking.ColorStanding, swapped.Marker.Color)

	blank := byID["3"]
	require.NotNil(t, blank.Position)
	assert.True(t, blank.Position.Fallback)
	assert.Equal(t, tracking.IconBusFallback, blank.Marker.Icon)

	assert.Nil(t, byID["4"].Position, "bus without a device has no position")
}

func TestAdminSelectBus(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin@riverside.ac.ke")

	w := e.do(t, http.MethodGet, "/admin/fleet/1/route", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[struct {
		Route tracking.Route    `json:"route"`
		Trail []tracking.Sample `json:"trail"`
	}](t, w)
	assert.Equal(t, tracking.StyleRaw, out.Route.Style)
	assert.Len(t, out.Trail, 1, "selection ends the trail at the live position")

	w = e.do(t, http.MethodGet, "/admin/fleet/99/route", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoleGuards(t *testing.T) {
	e := newTestEnv(t)
	parent := e.login(t, "parent@riverside.ac.ke")

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/admin/fleet", "", "").Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/admin/fleet", parent, "").Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/driver/bus", parent, "").Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPost, "/panic", parent, "").Code)
}

func TestParentPortal(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "parent@riverside.ac.ke")

	w := e.do(t, http.MethodGet, "/parent/buses", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[struct {
		Students []json.RawMessage        `json:"students"`
		Vehicles []tracking.VehicleState `json:"vehicles"`
	}](t, w)
	assert.Len(t, out.Students, 2)
	require.Len(t, out.Vehicles, 1)
	assert.Equal(t, "KBZ 123A", out.Vehicles[0].Bus.PlateNumber)
}

func TestCrewPortalAndPanic(t *testing.T) {
	e := newTestEnv(t)
	driver := e.login(t, "driver@riverside.ac.ke")

	w := e.do(t, http.MethodGet, "/driver/bus", driver, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "KBZ 123A")

	w = e.do(t, http.MethodPost, "/panic", driver, `{"message":"engine fire"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	panics := e.backend.Panics()
	require.Len(t, panics, 1)
	assert.Equal(t, "1", panics[0].BusID.String())
	assert.Equal(t, "2", panics[0].RaisedBy.String())
	assert.True(t, panics[0].Latitude.Valid)

	assistant := e.login(t, "assistant@riverside.ac.ke")
	w = e.do(t, http.MethodGet, "/assistant/bus", assistant, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "KBZ 123A")

	// Joseph drives bus 2 but bus 3 has no crew.
	other := e.login(t, "driver2@riverside.ac.ke")
	w = e.do(t, http.MethodGet, "/driver/bus", other, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "KCA 456B")
}

func TestAdminCRUD(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin@riverside.ac.ke")

	w := e.do(t, http.MethodGet, "/admin/buses?search=kca&page_size=10", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Items []struct {
			PlateNumber string `json:"plateNumber"`
		} `json:"items"`
		Total int `json:"total"`
	}](t, w)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "KCA 456B", page.Items[0].PlateNumber)

	w = e.do(t, http.MethodPost, "/admin/drivers", token, `{"name":"New Driver","email":"new@riverside.ac.ke"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"DRIVER"`)

	w = e.do(t, http.MethodGet, "/admin/drivers?sort=name&order=desc", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":3`)

	w = e.do(t, http.MethodPut, "/admin/schools/1", token, `{"name":"Riverside Academy Annex"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/admin/students/3", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodGet, "/admin/students/3", token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"student not found"`)

	w = e.do(t, http.MethodPost, "/admin/sms", token, `{"recipients":["+254700000014"],"message":"Bus 1 is late"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, e.backend.SMS(), 1)
}

func TestRemoteUnauthorizedClearsSession(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin@riverside.ac.ke")

	claims, err := e.ctl.Tokens.Validate(token)
	require.NoError(t, err)
	sess, err := e.ctl.Sessions.Get(context.Background(), claims.SessionID)
	require.NoError(t, err)
	e.backend.Revoke(sess.Token)

	w := e.do(t, http.MethodGet, "/admin/buses", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/login"`)

	_, err = e.ctl.Sessions.Get(context.Background(), claims.SessionID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	w = e.do(t, http.MethodGet, "/admin/fleet", token, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutAndPreferences(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "parent@riverside.ac.ke")

	w := e.do(t, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"parent"`)

	w = e.do(t, http.MethodPut, "/auth/preferences", token, `{"mock_data":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mock_data":true`)

	w = e.do(t, http.MethodPut, "/auth/preferences", token, `{"api_base_url":"http://elsewhere"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/auth/logout", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/auth/me", token, "").Code)
}

func TestForgotPassword(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/auth/forgot-password", "", `{"email":"parent@riverside.ac.ke"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

type wsMsg struct {
	Type     string             `json:"type"`
	Snapshot *tracking.Snapshot `json:"snapshot"`
	Route    *tracking.Route    `json:"route"`
	Frame    *tracking.Frame    `json:"frame"`
	Error    string             `json:"error"`
}

func dialWS(t *testing.T, e *testEnv, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tracking?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) wsMsg {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg wsMsg
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWebSocketFleetSelection(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "admin@riverside.ac.ke")
	conn := dialWS(t, e, "token="+token+"&bus_id=1")

	snap := readUntil(t, conn, controllers.MsgSnapshot)
	require.NotNil(t, snap.Snapshot)
	assert.Len(t, snap.Snapshot.Vehicles, 4)

	route := readUntil(t, conn, controllers.MsgRoute)
	require.NotNil(t, route.Route)
	assert.Equal(t, "1", route.Route.BusID)

	frame := readUntil(t, conn, controllers.MsgRouteFrame)
	require.NotNil(t, frame.Frame)
	assert.Equal(t, 1, frame.Frame.Step)

	// A new cycle reaches fleet clients straight away.
	next, err := e.ctl.Tracker.Fetch(context.Background())
	require.NoError(t, err)
	e.ctl.Tracker.Apply(2, next)
	snap = readUntil(t, conn, controllers.MsgSnapshot)
	assert.Equal(t, uint64(2), snap.Snapshot.Seq)
}

func TestWebSocketPortalIsFiltered(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "parent@riverside.ac.ke")
	conn := dialWS(t, e, "token="+token)

	snap := readUntil(t, conn, controllers.MsgSnapshot)
	require.Len(t, snap.Snapshot.Vehicles, 1)
	assert.Equal(t, "1", snap.Snapshot.Vehicles[0].Bus.ID.String())

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "select", "bus_id": "2"}))
	msg := readUntil(t, conn, controllers.MsgError)
	assert.Equal(t, "bus not available", msg.Error)
}

func TestWebSocketRequiresToken(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/tracking"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
