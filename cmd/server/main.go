package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"school_tracker/internal/apiclient"
	"school_tracker/internal/config"
	"school_tracker/internal/controllers"
	"school_tracker/internal/logger"
	"school_tracker/internal/middleware"
	"school_tracker/internal/mock"
	"school_tracker/internal/routes"
	"school_tracker/internal/session"
	"school_tracker/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	// Initialize structured logging to file
	accessLog := logger.Setup(cfg.Log.File, cfg.Log.Level)
	gin.SetMode(gin.ReleaseMode)

	region, err := config.LoadRegion(cfg.Tracking.RegionFile)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load region")
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		logrus.WithError(err).Fatal("failed to listen")
	}

	var (
		sessions    session.Store
		mockHandler http.Handler
		mockClient  *apiclient.Client
		api         = apiclient.New(cfg.API.BaseURL, cfg.API.Timeout)
		serviceTok  = cfg.API.Token
	)

	if cfg.MockData {
		backend, err := mock.New(bcrypt.DefaultCost)
		if err != nil {
			logrus.WithError(err).Fatal("failed to seed mock backend")
		}
		mockHandler = backend.Handler()
		mockClient = apiclient.New(mockBaseURL(ln.Addr()), cfg.API.Timeout)
		api = mockClient
		serviceTok = backend.ServiceToken
		sessions = session.NewMemoryStore()
		logrus.WithField("base_url", mockClient.BaseURL()).Warn("running on mock data")
	} else {
		db, err := config.InitDB(cfg)
		if err != nil {
			logrus.WithError(err).Fatal("failed to initialise database")
		}
		sessions = session.NewGormStore(db)
	}

	if serviceTok == "" && cfg.API.ServiceEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
		res, err := api.Login(ctx, cfg.API.ServiceEmail, cfg.API.ServicePassword)
		cancel()
		if err != nil {
			logrus.WithError(err).Fatal("service account login failed")
		}
		serviceTok = res.Token
	}
	if serviceTok == "" {
		logrus.Warn("no service credentials; fleet polling will be rejected by the remote api")
	}
	service := api.WithToken(serviceTok, func() {
		logrus.Error("remote api rejected the service token")
	})

	var devices tracking.DeviceSource = service
	if cfg.Tracking.DeviceFeed == "gtfsrt" {
		devices = tracking.NewGTFSRTSource(cfg.Tracking.GTFSRTURL, cfg.API.Timeout)
	}

	tracker := tracking.NewTracker(tracking.TrackerOptions{
		Region:   region,
		Buses:    service,
		Devices:  devices,
		Snapper:  tracking.NewOSRMSnapper(cfg.Tracking.SnapURL, cfg.Tracking.SnapTimeout),
		Geocoder: tracking.NewGeocoder(cfg.Tracking.GeocodeURL, cfg.Tracking.GeocodeUserAgent, cfg.API.Timeout),
	})
	poller := tracking.NewPoller("fleet", cfg.Tracking.FleetInterval, tracker.Fetch, tracker.Apply)

	ctl := &controllers.Controller{
		API:          api,
		Mock:         mockClient,
		Sessions:     sessions,
		Tokens:       middleware.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL),
		Tracker:      tracker,
		Hub:          controllers.NewLocationHub(tracker, cfg.Tracking.PortalInterval, cfg.Tracking.AnimationTick, cfg.CORSOrigins),
		AllowBaseURL: cfg.OverrideAllowed,
	}

	r := routes.SetupRouter(ctl, accessLog, mockHandler)

	// Wrap with CORS
	srv := &http.Server{
		Handler:           middleware.EnableCORS(cfg.CORSOrigins, r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", ln.Addr().String()).Info("server running")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	pctx, pcancel := context.WithCancel(context.Background())
	go poller.Run(pctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logrus.Info("shutdown initiated")

	pcancel()
	poller.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown error")
	} else {
		logrus.Info("HTTP server shut down successfully")
	}
}

// mockBaseURL points at the mock backend mounted on our own listener.
func mockBaseURL(addr net.Addr) string {
	port := 8080
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, routes.MockPrefix)
}
