package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/sirupsen/logrus"
)

// Geocoder resolves coordinates to addresses through a Nominatim-style
// reverse endpoint, caching results by ~11m cell.
type Geocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	cache      gcache.Cache

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewGeocoder(baseURL, userAgent string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		cache: gcache.New(5000).
			LRU().
			Expiration(6 * time.Hour).
			Build(),
		inflight: make(map[string]struct{}),
	}
}

func cacheKey(p Point) string {
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lng)
}

// Cached returns an already-resolved address without any network call.
func (g *Geocoder) Cached(p Point) (string, bool) {
	v, err := g.cache.Get(cacheKey(p))
	if err != nil {
		return "", false
	}
	addr, ok := v.(string)
	return addr, ok
}

// Reverse resolves p, consulting the cache first.
func (g *Geocoder) Reverse(ctx context.Context, p Point) (string, error) {
	if addr, ok := g.Cached(p); ok {
		return addr, nil
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", fmt.Sprintf("%.6f", p.Lat))
	q.Set("lon", fmt.Sprintf("%.6f", p.Lng))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode status %d", resp.StatusCode)
	}

	var out struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("reverse geocode decode: %w", err)
	}
	if out.DisplayName == "" {
		if out.Error != "" {
			return "", errors.New(out.Error)
		}
		return "", errors.New("reverse geocode: empty address")
	}

	if err := g.cache.Set(cacheKey(p), out.DisplayName); err != nil {
		logrus.WithError(err).Debug("geocode cache set failed")
	}
	return out.DisplayName, nil
}

// Prefetch resolves p in the background. Failures are only logged.
func (g *Geocoder) Prefetch(p Point) {
	key := cacheKey(p)
	g.mu.Lock()
	if _, busy := g.inflight[key]; busy {
		g.mu.Unlock()
		return
	}
	g.inflight[key] = struct{}{}
	g.mu.Unlock()

	go func() {
		defer func() {
			g.mu.Lock()
			delete(g.inflight, key)
			g.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), g.httpClient.Timeout)
		defer cancel()
		if _, err := g.Reverse(ctx, p); err != nil {
			logrus.WithError(err).WithField("point", key).Debug("address prefetch failed")
		}
	}()
}
