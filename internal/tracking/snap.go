package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Snapper aligns raw GPS points to road geometry.
type Snapper interface {
	Snap(ctx context.Context, trail []Sample) ([]Point, error)
}

// OSRMSnapper calls an OSRM-compatible map-matching service.
type OSRMSnapper struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

func NewOSRMSnapper(baseURL string, timeout time.Duration) *OSRMSnapper {
	return &OSRMSnapper{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    "driving",
		httpClient: &http.Client{Timeout: timeout},
	}
}

type osrmMatchResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Matchings []struct {
		Confidence float64         `json:"confidence"`
		Geometry   json.RawMessage `json:"geometry"`
	} `json:"matchings"`
}

func (s *OSRMSnapper) Snap(ctx context.Context, trail []Sample) ([]Point, error) {
	if len(trail) < 2 {
		return nil, errors.New("need at least two points to snap")
	}

	coords := make([]string, len(trail))
	stamps := make([]string, len(trail))
	withStamps := true
	for i, smp := range trail {
		coords[i] = fmt.Sprintf("%.6f,%.6f", smp.Lng, smp.Lat)
		if smp.Timestamp.IsZero() {
			withStamps = false
		}
		stamps[i] = strconv.FormatInt(smp.Timestamp.Unix(), 10)
	}

	q := url.Values{}
	q.Set("geometries", "geojson")
	q.Set("overview", "full")
	if withStamps {
		q.Set("timestamps", strings.Join(stamps, ";"))
	}
	endpoint := fmt.Sprintf("%s/match/v1/%s/%s?%s", s.baseURL, s.profile, strings.Join(coords, ";"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snap request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("snap read: %w", err)
	}
	var out osrmMatchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("snap decode (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.Code != "Ok" {
		return nil, fmt.Errorf("snap failed: status %d code %q %s", resp.StatusCode, out.Code, out.Message)
	}

	var pts []Point
	for _, m := range out.Matchings {
		var g geom.T
		if err := geojson.Unmarshal(m.Geometry, &g); err != nil {
			return nil, fmt.Errorf("snap geometry: %w", err)
		}
		pts = append(pts, pointsFromGeometry(g)...)
	}
	return pts, nil
}

// BuildRoute snaps the newest SnapPoints samples of trail. It falls back to
// the raw trail, styled dashed, when the service fails or matches fewer than
// two points. It never returns an empty route for a non-empty trail.
func BuildRoute(ctx context.Context, snapper Snapper, busID string, trail []Sample) Route {
	recent := Recent(trail, SnapPoints)
	raw := make([]Point, len(recent))
	for i, smp := range recent {
		raw[i] = smp.Point()
	}
	if snapper == nil || len(recent) < 2 {
		return rawRoute(busID, raw)
	}

	snapped, err := snapper.Snap(ctx, recent)
	if err != nil {
		logrus.WithError(err).WithField("bus_id", busID).Warn("road snapping failed, drawing raw trail")
		return rawRoute(busID, raw)
	}
	if len(snapped) < 2 {
		logrus.WithFields(logrus.Fields{
			"bus_id":  busID,
			"matched": len(snapped),
		}).Debug("too few matched points, drawing raw trail")
		return rawRoute(busID, raw)
	}
	return snappedRoute(busID, snapped)
}
