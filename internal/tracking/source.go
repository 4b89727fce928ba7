package tracking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"school_tracker/internal/models"
)

// DeviceSource yields the current batch of device location reports.
type DeviceSource interface {
	DeviceLocations(ctx context.Context) ([]models.RawLocation, error)
}

// BusLister yields the domain buses.
type BusLister interface {
	ListBuses(ctx context.Context) ([]models.Bus, error)
}

// GTFSRTSource reads device reports from a GTFS-Realtime VehiclePositions
// feed, keyed by the vehicle descriptor's license plate.
type GTFSRTSource struct {
	url        string
	httpClient *http.Client
}

func NewGTFSRTSource(url string, timeout time.Duration) *GTFSRTSource {
	return &GTFSRTSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *GTFSRTSource) DeviceLocations(ctx context.Context) ([]models.RawLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtfs-rt http status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("gtfs-rt decode: %w", err)
	}
	return reportsFromFeed(&feed), nil
}

func reportsFromFeed(feed *gtfs.FeedMessage) []models.RawLocation {
	out := make([]models.RawLocation, 0, len(feed.GetEntity()))
	for _, ent := range feed.GetEntity() {
		vp := ent.GetVehicle()
		if vp == nil {
			continue
		}
		desc := vp.GetVehicle()
		plate := desc.GetLicensePlate()
		if plate == "" {
			plate = desc.GetLabel()
		}
		if plate == "" {
			continue
		}

		rep := models.RawLocation{
			DeviceID: desc.GetId(),
			Plate:    plate,
		}
		if pos := vp.GetPosition(); pos != nil {
			rep.Latitude = models.Num(float64(pos.GetLatitude()))
			rep.Longitude = models.Num(float64(pos.GetLongitude()))
			if pos.Bearing != nil {
				rep.Direction = models.Num(float64(pos.GetBearing()))
			}
			if pos.Speed != nil {
				// GTFS-RT speeds are m/s; device lists report km/h.
				rep.Speed = models.Num(float64(pos.GetSpeed()) * 3.6)
			}
		}
		if vp.GetCurrentStatus() == gtfs.VehiclePosition_STOPPED_AT {
			rep.Movement = "STOPPED"
		}
		if ts := vp.GetTimestamp(); ts > 0 {
			rep.Timestamp = time.Unix(int64(ts), 0).UTC()
		}
		out = append(out, rep)
	}
	return out
}
