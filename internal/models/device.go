package models

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// RawLocation is one device report from the location list. Nothing in it is
// trusted: coordinates may be null, stringy, swapped or garbage.
type RawLocation struct {
	DeviceID  string    `json:"deviceId"`
	Plate     string    `json:"plateNumber"`
	Latitude  Number    `json:"latitude"`
	Longitude Number    `json:"longitude"`
	Direction Number    `json:"direction"`
	Speed     Number    `json:"speed"`
	Movement  string    `json:"movementState"`
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON accepts the field aliases seen across tracker vendors.
func (rl *RawLocation) UnmarshalJSON(data []byte) error {
	aux := struct {
		DeviceID      ID     `json:"deviceId"`
		DeviceName    string `json:"deviceName"`
		Plate         string `json:"plateNumber"`
		Plate2        string `json:"plate"`
		VehicleNumber string `json:"vehicleNumber"`

		Latitude  Number `json:"latitude"`
		Lat       Number `json:"lat"`
		Longitude Number `json:"longitude"`
		Lng       Number `json:"lng"`
		Lon       Number `json:"lon"`

		Direction Number `json:"direction"`
		Course    Number `json:"course"`
		Speed     Number `json:"speed"`

		Movement  string          `json:"movementState"`
		Status    string          `json:"status"`
		Timestamp json.RawMessage `json:"timestamp"`
		GPSTime   json.RawMessage `json:"gpsTime"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*rl = RawLocation{
		DeviceID:  firstNonEmpty(aux.DeviceID.String(), aux.DeviceName),
		Plate:     firstNonEmpty(aux.Plate, aux.Plate2, aux.VehicleNumber, aux.DeviceName),
		Latitude:  firstValid(aux.Latitude, aux.Lat),
		Longitude: firstValid(aux.Longitude, aux.Lng, aux.Lon),
		Direction: firstValid(aux.Direction, aux.Course),
		Speed:     aux.Speed,
		Movement:  firstNonEmpty(aux.Movement, aux.Status),
	}

	for _, raw := range []json.RawMessage{aux.Timestamp, aux.GPSTime} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		t, err := ParseTimestamp(s)
		if err != nil {
			// A bad timestamp is not fatal for a position report.
			logrus.WithFields(logrus.Fields{
				"device_id":     rl.DeviceID,
				"raw_timestamp": s,
			}).Debug("ignoring unparseable device timestamp")
			continue
		}
		rl.Timestamp = t
		break
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstValid(vals ...Number) Number {
	for _, v := range vals {
		if v.Valid {
			return v
		}
	}
	return Number{}
}
