package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"school_tracker/internal/tracking"
)

type regionFile struct {
	Name     string `yaml:"name"`
	Fallback struct {
		Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
		Lng float64 `yaml:"lng" validate:"gte=-180,lte=180"`
	} `yaml:"fallback"`
	Bounds struct {
		MinLat float64 `yaml:"min_lat" validate:"gte=-90,lte=90"`
		MaxLat float64 `yaml:"max_lat" validate:"gte=-90,lte=90,gtfield=MinLat"`
		MinLng float64 `yaml:"min_lng" validate:"gte=-180,lte=180"`
		MaxLng float64 `yaml:"max_lng" validate:"gte=-180,lte=180,gtfield=MinLng"`
	} `yaml:"bounds"`
	SwapThreshold float64 `yaml:"swap_threshold" validate:"gte=0,lte=90"`
}

// LoadRegion returns the default operating region, or the one described by
// the YAML file at path.
func LoadRegion(path string) (tracking.Region, error) {
	region := tracking.DefaultRegion()
	if path == "" {
		return region, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return region, fmt.Errorf("read region file: %w", err)
	}
	var rf regionFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return region, fmt.Errorf("parse region file: %w", err)
	}
	if err := validator.New().Struct(rf); err != nil {
		return region, fmt.Errorf("invalid region file: %w", err)
	}

	region.Name = rf.Name
	region.Fallback = tracking.Point{Lat: rf.Fallback.Lat, Lng: rf.Fallback.Lng}
	region.MinLat, region.MaxLat = rf.Bounds.MinLat, rf.Bounds.MaxLat
	region.MinLng, region.MaxLng = rf.Bounds.MinLng, rf.Bounds.MaxLng
	if rf.SwapThreshold > 0 {
		region.SwapThreshold = rf.SwapThreshold
	}
	if !region.Contains(region.Fallback) {
		return region, fmt.Errorf("invalid region file: fallback point outside bounds")
	}
	return region, nil
}
