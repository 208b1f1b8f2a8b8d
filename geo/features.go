package geo

import (
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// DecodeFeatures accepts either a FeatureCollection or a single Feature and
// returns the feature list. A top-level parse failure is fatal to the caller.
func DecodeFeatures(data []byte) ([]*geojson.Feature, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		return fc.Features, nil
	}
	feat, err := geojson.UnmarshalFeature(data)
	if err != nil {
		return nil, fmt.Errorf("not a GeoJSON Feature or FeatureCollection: %w", err)
	}
	return []*geojson.Feature{feat}, nil
}

// LoadFeatures reads a GeoJSON file from disk.
func LoadFeatures(path string) ([]*geojson.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	feats, err := DecodeFeatures(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return feats, nil
}

// FirstProp walks candidate property keys in order and returns the first
// present, non-empty string value. Region and station datasets name the same
// logical field inconsistently across sources.
func FirstProp(props geojson.Properties, keys ...string) *string {
	for _, key := range keys {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if strings.TrimSpace(val) != "" {
				s := val
				return &s
			}
		case float64:
			s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
			return &s
		}
	}
	return nil
}
