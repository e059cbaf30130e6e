package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// Coord is a WGS84 coordinate in degrees. The backend encodes
// coordinates as a [lat, lon] JSON array everywhere.
type Coord struct {
	Lat float64
	Lon float64
}

func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

func (c *Coord) UnmarshalJSON(b []byte) error {
	var arr []float64
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) != 2 {
		return fmt.Errorf("coordinate: want [lat, lon], got %d elements", len(arr))
	}
	c.Lat, c.Lon = arr[0], arr[1]
	return nil
}

// Valid reports whether both components are finite numbers.
func (c Coord) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}

// Destination normalizes the two destination shapes produced by the
// map-selection UI: a [lat, lon] array or a {lat, lng|lon} object.
// After decoding, downstream code only ever sees *Coord.
type Destination struct {
	Coord *Coord
}

func (d Destination) MarshalJSON() ([]byte, error) {
	if d.Coord == nil {
		return []byte("null"), nil
	}
	return d.Coord.MarshalJSON()
}

func (d *Destination) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Coord = nil
		return nil
	}
	var arr []float64
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) != 2 {
			return fmt.Errorf("destination: want [lat, lon], got %d elements", len(arr))
		}
		d.Coord = &Coord{Lat: arr[0], Lon: arr[1]}
		return nil
	}
	var obj struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("destination: not an array or object: %w", err)
	}
	lon := obj.Lng
	if lon == nil {
		lon = obj.Lon
	}
	if obj.Lat == nil || lon == nil {
		return fmt.Errorf("destination: object missing lat/lng")
	}
	d.Coord = &Coord{Lat: *obj.Lat, Lon: *lon}
	return nil
}
