package location

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// DefaultThresholdMiles flags a GPS point more than a mile from the
// typed address.
const DefaultThresholdMiles = 1.0

const earthRadiusMiles = 3958.8

// HaversineMiles returns the great-circle distance between two points.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// CheckResult is the advisory outcome of a cross-check. It never blocks
// the applicant; flags are recorded for the final report.
type CheckResult struct {
	Verified      bool
	Flagged       bool
	Reason        string
	DistanceMiles float64
	GPSAddress    string
}

// Checker cross-verifies a typed address against GPS coordinates.
type Checker struct {
	geocoder       Geocoder
	thresholdMiles float64
}

func NewChecker(geocoder Geocoder, thresholdMiles float64) *Checker {
	if thresholdMiles <= 0 {
		thresholdMiles = DefaultThresholdMiles
	}
	return &Checker{geocoder: geocoder, thresholdMiles: thresholdMiles}
}

// CrossCheck geocodes the typed address, measures its distance to the
// GPS point, and runs a city containment check on the reverse-geocoded
// GPS address. Geocoder failures flag rather than fail.
func (c *Checker) CrossCheck(ctx context.Context, typedAddress string, lat, lng float64) CheckResult {
	typed, err := c.geocoder.Geocode(ctx, typedAddress)
	if err != nil {
		return CheckResult{Flagged: true, Reason: "Could not verify typed address"}
	}

	result := CheckResult{}

	gpsPlace, gpsErr := c.geocoder.ReverseGeocode(ctx, lat, lng)
	if gpsErr == nil {
		result.GPSAddress = gpsPlace.Formatted
	}

	distance := HaversineMiles(typed.Lat, typed.Lng, lat, lng)
	result.DistanceMiles = math.Round(distance*100) / 100

	if distance > c.thresholdMiles {
		result.Flagged = true
		result.Reason = fmt.Sprintf("GPS location is %.1f miles from provided address", distance)
	} else {
		result.Verified = true
	}

	// The GPS city should appear somewhere in the typed address.
	if gpsErr == nil && gpsPlace.City != "" && !result.Flagged {
		if !strings.Contains(strings.ToLower(typedAddress), strings.ToLower(gpsPlace.City)) {
			result.Flagged = true
			result.Verified = false
			result.Reason = fmt.Sprintf("City mismatch: GPS shows %s", gpsPlace.City)
		}
	}

	return result
}
