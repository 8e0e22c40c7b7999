// Package geo has the small amount of spherical math the map features need.
package geo

import "math"

const earthRadiusM = 6371000.0

// DistanceM is the haversine great-circle distance in metres.
func DistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Box is a lat/lng rectangle.
type Box struct {
	MinLat, MaxLat, MinLng, MaxLng float64
}

// BoundingBox returns a box that contains every point within radiusM of
// the centre. It is used as a coarse index filter before DistanceM.
func BoundingBox(lat, lng, radiusM float64) Box {
	dLat := radiusM / earthRadiusM * 180 / math.Pi
	b := Box{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	// Near the poles the longitude span covers the whole circle.
	if cos := math.Cos(toRad(lat)); cos > 1e-6 {
		dLng := dLat / cos
		if dLng < 180 {
			b.MinLng = lng - dLng
			b.MaxLng = lng + dLng
		}
	}
	return b
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
