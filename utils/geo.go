package utils

import (
	"math"

	"shower-scraper/models"
)

const earthRadiusMeters = 6378137.0

// DistanceMeters is the haversine great-circle distance between two points.
func DistanceMeters(a, b models.Coordinates) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// OffsetCoordinate moves origin distanceMeters along bearingDeg (0 = north).
func OffsetCoordinate(origin models.Coordinates, distanceMeters, bearingDeg float64) models.Coordinates {
	if distanceMeters == 0 {
		return origin
	}
	bearingRad := degreesToRadians(bearingDeg)
	latRad := degreesToRadians(origin.Lat)
	lngRad := degreesToRadians(origin.Lng)
	angDist := distanceMeters / earthRadiusMeters

	lat2 := math.Asin(math.Sin(latRad)*math.Cos(angDist) + math.Cos(latRad)*math.Sin(angDist)*math.Cos(bearingRad))
	lng2 := lngRad + math.Atan2(math.Sin(bearingRad)*math.Sin(angDist)*math.Cos(latRad), math.Cos(angDist)-math.Sin(latRad)*math.Sin(lat2))

	return models.Coordinates{Lat: radiansToDegrees(lat2), Lng: normalizeLongitude(radiansToDegrees(lng2))}
}

// BBoxCenter returns the midpoint of a bounding box and the distance from
// it to the north-east corner. A box with West > East crosses the antimeridian.
func BBoxCenter(b models.BBox) (models.Coordinates, float64) {
	east := b.East
	if b.West > east {
		east += 360
	}
	center := models.Coordinates{
		Lat: (b.South + b.North) / 2,
		Lng: normalizeLongitude((b.West + east) / 2),
	}
	corner := models.Coordinates{Lat: b.North, Lng: b.East}
	return center, DistanceMeters(center, corner)
}

// ZoomForRadius picks the web-mercator zoom whose ~1000px viewport spans
// twice radiusMeters at latitude lat. Clamped to [3, 18].
func ZoomForRadius(radiusMeters, lat float64) int {
	if radiusMeters <= 0 {
		return 13
	}
	metersPerPixel := (2 * radiusMeters) / 1000
	zoom := math.Log2(156543.03392 * math.Cos(degreesToRadians(lat)) / metersPerPixel)
	z := int(math.Floor(zoom))
	if z < 3 {
		return 3
	}
	if z > 18 {
		return 18
	}
	return z
}

func degreesToRadians(value float64) float64 { return value * math.Pi / 180 }
func radiansToDegrees(value float64) float64 { return value * 180 / math.Pi }

func normalizeLongitude(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
