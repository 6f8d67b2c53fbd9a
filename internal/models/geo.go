package models

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
)

// GeoPoint представляет географическую точку траектории
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"alt"`
}

// Validate проверяет корректность координат
func (p GeoPoint) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f", p.Latitude)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f", p.Longitude)
	}
	return nil
}

// DistanceTo вычисляет расстояние до другой точки в километрах (формула Haversine)
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	const earthRadius = 6371 // км

	lat1Rad := p.Latitude * math.Pi / 180
	lat2Rad := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - p.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// DistanceMeters расстояние до другой точки в метрах
func (p GeoPoint) DistanceMeters(other GeoPoint) float64 {
	return p.DistanceTo(other) * 1000
}

// Geohash возвращает geohash для точки с заданной точностью
func (p GeoPoint) Geohash(precision int) string {
	return geohash.EncodeWithPrecision(p.Latitude, p.Longitude, uint(precision))
}

// Bounds представляет географические границы
type Bounds struct {
	Southwest GeoPoint `json:"sw"`
	Northeast GeoPoint `json:"ne"`
}

// BoundsOf возвращает минимальный прямоугольник, содержащий все валидные точки
func BoundsOf(points []GeoPoint) (Bounds, bool) {
	var b Bounds
	found := false
	for _, p := range points {
		if p.Validate() != nil {
			continue
		}
		if !found {
			b = Bounds{Southwest: p, Northeast: p}
			found = true
			continue
		}
		b.Southwest.Latitude = math.Min(b.Southwest.Latitude, p.Latitude)
		b.Southwest.Longitude = math.Min(b.Southwest.Longitude, p.Longitude)
		b.Northeast.Latitude = math.Max(b.Northeast.Latitude, p.Latitude)
		b.Northeast.Longitude = math.Max(b.Northeast.Longitude, p.Longitude)
	}
	// Высота в границах не используется
	b.Southwest.Altitude = 0
	b.Northeast.Altitude = 0
	return b, found
}

// Center возвращает центральную точку границ
func (b Bounds) Center() GeoPoint {
	return GeoPoint{
		Latitude:  (b.Southwest.Latitude + b.Northeast.Latitude) / 2,
		Longitude: (b.Southwest.Longitude + b.Northeast.Longitude) / 2,
	}
}

// DiagonalKm возвращает диагональ границ в километрах
func (b Bounds) DiagonalKm() float64 {
	return b.Southwest.DistanceTo(b.Northeast)
}
