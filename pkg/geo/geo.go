package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	earthRadiusKm = 6371.0
	// degrees of latitude per kilometer is effectively constant
	kmPerLatDegree = 111.0
)

// Point builds an orb.Point from a latitude/longitude pair. orb stores
// points as (lon, lat).
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Valid reports whether the point is a finite, in-range coordinate.
func Valid(p orb.Point) bool {
	lat, lon := p.Lat(), p.Lon()
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// DistanceKm returns the great-circle distance between two points using the
// haversine formula.
func DistanceKm(a, b orb.Point) float64 {
	dLat := degreesToRadians(b.Lat() - a.Lat())
	dLon := degreesToRadians(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(a.Lat()))*math.Cos(degreesToRadians(b.Lat()))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// BearingDegrees returns the initial bearing from a to b in [0, 360).
func BearingDegrees(a, b orb.Point) float64 {
	lat1 := degreesToRadians(a.Lat())
	lat2 := degreesToRadians(b.Lat())
	dLon := degreesToRadians(b.Lon() - a.Lon())

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := radiansToDegrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// BoundingBox is a latitude/longitude rectangle around a center point.
type BoundingBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// NewBoundingBox returns the box enclosing a circle of radiusKm around
// center. The longitude delta is corrected by cos(latitude); when that
// correction underflows near the poles the box spans all longitudes.
func NewBoundingBox(center orb.Point, radiusKm float64) BoundingBox {
	latDelta := radiansToDegrees(radiusKm / earthRadiusKm)

	north := math.Min(center.Lat()+latDelta, 90)
	south := math.Max(center.Lat()-latDelta, -90)

	cosLat := math.Cos(degreesToRadians(center.Lat()))
	if math.Abs(cosLat) < 1e-10 {
		return BoundingBox{North: north, South: south, East: 180, West: -180}
	}

	lonDelta := radiansToDegrees(radiusKm / (earthRadiusKm * cosLat))
	return BoundingBox{
		North: north,
		South: south,
		East:  center.Lon() + lonDelta,
		West:  center.Lon() - lonDelta,
	}
}

// Bound returns the box as an orb.Bound.
func (b BoundingBox) Bound() orb.Bound {
	bound := orb.Bound{Min: orb.Point{b.West, b.South}, Max: orb.Point{b.West, b.South}}
	return bound.Extend(orb.Point{b.East, b.North})
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() orb.Point {
	return b.Bound().Center()
}

// CenterOfMass averages coordinates through 3D unit vectors, which keeps the
// result stable across the antimeridian and near the poles. Returns false
// when the input is empty.
func CenterOfMass(points []orb.Point) (orb.Point, bool) {
	if len(points) == 0 {
		return orb.Point{}, false
	}

	var x, y, z float64
	for _, p := range points {
		lat := degreesToRadians(p.Lat())
		lon := degreesToRadians(p.Lon())
		x += math.Cos(lat) * math.Cos(lon)
		y += math.Cos(lat) * math.Sin(lon)
		z += math.Sin(lat)
	}

	n := float64(len(points))
	x, y, z = x/n, y/n, z/n

	lon := math.Atan2(y, x)
	hyp := math.Sqrt(x*x + y*y)
	lat := math.Atan2(z, hyp)

	return Point(radiansToDegrees(lat), radiansToDegrees(lon)), true
}

// Tile is one unvisited cell of a coverage grid.
type Tile struct {
	Row    int
	Col    int
	Center orb.Point
	ID     string
}

// CoverageGrid tiles the box with cells of roughly cellSizeKm per side,
// boundary inclusive. Tiles are ordered row-major from the south-west corner.
func CoverageGrid(box BoundingBox, cellSizeKm float64) []Tile {
	if cellSizeKm <= 0 {
		return nil
	}

	latSpan := box.North - box.South
	lonSpan := box.East - box.West
	if latSpan < 0 || lonSpan < 0 {
		return nil
	}

	latStep := cellSizeKm / kmPerLatDegree

	meanLat := (box.North + box.South) / 2
	cosMean := math.Cos(degreesToRadians(meanLat))
	lonStep := lonSpan
	if math.Abs(cosMean) >= 1e-10 {
		lonStep = cellSizeKm / (kmPerLatDegree * cosMean)
	}

	rows := stepCount(latSpan, latStep)
	cols := stepCount(lonSpan, lonStep)

	tiles := make([]Tile, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			lat := box.South + float64(row)*latStep
			lon := box.West + float64(col)*lonStep
			tiles = append(tiles, Tile{
				Row:    row,
				Col:    col,
				Center: Point(lat, lon),
				ID:     fmt.Sprintf("cell_%d_%d", row, col),
			})
		}
	}
	return tiles
}

// stepCount returns the number of boundary-inclusive steps covering span.
func stepCount(span, step float64) int {
	if step <= 0 || span <= 0 {
		return 1
	}
	return int(math.Ceil(span/step-1e-9)) + 1
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func radiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
