// Package sphgeom exposes the spherical regions produced from POS strings:
// circles, longitude/latitude boxes and convex polygons on the unit sphere.
// The math is delegated to github.com/golang/geo; this package only adds the
// constructors the parser needs and the degree-based conventions of POS.
package sphgeom

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

var (
	ErrInvalidLatitude    = errors.New("latitude outside [-90, 90] degrees")
	ErrDegeneratePolygon  = errors.New("convex polygon needs at least 3 vertices")
	ErrNotConvex          = errors.New("vertices do not form a convex polygon")
	ErrInvalidPolygonLoop = errors.New("invalid polygon loop")
)

// LonLat is a point given by longitude and latitude angles.
type LonLat struct {
	Lon s1.Angle
	Lat s1.Angle
}

// LonLatFromDegrees builds a LonLat, rejecting latitudes beyond the poles.
// Longitude is kept as given; wrapping is applied where it matters.
func LonLatFromDegrees(lon, lat float64) (LonLat, error) {
	if math.Abs(lat) > 90 {
		return LonLat{}, fmt.Errorf("%w: %g", ErrInvalidLatitude, lat)
	}
	return LonLat{Lon: degrees(lon), Lat: degrees(lat)}, nil
}

// LatLng converts to the golang/geo representation.
func (p LonLat) LatLng() s2.LatLng {
	return s2.LatLng{Lat: p.Lat, Lng: p.Lon}
}

// Direction returns the unit vector pointing at p.
func (p LonLat) Direction() s2.Point {
	return s2.PointFromLatLng(p.LatLng())
}

// DirectionFromDegrees returns the unit vector for (lon, lat) in degrees.
func DirectionFromDegrees(lon, lat float64) (s2.Point, error) {
	p, err := LonLatFromDegrees(lon, lat)
	if err != nil {
		return s2.Point{}, err
	}
	return p.Direction(), nil
}

// AngleFromDegrees converts degrees to an angle.
func AngleFromDegrees(v float64) s1.Angle {
	return degrees(v)
}

// FullLongitude is the longitude interval covering the whole circle.
func FullLongitude() s1.Interval {
	return s1.FullInterval()
}

// LatitudeFromDegrees returns the closed latitude interval between lo and hi.
// The bounds may be given in either order.
func LatitudeFromDegrees(lo, hi float64) (r1.Interval, error) {
	for _, v := range []float64{lo, hi} {
		if math.Abs(v) > 90 {
			return r1.Interval{}, fmt.Errorf("%w: %g", ErrInvalidLatitude, v)
		}
	}
	return r1.IntervalFromPoint(degrees(lo).Radians()).AddPoint(degrees(hi).Radians()), nil
}

// longitudeFromAngles returns the interval running east from lo to hi,
// wrapping through 180 degrees when lo > hi once both are reduced to one
// turn. Bounds a full turn or more apart give the full interval.
func longitudeFromAngles(lo, hi s1.Angle) s1.Interval {
	if (hi - lo).Radians() >= 2*math.Pi-fullTurnSlack {
		return s1.FullInterval()
	}
	return s1.IntervalFromEndpoints(wrap(lo), wrap(hi))
}

// fullTurnSlack absorbs the rounding of degree to radian conversion.
const fullTurnSlack = 1e-12

// degrees converts to radians; the poles map to exactly ±π/2.
func degrees(v float64) s1.Angle {
	switch v {
	case 90:
		return s1.Angle(math.Pi / 2)
	case -90:
		return s1.Angle(-math.Pi / 2)
	}
	return s1.Angle(v) * s1.Degree
}

// wrap reduces a to [-π, π] in radians.
func wrap(a s1.Angle) float64 {
	return math.Remainder(a.Radians(), 2*math.Pi)
}

// normalizedDegrees maps an angle to [0, 360) degrees.
func normalizedDegrees(a s1.Angle) float64 {
	d := math.Mod(a.Degrees(), 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
