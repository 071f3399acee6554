package sphgeom

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Kind identifies the concrete region type.
type Kind string

const (
	KindCircle        Kind = "circle"
	KindBox           Kind = "box"
	KindConvexPolygon Kind = "convex_polygon"
)

// Region is a closed subset of the unit sphere.
type Region interface {
	s2.Region

	Kind() Kind
	// ContainsLonLat reports whether the point at (lon, lat) degrees lies in
	// the region.
	ContainsLonLat(lon, lat float64) bool
	String() string
}

var (
	_ Region = (*Circle)(nil)
	_ Region = (*Box)(nil)
	_ Region = (*ConvexPolygon)(nil)
)

// Circle is a spherical cap: every point within Radius of Center.
type Circle struct {
	s2.Cap
}

// NewCircle builds the circle of the given angular radius around center. A
// negative radius yields the empty circle and a radius of 180 degrees or
// more the full sphere.
func NewCircle(center s2.Point, radius s1.Angle) *Circle {
	return &Circle{Cap: s2.CapFromCenterAngle(center, radius)}
}

func (*Circle) Kind() Kind { return KindCircle }

// CenterLonLat returns the centre as (lon, lat) degrees with lon in [0, 360).
func (c *Circle) CenterLonLat() (lon, lat float64) {
	ll := s2.LatLngFromPoint(c.Center())
	return normalizedDegrees(ll.Lng), ll.Lat.Degrees()
}

// EmptyRadius is the radius reported for the empty circle.
const EmptyRadius = -1.0

// RadiusDegrees returns the opening angle in degrees, in [0, 180]. The empty
// circle reports EmptyRadius and the full sphere 180.
func (c *Circle) RadiusDegrees() float64 {
	switch {
	case c.IsEmpty():
		return EmptyRadius
	case c.IsFull():
		return 180
	}
	return math.Min(c.Radius().Degrees(), 180)
}

func (c *Circle) ContainsLonLat(lon, lat float64) bool {
	return c.ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}

func (c *Circle) String() string {
	lon, lat := c.CenterLonLat()
	return fmt.Sprintf("Circle(center=(%g, %g), radius=%g)", lon, lat, c.RadiusDegrees())
}

// Box is a longitude/latitude rectangle.
type Box struct {
	s2.Rect
}

// NewBox builds a box from a longitude and a latitude interval.
func NewBox(lon s1.Interval, lat r1.Interval) *Box {
	return &Box{Rect: s2.Rect{Lat: lat, Lng: lon}}
}

// NewBoxFromCorners builds the box with p1 and p2 as opposite corners. The
// longitude range runs east from p1 to p2 and covers the whole circle when
// the corners are at least 360 degrees apart.
func NewBoxFromCorners(p1, p2 LonLat) *Box {
	lon := longitudeFromAngles(p1.Lon, p2.Lon)
	lat := r1.IntervalFromPoint(p1.Lat.Radians()).AddPoint(p2.Lat.Radians())
	return NewBox(lon, lat)
}

func (*Box) Kind() Kind { return KindBox }

// FullLongitude reports whether the box spans every longitude.
func (b *Box) FullLongitude() bool {
	return b.Lng.IsFull()
}

// LongitudeDegrees returns the longitude bounds in [0, 360). For a wrapping
// box lo > hi.
func (b *Box) LongitudeDegrees() (lo, hi float64) {
	if b.FullLongitude() {
		return 0, 360
	}
	return normalizedDegrees(s1.Angle(b.Lng.Lo)), normalizedDegrees(s1.Angle(b.Lng.Hi))
}

// LatitudeDegrees returns the latitude bounds.
func (b *Box) LatitudeDegrees() (lo, hi float64) {
	return s1.Angle(b.Lat.Lo).Degrees(), s1.Angle(b.Lat.Hi).Degrees()
}

func (b *Box) ContainsLonLat(lon, lat float64) bool {
	return b.ContainsLatLng(s2.LatLngFromDegrees(lat, lon).Normalized())
}

func (b *Box) String() string {
	lonLo, lonHi := b.LongitudeDegrees()
	latLo, latHi := b.LatitudeDegrees()
	return fmt.Sprintf("Box(lon=[%g, %g], lat=[%g, %g])", lonLo, lonHi, latLo, latHi)
}

// ConvexPolygon is a convex polygon whose edges are great-circle arcs.
type ConvexPolygon struct {
	*s2.Loop
	vertices []s2.Point
}

// collinearEpsilon bounds the triple product of three vertices treated as
// lying on one great circle.
const collinearEpsilon = 1e-15

// NewConvexPolygon builds a polygon from vertices in order. Consecutive
// turns must all bend the same way and the boundary must not cross itself;
// clockwise input is accepted and enclosed the same as its
// counter-clockwise reversal.
func NewConvexPolygon(vertices []s2.Point) (*ConvexPolygon, error) {
	n := len(vertices)
	if n < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrDegeneratePolygon, n)
	}

	var orientation s2.Direction
	for i := range vertices {
		a, b, c := vertices[i], vertices[(i+1)%n], vertices[(i+2)%n]
		// Negated so NaN coordinates are rejected too.
		if !(math.Abs(a.Vector.Cross(b.Vector).Dot(c.Vector)) > collinearEpsilon) {
			return nil, fmt.Errorf("%w: vertices %d..%d are collinear or repeated", ErrNotConvex, i, (i+2)%n)
		}
		d := s2.RobustSign(a, b, c)
		if i == 0 {
			orientation = d
			continue
		}
		if d != orientation {
			return nil, fmt.Errorf("%w: turn at vertex %d changes direction", ErrNotConvex, (i+1)%n)
		}
	}

	// Every vertex must lie on the inner side of each edge it is not part
	// of; a star has consistent turns but fails this.
	for i := range vertices {
		a, b := vertices[i], vertices[(i+1)%n]
		for j := range vertices {
			if j == i || j == (i+1)%n {
				continue
			}
			if s2.RobustSign(a, b, vertices[j]) != orientation {
				return nil, fmt.Errorf("%w: vertex %d lies outside edge %d-%d", ErrNotConvex, j, i, (i+1)%n)
			}
		}
	}

	ring := make([]s2.Point, n)
	copy(ring, vertices)
	if orientation == s2.Clockwise {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			ring[i], ring[j] = ring[j], ring[i]
		}
	}
	loop := s2.LoopFromPoints(ring)
	if err := loop.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolygonLoop, err)
	}

	kept := make([]s2.Point, n)
	copy(kept, vertices)
	return &ConvexPolygon{Loop: loop, vertices: kept}, nil
}

func (*ConvexPolygon) Kind() Kind { return KindConvexPolygon }

// Vertices returns the vertices in the order they were given.
func (p *ConvexPolygon) Vertices() []s2.Point {
	out := make([]s2.Point, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// VerticesLonLat returns the vertices as (lon, lat) degrees, lon in [0, 360).
func (p *ConvexPolygon) VerticesLonLat() [][2]float64 {
	out := make([][2]float64, len(p.vertices))
	for i, v := range p.vertices {
		ll := s2.LatLngFromPoint(v)
		out[i] = [2]float64{normalizedDegrees(ll.Lng), ll.Lat.Degrees()}
	}
	return out
}

func (p *ConvexPolygon) ContainsLonLat(lon, lat float64) bool {
	return p.ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}

func (p *ConvexPolygon) String() string {
	parts := make([]string, 0, len(p.vertices))
	for _, v := range p.VerticesLonLat() {
		parts = append(parts, fmt.Sprintf("(%g, %g)", v[0], v[1]))
	}
	return "ConvexPolygon(" + strings.Join(parts, ", ") + ")"
}
