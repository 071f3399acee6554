package model

import (
	"strconv"
	"strings"
)

// Shape identifies the leading keyword of a POS string.
type Shape string

const (
	ShapeCircle  Shape = "CIRCLE"
	ShapeRange   Shape = "RANGE"
	ShapePolygon Shape = "POLYGON"
)

// LookupShape resolves a POS keyword. Matching is exact and case-sensitive.
func LookupShape(keyword string) (Shape, bool) {
	switch Shape(keyword) {
	case ShapeCircle, ShapeRange, ShapePolygon:
		return Shape(keyword), true
	default:
		return "", false
	}
}

// Arity returns the exact number of coordinates a shape takes, or -1 for
// shapes with a variable coordinate count.
func (s Shape) Arity() int {
	switch s {
	case ShapeCircle:
		return 3
	case ShapeRange:
		return 4
	default:
		return -1
	}
}

// Coordinate is a (longitude, latitude) pair in degrees.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Command is the validated intent of a POS string. The concrete type is one
// of CircleCommand, RangeCommand or PolygonCommand.
type Command interface {
	Shape() Shape
	String() string
	command()
}

// CircleCommand describes CIRCLE <lon> <lat> <radius>.
type CircleCommand struct {
	Lon    float64
	Lat    float64
	Radius float64
}

// RangeCommand describes RANGE <lon1> <lon2> <lat1> <lat2>. Bounds may be
// infinite.
type RangeCommand struct {
	Lon1 float64
	Lon2 float64
	Lat1 float64
	Lat2 float64
}

// PolygonCommand describes POLYGON <lon1> <lat1> ... with vertices kept in
// input order.
type PolygonCommand struct {
	Vertices []Coordinate
}

func (CircleCommand) Shape() Shape  { return ShapeCircle }
func (RangeCommand) Shape() Shape   { return ShapeRange }
func (PolygonCommand) Shape() Shape { return ShapePolygon }

func (CircleCommand) command()  {}
func (RangeCommand) command()   {}
func (PolygonCommand) command() {}

// String renders the command back into POS syntax.
func (c CircleCommand) String() string {
	return format(ShapeCircle, c.Lon, c.Lat, c.Radius)
}

// String renders the command back into POS syntax.
func (c RangeCommand) String() string {
	return format(ShapeRange, c.Lon1, c.Lon2, c.Lat1, c.Lat2)
}

// String renders the command back into POS syntax.
func (c PolygonCommand) String() string {
	values := make([]float64, 0, 2*len(c.Vertices))
	for _, v := range c.Vertices {
		values = append(values, v.Lon, v.Lat)
	}
	return format(ShapePolygon, values...)
}

func format(shape Shape, values ...float64) string {
	var b strings.Builder
	b.WriteString(string(shape))
	for _, v := range values {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return b.String()
}
