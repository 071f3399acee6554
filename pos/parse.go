// Package pos parses IVOA SIAv2 POS strings into sphgeom regions.
//
// The supported forms, all in degrees, are:
//
//	CIRCLE <longitude> <latitude> <radius>
//	RANGE <longitude1> <longitude2> <latitude1> <latitude2>
//	POLYGON <longitude1> <latitude1> ... (at least 3 pairs)
//
// RANGE bounds may be +Inf or -Inf. An infinite latitude maps to the pole
// with the same sign; an infinite longitude on either side selects every
// longitude.
//
// See https://ivoa.net/documents/SIA/20151223/REC-SIA-2.0-20151223.html#toc12.
package pos

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/signalsfoundry/skyregion/model"
	"github.com/signalsfoundry/skyregion/sphgeom"
)

// Parse builds the region described by a POS string. Malformed input yields
// a *FormatError; coordinates the geometry rejects yield a wrapped sphgeom
// error. No region is returned alongside an error.
func Parse(pos string) (sphgeom.Region, error) {
	cmd, err := ParseCommand(pos)
	if err != nil {
		return nil, err
	}
	region, err := Build(cmd)
	if err != nil {
		return nil, fmt.Errorf("POS string %q: %w", pos, err)
	}
	return region, nil
}

// ParseCommand tokenizes and validates a POS string without building any
// geometry.
func ParseCommand(pos string) (model.Command, error) {
	fields := strings.Fields(pos)
	if len(fields) == 0 {
		return nil, &FormatError{Kind: ErrUnrecognizedShape, Input: pos}
	}
	keyword, tokens := fields[0], fields[1:]

	values := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := parseNumber(tok)
		if err != nil {
			return nil, &FormatError{Kind: ErrNonNumericToken, Token: tok, Input: pos}
		}
		values[i] = v
	}

	shape, ok := model.LookupShape(keyword)
	if !ok {
		return nil, &FormatError{Kind: ErrUnrecognizedShape, Token: keyword, Input: pos}
	}

	switch shape {
	case model.ShapeCircle:
		if err := checkArity(shape, values, pos); err != nil {
			return nil, err
		}
		return model.CircleCommand{Lon: values[0], Lat: values[1], Radius: values[2]}, nil

	case model.ShapeRange:
		if err := checkArity(shape, values, pos); err != nil {
			return nil, err
		}
		return model.RangeCommand{Lon1: values[0], Lon2: values[1], Lat1: values[2], Lat2: values[3]}, nil

	case model.ShapePolygon:
		n := len(values)
		if n%2 != 0 {
			return nil, &FormatError{Kind: ErrOddCoordinateCount, Shape: shape, Got: n, Input: pos}
		}
		if n < 6 {
			return nil, &FormatError{Kind: ErrTooFewVertices, Shape: shape, Got: n / 2, Input: pos}
		}
		vertices := make([]model.Coordinate, 0, n/2)
		for i := 0; i < n; i += 2 {
			vertices = append(vertices, model.Coordinate{Lon: values[i], Lat: values[i+1]})
		}
		return model.PolygonCommand{Vertices: vertices}, nil
	}

	return nil, &FormatError{Kind: ErrUnrecognizedShape, Token: keyword, Input: pos}
}

// Build constructs the region for a validated command.
func Build(cmd model.Command) (sphgeom.Region, error) {
	switch c := cmd.(type) {
	case model.CircleCommand:
		center, err := sphgeom.DirectionFromDegrees(c.Lon, c.Lat)
		if err != nil {
			return nil, err
		}
		return sphgeom.NewCircle(center, sphgeom.AngleFromDegrees(c.Radius)), nil

	case model.RangeCommand:
		return buildRange(c)

	case model.PolygonCommand:
		vertices := make([]s2.Point, 0, len(c.Vertices))
		for _, v := range c.Vertices {
			p, err := sphgeom.DirectionFromDegrees(v.Lon, v.Lat)
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, p)
		}
		polygon, err := sphgeom.NewConvexPolygon(vertices)
		if err != nil {
			return nil, err
		}
		return polygon, nil

	default:
		return nil, fmt.Errorf("unsupported POS command %T", cmd)
	}
}

func buildRange(c model.RangeCommand) (sphgeom.Region, error) {
	lat1, lat2 := infToLat(c.Lat1), infToLat(c.Lat2)

	if math.IsInf(c.Lon1, 0) || math.IsInf(c.Lon2, 0) {
		lat, err := sphgeom.LatitudeFromDegrees(lat1, lat2)
		if err != nil {
			return nil, err
		}
		return sphgeom.NewBox(sphgeom.FullLongitude(), lat), nil
	}

	p1, err := sphgeom.LonLatFromDegrees(c.Lon1, lat1)
	if err != nil {
		return nil, err
	}
	p2, err := sphgeom.LonLatFromDegrees(c.Lon2, lat2)
	if err != nil {
		return nil, err
	}
	return sphgeom.NewBoxFromCorners(p1, p2), nil
}

// infToLat maps +Inf to 90 and -Inf to -90 degrees.
func infToLat(lat float64) float64 {
	if !math.IsInf(lat, 0) {
		return lat
	}
	if lat > 0 {
		return 90
	}
	return -90
}

func checkArity(shape model.Shape, values []float64, pos string) error {
	if want := shape.Arity(); len(values) != want {
		return &FormatError{
			Kind:     ErrWrongArgumentCount,
			Shape:    shape,
			Expected: want,
			Got:      len(values),
			Input:    pos,
		}
	}
	return nil
}

// parseNumber accepts decimal literals and the signed infinities and NaN.
// Overflowing literals become infinities.
func parseNumber(tok string) (float64, error) {
	if strings.ContainsAny(tok, "xX_") {
		return 0, fmt.Errorf("not a decimal literal: %q", tok)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return v, nil
		}
		return 0, err
	}
	return v, nil
}
