package regionrpc

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/skyregion/sphgeom"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrUnsupportedRegion is returned by Encode for Region implementations it
// has no wire form for.
var ErrUnsupportedRegion = errors.New("unsupported region type")

// Encode renders a region as a google.protobuf.Struct. Longitudes are in
// [0, 360) degrees, latitudes and radii in degrees. An empty circle has
// radius -1.
//
//	circle:         {type, center: {lon, lat}, radius}
//	box:            {type, lon: [lo, hi], lat: [lo, hi], full_longitude}
//	convex_polygon: {type, vertices: [[lon, lat], ...]}
func Encode(region sphgeom.Region) (*structpb.Struct, error) {
	var fields map[string]any

	switch r := region.(type) {
	case *sphgeom.Circle:
		lon, lat := r.CenterLonLat()
		fields = map[string]any{
			"center": map[string]any{"lon": lon, "lat": lat},
			"radius": r.RadiusDegrees(),
		}
	case *sphgeom.Box:
		lonLo, lonHi := r.LongitudeDegrees()
		latLo, latHi := r.LatitudeDegrees()
		fields = map[string]any{
			"lon":            []any{lonLo, lonHi},
			"lat":            []any{latLo, latHi},
			"full_longitude": r.FullLongitude(),
		}
	case *sphgeom.ConvexPolygon:
		verts := r.VerticesLonLat()
		list := make([]any, len(verts))
		for i, v := range verts {
			list[i] = []any{v[0], v[1]}
		}
		fields = map[string]any{"vertices": list}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedRegion, region)
	}

	fields["type"] = string(region.Kind())
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", region.Kind(), err)
	}
	return out, nil
}
