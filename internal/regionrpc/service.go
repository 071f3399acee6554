// Package regionrpc serves POS parsing over gRPC. The service is described by
// hand with well-known protobuf types, so no generated code is needed:
//
//	service skyregion.v1.RegionService {
//	  rpc ParsePos(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	  rpc Contains(google.protobuf.Struct) returns (google.protobuf.BoolValue);
//	}
package regionrpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalsfoundry/skyregion/internal/logging"
	"github.com/signalsfoundry/skyregion/internal/observability"
	"github.com/signalsfoundry/skyregion/pos"
	"github.com/signalsfoundry/skyregion/sphgeom"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "skyregion.v1.RegionService"

	ParsePosMethod = "/" + ServiceName + "/ParsePos"
	ContainsMethod = "/" + ServiceName + "/Contains"
)

// Field names of the Contains request struct.
const (
	FieldPos = "pos"
	FieldLon = "lon"
	FieldLat = "lat"
)

// RegionServiceServer is the server API for RegionService.
type RegionServiceServer interface {
	ParsePos(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Contains(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
}

// RegionServiceDesc describes RegionService to grpc.Server.
var RegionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ParsePos", Handler: parsePosHandler},
		{MethodName: "Contains", Handler: containsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skyregion/v1/region.proto",
}

// RegisterRegionServiceServer registers srv on s.
func RegisterRegionServiceServer(s grpc.ServiceRegistrar, srv RegionServiceServer) {
	s.RegisterService(&RegionServiceDesc, srv)
}

func parsePosHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServiceServer).ParsePos(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ParsePosMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServiceServer).ParsePos(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func containsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegionServiceServer).Contains(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ContainsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegionServiceServer).Contains(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegionService implements RegionServiceServer on top of the Region class
// factory, so any constructor bound as sphgeom.FromIVOAPos is served. The
// pos import above performs the default binding.
type RegionService struct {
	metrics *observability.ParseCollector
	log     logging.Logger
	parse   sphgeom.Factory
}

// NewRegionService returns a service recording parse metrics on metrics,
// which may be nil.
func NewRegionService(metrics *observability.ParseCollector, log logging.Logger) *RegionService {
	if log == nil {
		log = logging.Noop()
	}
	return &RegionService{
		metrics: metrics,
		log:     log,
		parse:   sphgeom.FromIVOAPos,
	}
}

func (s *RegionService) ParsePos(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	region, err := s.region(ctx, req.GetValue())
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := Encode(region)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func (s *RegionService) Contains(ctx context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	text, err := stringField(req, FieldPos)
	if err != nil {
		return nil, ToStatusError(err)
	}
	lon, err := numberField(req, FieldLon)
	if err != nil {
		return nil, ToStatusError(err)
	}
	lat, err := numberField(req, FieldLat)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if _, err := sphgeom.LonLatFromDegrees(lon, lat); err != nil {
		return nil, ToStatusError(&FieldError{Field: FieldLat, Err: err})
	}

	region, err := s.region(ctx, text)
	if err != nil {
		return nil, ToStatusError(err)
	}
	inside := region.ContainsLonLat(lon, lat)
	logging.FromContext(ctx, s.log).Debug(ctx, "containment test",
		logging.Float64("lon", lon),
		logging.Float64("lat", lat),
		logging.Any("inside", inside),
	)
	return wrapperspb.Bool(inside), nil
}

// region runs the factory inside a child span and records the outcome.
func (s *RegionService) region(ctx context.Context, text string) (sphgeom.Region, error) {
	shape := shapeLabel(text)
	ctx, span := StartChildSpan(ctx, "pos.Parse", attribute.String("pos.shape", shape))
	defer span.End()

	log := logging.FromContext(ctx, s.log)
	start := time.Now()
	region, err := s.parse(text)
	elapsed := time.Since(start)

	if err != nil {
		outcome := observability.OutcomeGeometry
		var formatErr *pos.FormatError
		if errors.As(err, &formatErr) {
			outcome = observability.OutcomeInvalid
		}
		s.metrics.Observe(shape, outcome, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		log.Debug(ctx, "rejected POS string",
			logging.String("shape", shape),
			logging.Int("length", len(text)),
			logging.String("outcome", outcome),
			logging.Err(err),
		)
		return nil, &FieldError{Field: FieldPos, Err: err}
	}

	s.metrics.Observe(shape, observability.OutcomeOK, elapsed)
	span.SetAttributes(attribute.String("region.kind", string(region.Kind())))
	log.Debug(ctx, "parsed POS string",
		logging.String("shape", shape),
		logging.String("region", region.String()),
	)
	return region, nil
}

func shapeLabel(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", &FieldError{Field: name, Err: fmt.Errorf("%w: missing", ErrInvalidRequest)}
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", &FieldError{Field: name, Err: fmt.Errorf("%w: want string", ErrInvalidRequest)}
	}
	return s.StringValue, nil
}

func numberField(req *structpb.Struct, name string) (float64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, &FieldError{Field: name, Err: fmt.Errorf("%w: missing", ErrInvalidRequest)}
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, &FieldError{Field: name, Err: fmt.Errorf("%w: want number", ErrInvalidRequest)}
	}
	return n.NumberValue, nil
}
