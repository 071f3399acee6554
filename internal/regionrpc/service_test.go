package regionrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/signalsfoundry/skyregion/internal/logging"
	"github.com/signalsfoundry/skyregion/internal/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type testEnv struct {
	ctx     context.Context
	client  *Client
	conn    *grpc.ClientConn
	parses  *observability.ParseCollector
	rpcs    *observability.RPCCollector
	service *RegionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	parses, err := observability.NewParseCollector(reg)
	if err != nil {
		t.Fatalf("NewParseCollector: %v", err)
	}
	rpcs, err := observability.NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	svc := NewRegionService(parses, logging.Noop())
	srv := NewServer(svc, rpcs, logging.Noop())

	lis := bufconn.Listen(1 << 20)
	serveCtx, stopServe := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(serveCtx, lis) }()
	t.Cleanup(func() {
		stopServe()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})

	conn, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &testEnv{
		ctx:     ctx,
		client:  NewClient(conn),
		conn:    conn,
		parses:  parses,
		rpcs:    rpcs,
		service: svc,
	}
}

func TestParsePosRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.client.ParsePos(env.ctx, "CIRCLE 10 20 5")
	if err != nil {
		t.Fatalf("ParsePos: %v", err)
	}

	want := map[string]any{
		"type":   "circle",
		"center": map[string]any{"lon": 10.0, "lat": 20.0},
		"radius": 5.0,
	}
	if diff := cmp.Diff(want, got.AsMap(), approxFloats); diff != "" {
		t.Fatalf("ParsePos mismatch (-want +got):\n%s", diff)
	}

	if v := testutil.ToFloat64(env.parses.Parses.WithLabelValues("CIRCLE", observability.OutcomeOK)); v != 1 {
		t.Fatalf("pos_parse_total{CIRCLE,ok} = %v, want 1", v)
	}
	if v := testutil.ToFloat64(env.rpcs.RPCRequests.WithLabelValues("RegionService", "ParsePos", "OK")); v != 1 {
		t.Fatalf("region_rpc_requests_total = %v, want 1", v)
	}
}

func TestParsePosErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		pos     string
		outcome string
		shape   string
	}{
		{name: "wrong arity", pos: "CIRCLE 1 2", outcome: observability.OutcomeInvalid, shape: "CIRCLE"},
		{name: "unknown shape", pos: "SQUARE 1 2 3", outcome: observability.OutcomeInvalid, shape: "other"},
		{name: "latitude out of range", pos: "CIRCLE 0 95 1", outcome: observability.OutcomeGeometry, shape: "CIRCLE"},
		{name: "collinear polygon", pos: "POLYGON 0 0 10 0 20 0", outcome: observability.OutcomeGeometry, shape: "POLYGON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(env.parses.Parses.WithLabelValues(tt.shape, tt.outcome))

			_, err := env.client.ParsePos(env.ctx, tt.pos)
			if code := status.Code(err); code != codes.InvalidArgument {
				t.Fatalf("code = %v, want InvalidArgument (err=%v)", code, err)
			}
			if diff := cmp.Diff([]string{FieldPos}, FieldViolations(err)); diff != "" {
				t.Fatalf("field violations mismatch (-want +got):\n%s", diff)
			}

			after := testutil.ToFloat64(env.parses.Parses.WithLabelValues(tt.shape, tt.outcome))
			if after != before+1 {
				t.Fatalf("pos_parse_total{%s,%s} = %v, want %v", tt.shape, tt.outcome, after, before+1)
			}
		})
	}
}

func TestContains(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		pos      string
		lon, lat float64
		want     bool
	}{
		{pos: "CIRCLE 10 20 5", lon: 11, lat: 21, want: true},
		{pos: "CIRCLE 10 20 5", lon: 30, lat: 20, want: false},
		{pos: "RANGE 350 10 -5 5", lon: 0, lat: 0, want: true},
		{pos: "RANGE 350 10 -5 5", lon: 180, lat: 0, want: false},
		{pos: "RANGE -Inf Inf 10 20", lon: 123, lat: 15, want: true},
		{pos: "POLYGON 0 0 10 0 10 10 0 10", lon: 5, lat: 5, want: true},
		{pos: "POLYGON 0 0 0 10 10 10 10 0", lon: 5, lat: 5, want: true},
		{pos: "POLYGON 0 0 10 0 10 10 0 10", lon: 20, lat: 5, want: false},
	}
	for _, tt := range tests {
		got, err := env.client.Contains(env.ctx, tt.pos, tt.lon, tt.lat)
		if err != nil {
			t.Fatalf("Contains(%q, %g, %g): %v", tt.pos, tt.lon, tt.lat, err)
		}
		if got != tt.want {
			t.Fatalf("Contains(%q, %g, %g) = %v, want %v", tt.pos, tt.lon, tt.lat, got, tt.want)
		}
	}
}

func TestContainsRejectsMalformedRequests(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		req   map[string]any
		field string
	}{
		{name: "missing pos", req: map[string]any{"lon": 1.0, "lat": 2.0}, field: FieldPos},
		{name: "pos not a string", req: map[string]any{"pos": 3.0, "lon": 1.0, "lat": 2.0}, field: FieldPos},
		{name: "missing lon", req: map[string]any{"pos": "CIRCLE 0 0 1", "lat": 2.0}, field: FieldLon},
		{name: "lat not a number", req: map[string]any{"pos": "CIRCLE 0 0 1", "lon": 1.0, "lat": "north"}, field: FieldLat},
		{name: "lat beyond pole", req: map[string]any{"pos": "CIRCLE 0 0 1", "lon": 1.0, "lat": 91.0}, field: FieldLat},
		{name: "bad pos", req: map[string]any{"pos": "CIRCLE", "lon": 1.0, "lat": 2.0}, field: FieldPos},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := structpb.NewStruct(tt.req)
			if err != nil {
				t.Fatalf("NewStruct: %v", err)
			}
			_, err = env.service.Contains(env.ctx, req)
			if code := status.Code(err); code != codes.InvalidArgument {
				t.Fatalf("code = %v, want InvalidArgument (err=%v)", code, err)
			}
			if diff := cmp.Diff([]string{tt.field}, FieldViolations(err)); diff != "" {
				t.Fatalf("field violations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHealthServing(t *testing.T) {
	env := newTestEnv(t)

	resp, err := healthpb.NewHealthClient(env.conn).Check(env.ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %v, want SERVING", resp.GetStatus())
	}
}

func TestContainsLogsCoordinates(t *testing.T) {
	var buf bytes.Buffer
	svc := NewRegionService(nil, logging.NewWithWriter(logging.Config{Level: "debug", Format: "json"}, &buf))

	req, err := structpb.NewStruct(map[string]any{"pos": "CIRCLE 10 20 5", "lon": 11.0, "lat": 21.0})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	if _, err := svc.Contains(context.Background(), req); err != nil {
		t.Fatalf("Contains: %v", err)
	}

	var last map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		last = nil
		if err := json.Unmarshal(line, &last); err != nil {
			t.Fatalf("log line is not JSON: %v (%q)", err, line)
		}
	}
	want := map[string]any{"lon": 11.0, "lat": 21.0, "inside": true}
	for k, v := range want {
		if last[k] != v {
			t.Fatalf("log field %s = %v, want %v (record %v)", k, last[k], v, last)
		}
	}
}

func TestServerStopEndsServe(t *testing.T) {
	srv := NewServer(NewRegionService(nil, nil), nil, nil)
	lis := bufconn.Listen(1 << 20)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), lis) }()

	conn, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewClient(conn).ParsePos(ctx, "CIRCLE 0 0 1"); err != nil {
		t.Fatalf("ParsePos before Stop: %v", err)
	}

	srv.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve after Stop = %v, want nil", err)
		}
	case <-ctx.Done():
		t.Fatalf("Serve did not return after Stop")
	}

	if _, err := NewClient(conn).ParsePos(ctx, "CIRCLE 0 0 1"); status.Code(err) != codes.Unavailable {
		t.Fatalf("ParsePos after Stop code = %v, want Unavailable", status.Code(err))
	}
}

func TestRequestIDUnaryServerInterceptor(t *testing.T) {
	interceptor := RequestIDUnaryServerInterceptor(logging.Noop())
	info := &grpc.UnaryServerInfo{FullMethod: ParsePosMethod}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDMetadataKey, "req-42"))
	var seen string
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = logging.RequestIDFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if seen != "req-42" {
		t.Fatalf("request id = %q, want req-42", seen)
	}

	_, _ = interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = logging.RequestIDFromContext(ctx)
		return nil, nil
	})
	if seen == "" || seen == "req-42" {
		t.Fatalf("expected a generated request id, got %q", seen)
	}
}
