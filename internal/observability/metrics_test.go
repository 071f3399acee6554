package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const parsePosMethod = "/skyregion.v1.RegionService/ParsePos"

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: parsePosMethod}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("RegionService", "ParsePos", "OK")); got != 1 {
		t.Fatalf("region_rpc_requests_total = %v, want 1", got)
	}

	if count := histogramSampleCount(t, reg, "region_rpc_request_duration_seconds", map[string]string{
		"service": "RegionService",
		"method":  "ParsePos",
	}); count != 1 {
		t.Fatalf("region_rpc_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: parsePosMethod}

	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.InvalidArgument, "boom")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("RegionService", "ParsePos", "InvalidArgument")); got != 1 {
		t.Fatalf("region_rpc_requests_total error label = %v, want 1", got)
	}
}

func TestParseCollectorObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewParseCollector(reg)
	if err != nil {
		t.Fatalf("NewParseCollector: %v", err)
	}

	collector.Observe("CIRCLE", OutcomeOK, time.Microsecond)
	collector.Observe("CIRCLE", OutcomeOK, time.Microsecond)
	collector.Observe("SQUARE", OutcomeInvalid, time.Microsecond)

	if got := testutil.ToFloat64(collector.Parses.WithLabelValues("CIRCLE", OutcomeOK)); got != 2 {
		t.Fatalf("pos_parse_total{CIRCLE,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Parses.WithLabelValues("other", OutcomeInvalid)); got != 1 {
		t.Fatalf("pos_parse_total{other,invalid} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "pos_parse_duration_seconds", map[string]string{"shape": "CIRCLE"}); count != 2 {
		t.Fatalf("pos_parse_duration_seconds sample_count = %d, want 2", count)
	}

	var nilCollector *ParseCollector
	nilCollector.Observe("CIRCLE", OutcomeOK, time.Microsecond)
}

func TestCollectorsReuseRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewParseCollector(reg)
	if err != nil {
		t.Fatalf("NewParseCollector: %v", err)
	}
	second, err := NewParseCollector(reg)
	if err != nil {
		t.Fatalf("second NewParseCollector: %v", err)
	}
	if first.Parses != second.Parses {
		t.Fatalf("re-registration should return the existing collector")
	}
}

func TestMetricsHandlerExposesRPCMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	collector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"region_rpc_requests_total",
		"region_rpc_request_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in            string
		service, meth string
	}{
		{in: parsePosMethod, service: "RegionService", meth: "ParsePos"},
		{in: "", service: "unknown", meth: "unknown"},
		{in: "/Contains", service: "unknown", meth: "unknown"},
		{in: "svc/", service: "svc", meth: "unknown"},
	}
	for _, tt := range tests {
		service, method := SplitMethod(tt.in)
		if service != tt.service || method != tt.meth {
			t.Fatalf("SplitMethod(%q) = %q, %q; want %q, %q", tt.in, service, method, tt.service, tt.meth)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
