package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestNewCollector_DoubleRegistration_Panics は同じレジストリへの二重登録がパニックすることを検証する。
func TestNewCollector_DoubleRegistration_Panics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewCollector(reg)
}

func TestRecordPostCreated_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPostCreated()
	c.RecordPostCreated()

	mf := findMetricFamily(t, reg, "launchlog_posts_created_total")
	if mf == nil {
		t.Fatal("launchlog_posts_created_total metric not found")
	}
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("posts_created_total = %v, want 2", val)
	}
}

func TestRecordPostUpdated_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPostUpdated()

	mf := findMetricFamily(t, reg, "launchlog_posts_updated_total")
	if mf == nil {
		t.Fatal("launchlog_posts_updated_total metric not found")
	}
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 1 {
		t.Errorf("posts_updated_total = %v, want 1", val)
	}
}

// TestRecordLogin_LabelsByOutcome はログイン結果ごとに別系列で記録されることを検証する。
func TestRecordLogin_LabelsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("rejected")
	c.RecordLogin("rejected")

	mf := findMetricFamily(t, reg, "launchlog_logins_total")
	if mf == nil {
		t.Fatal("launchlog_logins_total metric not found")
	}

	got := map[string]float64{}
	for _, m := range mf.GetMetric() {
		got[labelValue(m, "outcome")] = m.GetCounter().GetValue()
	}
	if got["success"] != 1 || got["rejected"] != 2 {
		t.Errorf("logins_total = %v, want success=1 rejected=2", got)
	}
}

func TestRecordHTTPRequest_RecordsCountAndDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/entry", 200, 15*time.Millisecond)
	c.RecordHTTPRequest("GET", "/entry", 404, 5*time.Millisecond)

	requests := findMetricFamily(t, reg, "launchlog_http_requests_total")
	if requests == nil {
		t.Fatal("launchlog_http_requests_total metric not found")
	}
	if len(requests.GetMetric()) != 2 {
		t.Errorf("expected 2 series (one per status code), got %d", len(requests.GetMetric()))
	}
	for _, m := range requests.GetMetric() {
		if labelValue(m, "route") != "/entry" {
			t.Errorf("route label = %q, want %q", labelValue(m, "route"), "/entry")
		}
	}

	duration := findMetricFamily(t, reg, "launchlog_http_request_duration_seconds")
	if duration == nil {
		t.Fatal("launchlog_http_request_duration_seconds metric not found")
	}
	if count := duration.GetMetric()[0].GetHistogram().GetSampleCount(); count != 2 {
		t.Errorf("histogram sample count = %d, want 2", count)
	}
}
