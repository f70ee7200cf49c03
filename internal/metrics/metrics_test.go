package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
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
	t.Fatalf("%s metric not found", name)
	return nil
}

// counterByLabels は全ラベル値が一致するカウンタの値を返す。
func counterByLabels(mf *dto.MetricFamily, values ...string) float64 {
	for _, m := range mf.GetMetric() {
		labels := m.GetLabel()
		if len(labels) != len(values) {
			continue
		}
		match := true
		for i, l := range labels {
			if l.GetValue() != values[i] {
				match = false
				break
			}
		}
		if match {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordLogin_CountsByMethod はログイン数が方式別に集計されることを検証する。
func TestRecordLogin_CountsByMethod(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("password")
	c.RecordLogin("password")
	c.RecordLogin("firebase")

	mf := findMetricFamily(t, reg, "mathlovers_logins_total")
	if got := counterByLabels(mf, "password"); got != 2 {
		t.Errorf("logins_total{method=password} = %v, want 2", got)
	}
	if got := counterByLabels(mf, "firebase"); got != 1 {
		t.Errorf("logins_total{method=firebase} = %v, want 1", got)
	}
}

// TestRecordAccountCreated_CountsByMethod はアカウント作成数が記録されることを検証する。
func TestRecordAccountCreated_CountsByMethod(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAccountCreated("google")

	mf := findMetricFamily(t, reg, "mathlovers_accounts_created_total")
	if got := counterByLabels(mf, "google"); got != 1 {
		t.Errorf("accounts_created_total{method=google} = %v, want 1", got)
	}
}

// TestRecordLikeToggle_SplitsByState はいいね・取り消しが別ラベルで記録されることを検証する。
func TestRecordLikeToggle_SplitsByState(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLikeToggle("question", true)
	c.RecordLikeToggle("question", false)
	c.RecordLikeToggle("answer", true)

	mf := findMetricFamily(t, reg, "mathlovers_like_toggles_total")
	if len(mf.GetMetric()) != 3 {
		t.Fatalf("expected 3 label combinations, got %d", len(mf.GetMetric()))
	}
	if got := counterByLabels(mf, "question", "unliked"); got != 1 {
		t.Errorf("like_toggles_total{question,unliked} = %v, want 1", got)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	mf := findMetricFamily(t, reg, "mathlovers_http_status_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	if got := counterByLabels(mf, "200"); got != 2 {
		t.Errorf("http_status_total{status_code=200} = %v, want 2", got)
	}
	if got := counterByLabels(mf, "404"); got != 1 {
		t.Errorf("http_status_total{status_code=404} = %v, want 1", got)
	}
}

// TestRecordRequestLatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordRequestLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(100 * time.Millisecond)
	c.RecordRequestLatency(2 * time.Second)

	mf := findMetricFamily(t, reg, "mathlovers_http_request_duration_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestRecordCleanupRemoved_AddsCount は削除件数が加算されることを検証する。
func TestRecordCleanupRemoved_AddsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCleanupRemoved("answers", 10)
	c.RecordCleanupRemoved("answers", 5)

	mf := findMetricFamily(t, reg, "mathlovers_cleanup_removed_total")
	if got := counterByLabels(mf, "answers"); got != 15 {
		t.Errorf("cleanup_removed_total{kind=answers} = %v, want 15", got)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("password")
	c.RecordAccountCreated("password")
	c.RecordLikeToggle("answer", true)
	c.RecordHTTPStatus(200)
	c.RecordRequestLatency(500 * time.Millisecond)
	c.RecordCleanupRemoved("likes", 3)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"mathlovers_logins_total",
		"mathlovers_accounts_created_total",
		"mathlovers_like_toggles_total",
		"mathlovers_http_status_total",
		"mathlovers_http_request_duration_seconds",
		"mathlovers_cleanup_removed_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordLogin("google")
	c2.RecordLogin("google")
	c2.RecordLogin("google")

	if got := counterByLabels(findMetricFamily(t, reg1, "mathlovers_logins_total"), "google"); got != 1 {
		t.Errorf("reg1 logins = %v, want 1", got)
	}
	if got := counterByLabels(findMetricFamily(t, reg2, "mathlovers_logins_total"), "google"); got != 2 {
		t.Errorf("reg2 logins = %v, want 2", got)
	}
}
