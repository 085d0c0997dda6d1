package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/crucial707/detector/internal/models"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue()
	}
	return pb.Gauge.GetValue()
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/api/resource/ab12cd34", "/api/resource/{id}"},
		{"/api/graph/resource/ab12cd34", "/api/graph/resource/{id}"},
		{"/api/resource/123/", "/api/resource/{id}/"},
		{"/api/resource", "/api/resource"},
		{"/api/resource/toggle-active/bulk/x,y", "/api/resource/toggle-active/bulk/x,y"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	before := value(t, ResourceOperations.WithLabelValues("create", "success"))
	beforeAudit := value(t, AuditEntries.WithLabelValues("warning"))

	var r Recorder
	r.ResourceOperation("create", "success")
	r.AuditEntry(models.SeverityWarning)

	if got := value(t, ResourceOperations.WithLabelValues("create", "success")); got != before+1 {
		t.Errorf("resource_operations_total = %v, want %v", got, before+1)
	}
	if got := value(t, AuditEntries.WithLabelValues("warning")); got != beforeAudit+1 {
		t.Errorf("audit_entries_total = %v, want %v", got, beforeAudit+1)
	}
}

func TestSetResourceCounts(t *testing.T) {
	SetResourceCounts(12, 3)
	if got := value(t, ResourcesTotal); got != 12 {
		t.Errorf("resources_total = %v", got)
	}
	if got := value(t, IssuesOpen); got != 3 {
		t.Errorf("issues_open_total = %v", got)
	}
}
