package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("codymapperd", "GET", "/health", 200, 12*time.Millisecond)
	RecordMapperRequest("codymapperd", "MODULE-IMPORT", "MODULE-CMI", 3*time.Millisecond)
}
