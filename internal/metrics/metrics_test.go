package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRange(t *testing.T) {
	before := testutil.ToFloat64(rangeRequestsTotal.WithLabelValues(RangePartial))
	RecordRange(RangePartial)
	RecordRange(RangePartial)
	after := testutil.ToFloat64(rangeRequestsTotal.WithLabelValues(RangePartial))
	if after-before != 2 {
		t.Errorf("partial counter grew by %v, want 2", after-before)
	}
}

func TestRecordStorageOperationStatus(t *testing.T) {
	RecordStorageOperation("local", "exists", time.Millisecond, false)
	if got := testutil.ToFloat64(storageOpsTotal.WithLabelValues("local", "exists", "error")); got < 1 {
		t.Errorf("error counter = %v, want >= 1", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordDestinationCheck(DestConflict)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mediakit_destination_checks_total") {
		t.Error("destination check metric not exposed")
	}
}
