package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentHandlerRecordsStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /families/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequests.WithLabelValues("GET", "GET /families/{id}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	InstrumentHandler(mux).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/families/9", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
	if delta := testutil.ToFloat64(counter) - before; delta != 1 {
		t.Errorf("requests_total delta = %v, want 1", delta)
	}
}

func TestRecordMembershipChangesIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(resolverChanges.WithLabelValues("created"))
	RecordMembershipChanges("created", 0)
	RecordMembershipChanges("created", 3)
	after := testutil.ToFloat64(resolverChanges.WithLabelValues("created"))
	if after-before != 3 {
		t.Errorf("created delta = %v, want 3", after-before)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordResolution(true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "familytree_subfamily_resolutions_total") {
		t.Errorf("metrics output missing resolver counter")
	}
}
