package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(CandidatesCounter.WithLabelValues("accepted"))
	CandidatesCounter.WithLabelValues("accepted").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(CandidatesCounter.WithLabelValues("accepted")))

	families, err := MetricsRegistry.Gather()
	require.NoError(t, err)
	names := []string{}
	for _, f := range families {
		names = append(names, f.GetName())
	}
	require.Contains(t, names, "planz_candidates_total")
}

func TestPushMetrics(t *testing.T) {
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	SourcesFetchedCounter.WithLabelValues("ok").Inc()
	require.NoError(t, PushMetrics(server.URL, "planz_weekly"))
	require.Equal(t, http.MethodPut, method)
	require.Equal(t, "/metrics/job/planz_weekly", path)
}
