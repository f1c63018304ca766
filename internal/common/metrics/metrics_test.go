package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/health", "GET", "200"))

	ObserveRequest("/health", "GET", 200, 5*time.Millisecond)
	ObserveRequest("/health", "GET", 200, 7*time.Millisecond)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/health", "GET", "200"))
	assert.Equal(t, before+2, after)
}

func TestObserveProviderCall(t *testing.T) {
	before := testutil.ToFloat64(ProviderCallsTotal.WithLabelValues("generate-script", OutcomeTimeout))

	ObserveProviderCall("generate-script", OutcomeTimeout, time.Second)

	after := testutil.ToFloat64(ProviderCallsTotal.WithLabelValues("generate-script", OutcomeTimeout))
	assert.Equal(t, before+1, after)
}

func TestObserveCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(ScriptCacheLookups.WithLabelValues(CacheHit))
	ObserveCacheLookup(CacheHit)
	assert.Equal(t, before+1, testutil.ToFloat64(ScriptCacheLookups.WithLabelValues(CacheHit)))
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{200, "200"},
		{422, "422"},
		{504, "504"},
		{0, "unknown"},
		{1000, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusLabel(tt.status))
	}
}
