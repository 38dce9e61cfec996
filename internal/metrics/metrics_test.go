package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGenerationRequestsCounts(t *testing.T) {
	before := testutil.ToFloat64(GenerationRequests.WithLabelValues(OutcomeSuccess))
	GenerationRequests.WithLabelValues(OutcomeSuccess).Inc()
	if got := testutil.ToFloat64(GenerationRequests.WithLabelValues(OutcomeSuccess)); got != before+1 {
		t.Fatalf("counter = %v, want %v", got, before+1)
	}
}

func TestProviderDurationRegistered(t *testing.T) {
	ProviderDuration.WithLabelValues("generate").Observe(0.3)
	if n := testutil.CollectAndCount(ProviderDuration); n == 0 {
		t.Fatal("expected histogram series")
	}
}
