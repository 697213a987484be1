package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingSink struct {
	ops []string
}

func (r *recordingSink) Observe(operation string, _ time.Duration) {
	r.ops = append(r.ops, operation)
}

func TestSinkInterfaceAcceptsRecordingImplementation(t *testing.T) {
	var s Sink = &recordingSink{}
	s.Observe(OpAdd, time.Millisecond)
	s.Observe(OpSearch, 2*time.Millisecond)

	r := s.(*recordingSink)
	if len(r.ops) != 2 || r.ops[0] != OpAdd || r.ops[1] != OpSearch {
		t.Fatalf("got %v", r.ops)
	}
}

func TestNoopSinkDiscardsObservations(t *testing.T) {
	var s Sink = NoopSink{}
	s.Observe(OpRawAdd, time.Second)
}

func TestPrometheusSinkRecordsIntoHistogram(t *testing.T) {
	sink := NewPrometheusSink()
	sink.Observe(OpKeyValuesSearch, 5*time.Millisecond)
	sink.Observe(OpKeyValuesSearch, 7*time.Millisecond)
	sink.Observe(OpAdd, time.Millisecond)

	if got := testutil.CollectAndCount(sink.histogram); got != 2 {
		t.Fatalf("expected 2 distinct operation label series, got %d", got)
	}
}
