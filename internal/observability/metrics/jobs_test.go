package metrics

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type recordingSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.add("count", name, float64(value), tags)
}

func (s *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.add("gauge", name, value, tags)
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.add("timing", name, float64(value.Milliseconds()), tags)
}

func (s *recordingSink) add(kind, name string, value float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, recordedMetric{kind: kind, name: name, value: value, tags: tags})
}

type upstreamError struct{}

func (upstreamError) Error() string { return "upstream" }

func TestEmitJobLifecycle(t *testing.T) {
	sink := &recordingSink{}

	EmitJobLifecycle(sink, JobMetric{
		Target:     "sql",
		Transition: "failed",
		Result:     ResultError,
		Duration:   250 * time.Millisecond,
		Err:        fmt.Errorf("generate: %w", upstreamError{}),
	})

	require.Len(t, sink.metrics, 2)
	count := sink.metrics[0]
	assert.Equal(t, "count", count.kind)
	assert.Equal(t, "job.transition", count.name)
	assert.Equal(t, map[string]string{
		"target":      "sql",
		"transition":  "failed",
		"result":      ResultError,
		"error_class": "metrics_upstreamerror",
	}, count.tags)

	timing := sink.metrics[1]
	assert.Equal(t, "job.duration", timing.name)
	assert.InDelta(t, 250, timing.value, 0.001)
}

func TestEmitJobLifecycle_NilSink(t *testing.T) {
	EmitJobLifecycle(nil, JobMetric{Result: ResultSuccess})
}

func TestEmitAdmission(t *testing.T) {
	sink := &recordingSink{}
	EmitAdmission(sink, true)
	EmitAdmission(sink, false)

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, "allowed", sink.metrics[0].tags["result"])
	assert.Equal(t, "denied", sink.metrics[1].tags["result"])
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))

	src := map[string]string{"a": "1"}
	cp := CloneTags(src)
	cp["a"] = "2"
	assert.Equal(t, "1", src["a"])
}
