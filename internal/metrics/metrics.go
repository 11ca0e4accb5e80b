package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contexta_ingest"

// Pipeline holds the ingestion collectors, registered on its own registry.
type Pipeline struct {
	registry *prometheus.Registry

	DocumentsIngested  *prometheus.CounterVec
	ChunksProduced     *prometheus.CounterVec
	BatchesUpserted    prometheus.Counter
	Retries            *prometheus.CounterVec
	Invocations        *prometheus.CounterVec
	InvocationDuration prometheus.Histogram
}

// NewPipeline builds the collectors. withRuntime adds the Go and process
// collectors, which only make sense once per process.
func NewPipeline(withRuntime bool) *Pipeline {
	reg := prometheus.NewRegistry()
	p := &Pipeline{
		registry: reg,
		DocumentsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_ingested_total",
			Help:      "Documents whose ingestion completed, by document type.",
		}, []string{"doc_type"}),
		ChunksProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_produced_total",
			Help:      "Chunks produced by the chunk router, by strategy.",
		}, []string{"strategy"}),
		BatchesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_upserted_total",
			Help:      "Embedding batches whose vectors were upserted.",
		}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_call_retries_total",
			Help:      "Retried external calls, by operation.",
		}, []string{"operation"}),
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Orchestrator invocations, by outcome.",
		}, []string{"outcome"}),
		InvocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Wall time of one orchestrator invocation.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 90, 120},
		}),
	}
	reg.MustRegister(
		p.DocumentsIngested,
		p.ChunksProduced,
		p.BatchesUpserted,
		p.Retries,
		p.Invocations,
		p.InvocationDuration,
	)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return p
}

func (p *Pipeline) ObserveInvocation(outcome string, started time.Time) {
	p.Invocations.WithLabelValues(outcome).Inc()
	p.InvocationDuration.Observe(time.Since(started).Seconds())
}

func (p *Pipeline) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
