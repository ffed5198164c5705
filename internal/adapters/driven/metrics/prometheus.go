package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure Prometheus implements the interface.
var _ driven.Metrics = (*Prometheus)(nil)

const namespace = "ontomap"

// Prometheus records ontomap counters in a Prometheus registry.
type Prometheus struct {
	registry *prometheus.Registry

	searches       *prometheus.CounterVec
	searchFailures *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchResults  *prometheus.HistogramVec
	relativeScores *prometheus.HistogramVec
	decisions      *prometheus.CounterVec
	crawlFetches   *prometheus.CounterVec
	termsLoaded    *prometheus.CounterVec
	docsIndexed    *prometheus.CounterVec
}

// New registers the collectors in a fresh registry.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,

		searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Total number of completed suggestion searches",
			},
			[]string{"engine", "kind"},
		),
		searchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "failures_total",
				Help:      "Total number of failed suggestion searches",
			},
			[]string{"engine", "kind"},
		),
		searchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Duration of suggestion searches in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"engine", "kind"},
		),
		searchResults: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "results",
				Help:      "Number of suggestions returned per search",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
			},
			[]string{"engine", "kind"},
		),
		relativeScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "relative_score",
				Help:      "Relative score of returned suggestions",
				Buckets:   []float64{10, 25, 50, 75, 90, 95, 100},
			},
			[]string{"source"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "automap",
				Name:      "decisions_total",
				Help:      "Total number of automatic mapping decisions by outcome",
			},
			[]string{"outcome"},
		),
		crawlFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "crawler",
				Name:      "fetches_total",
				Help:      "Total number of frontier fetches by outcome",
			},
			[]string{"type", "outcome"},
		),
		termsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "crawler",
				Name:      "terms_loaded_total",
				Help:      "Total number of newly stored ontology terms",
			},
			[]string{"type"},
		),
		docsIndexed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "index",
				Name:      "documents_total",
				Help:      "Total number of documents written to the index",
			},
			[]string{"source"},
		),
	}
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// SearchCompleted records a suggestion search.
func (p *Prometheus) SearchCompleted(engine domain.EngineName, kind domain.EntityKind, results int, elapsed time.Duration) {
	p.searches.WithLabelValues(string(engine), string(kind)).Inc()
	p.searchDuration.WithLabelValues(string(engine), string(kind)).Observe(elapsed.Seconds())
	p.searchResults.WithLabelValues(string(engine), string(kind)).Observe(float64(results))
}

// SearchFailed records a failed suggestion search.
func (p *Prometheus) SearchFailed(engine domain.EngineName, kind domain.EntityKind) {
	p.searchFailures.WithLabelValues(string(engine), string(kind)).Inc()
}

// RelativeScore observes one suggestion's relative score.
func (p *Prometheus) RelativeScore(source domain.SourceKind, score float64) {
	p.relativeScores.WithLabelValues(string(source)).Observe(score)
}

// Decision records an automatic mapping decision.
func (p *Prometheus) Decision(outcome domain.DecisionOutcome) {
	p.decisions.WithLabelValues(string(outcome)).Inc()
}

// CrawlFetch records a frontier fetch by outcome.
func (p *Prometheus) CrawlFetch(t domain.TermType, outcome string) {
	p.crawlFetches.WithLabelValues(string(t), outcome).Inc()
}

// TermsLoaded records newly saved ontology terms.
func (p *Prometheus) TermsLoaded(t domain.TermType, n int) {
	if n <= 0 {
		return
	}
	p.termsLoaded.WithLabelValues(string(t)).Add(float64(n))
}

// DocumentsIndexed records documents written to the index.
func (p *Prometheus) DocumentsIndexed(source domain.SourceKind, n int) {
	if n <= 0 {
		return
	}
	p.docsIndexed.WithLabelValues(string(source)).Add(float64(n))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (p *Prometheus) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving metrics on %s/metrics", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
