package services

import (
	"time"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
)

// nopMetrics discards every observation. Used when no Metrics is configured.
type nopMetrics struct{}

var _ driven.Metrics = nopMetrics{}

func (nopMetrics) SearchCompleted(domain.EngineName, domain.EntityKind, int, time.Duration) {}
func (nopMetrics) SearchFailed(domain.EngineName, domain.EntityKind)                       {}
func (nopMetrics) RelativeScore(domain.SourceKind, float64)                                {}
func (nopMetrics) Decision(domain.DecisionOutcome)                                         {}
func (nopMetrics) CrawlFetch(domain.TermType, string)                                      {}
func (nopMetrics) TermsLoaded(domain.TermType, int)                                        {}
func (nopMetrics) DocumentsIndexed(domain.SourceKind, int)                                 {}

// metricsOrNop returns m, or a no-op recorder when m is nil.
func metricsOrNop(m driven.Metrics) driven.Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
