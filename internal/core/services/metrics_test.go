package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// recordingMetrics implements driven.Metrics and counts calls.
type recordingMetrics struct {
	mu        sync.Mutex
	completed int
	failed    int
	decisions map[domain.DecisionOutcome]int
	fetches   map[string]int
	loaded    int
	indexed   map[domain.SourceKind]int
}

func (m *recordingMetrics) SearchCompleted(domain.EngineName, domain.EntityKind, int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
}

func (m *recordingMetrics) SearchFailed(domain.EngineName, domain.EntityKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *recordingMetrics) RelativeScore(domain.SourceKind, float64) {}

func (m *recordingMetrics) Decision(o domain.DecisionOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decisions == nil {
		m.decisions = map[domain.DecisionOutcome]int{}
	}
	m.decisions[o]++
}

func (m *recordingMetrics) CrawlFetch(_ domain.TermType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetches == nil {
		m.fetches = map[string]int{}
	}
	m.fetches[outcome]++
}

func (m *recordingMetrics) TermsLoaded(_ domain.TermType, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded += n
}

func (m *recordingMetrics) DocumentsIndexed(kind domain.SourceKind, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexed == nil {
		m.indexed = map[domain.SourceKind]int{}
	}
	m.indexed[kind] += n
}
