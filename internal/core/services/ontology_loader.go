package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/core/ports/driving"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// Ensure OntologyLoaderService implements the interface.
var _ driving.OntologyLoader = (*OntologyLoaderService)(nil)

// malignantNeoplasm matches diagnosis labels of the form
// "Malignant <x> Neoplasm <y>".
var malignantNeoplasm = regexp.MustCompile(`(?i)^malignant\s+(.*?)neoplasm(.*)$`)

// Crawl fetch outcomes recorded in metrics.
const (
	fetchOK    = "ok"
	fetchError = "error"
)

// OntologyLoaderService crawls the remote term hierarchy breadth-first from
// fixed roots. The persisted frontier is the only crawl state: an entry is
// removed once its term and full child listing are saved, so a killed
// crawl resumes from whatever remains.
type OntologyLoaderService struct {
	cfg      domain.CrawlerConfig
	api      driven.OntologyAPI
	terms    driven.OntologyTermStore
	frontier driven.FrontierStore
	metrics  driven.Metrics
	now      func() time.Time

	// mu keeps runs sequential so attempt bookkeeping stays race-free.
	mu sync.Mutex
}

// NewOntologyLoaderService creates a loader.
// The metrics parameter is optional (can be nil).
func NewOntologyLoaderService(
	cfg domain.CrawlerConfig,
	api driven.OntologyAPI,
	terms driven.OntologyTermStore,
	frontier driven.FrontierStore,
	metrics driven.Metrics,
) *OntologyLoaderService {
	return &OntologyLoaderService{
		cfg:      cfg,
		api:      api,
		terms:    terms,
		frontier: frontier,
		metrics:  metricsOrNop(metrics),
		now:      time.Now,
	}
}

// Load seeds the frontier with the configured roots when it holds no entry
// for the selected types, otherwise resumes. With Reload set, stored terms
// and pending entries of the selected types are dropped first. After the
// crawl, attempt counters are reset so the next run retries failed nodes.
func (s *OntologyLoaderService) Load(ctx context.Context, opts domain.LoadOptions) (*domain.LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Section("Ontology Load")

	pending, err := s.pending(ctx, opts)
	if err != nil {
		return nil, err
	}

	if opts.Reload {
		if err := s.clear(ctx, opts, pending); err != nil {
			return nil, err
		}
		pending = nil
	}

	resumed := len(pending) > 0
	if resumed {
		logger.Info("Resuming crawl with %d pending entries", len(pending))
	} else if err := s.seed(ctx, opts); err != nil {
		return nil, err
	}

	report, err := s.crawl(ctx, opts)
	if report != nil {
		report.Resumed = resumed
	}

	reset, resetErr := s.frontier.ResetAttempts(context.WithoutCancel(ctx))
	if resetErr != nil {
		err = errors.Join(err, fmt.Errorf("reset attempts: %w", resetErr))
	} else if reset > 0 {
		logger.Debug("Reset attempt counters of %d entries", reset)
	}
	return report, err
}

// Crawl processes the current frontier without seeding or resetting
// counters.
func (s *OntologyLoaderService) Crawl(ctx context.Context, opts domain.LoadOptions) (*domain.LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.crawl(ctx, opts)
}

// Frontier returns the pending crawl entries.
func (s *OntologyLoaderService) Frontier(ctx context.Context) ([]domain.UnprocessedOntologyURL, error) {
	return s.frontier.List(ctx)
}

// Normalize re-applies post-processing to stored terms of a type.
func (s *OntologyLoaderService) Normalize(ctx context.Context, t domain.TermType) (int, error) {
	terms, err := s.terms.List(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("list terms: %w", err)
	}

	var changed []domain.OntologyTerm
	for _, term := range terms {
		updated := PostProcessTerm(term)
		if updated.Label != term.Label || !slices.Equal(updated.Synonyms, term.Synonyms) {
			changed = append(changed, updated)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := s.terms.SaveTerms(ctx, changed); err != nil {
		return 0, fmt.Errorf("save terms: %w", err)
	}
	logger.Info("Normalised %d %s terms", len(changed), t)
	return len(changed), nil
}

// pending returns frontier entries covered by opts.
func (s *OntologyLoaderService) pending(ctx context.Context, opts domain.LoadOptions) ([]domain.UnprocessedOntologyURL, error) {
	entries, err := s.frontier.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list frontier: %w", err)
	}
	var out []domain.UnprocessedOntologyURL
	for _, e := range entries {
		if opts.Covers(e.Type) {
			out = append(out, e)
		}
	}
	return out, nil
}

// clear drops stored terms and pending entries of the selected types.
func (s *OntologyLoaderService) clear(
	ctx context.Context, opts domain.LoadOptions, pending []domain.UnprocessedOntologyURL,
) error {
	for _, e := range pending {
		if err := s.frontier.Delete(ctx, e.URL, e.Type); err != nil {
			return fmt.Errorf("clear frontier: %w", err)
		}
	}
	for _, t := range opts.SelectedTypes() {
		n, err := s.terms.DeleteByType(ctx, t)
		if err != nil {
			return fmt.Errorf("delete %s terms: %w", t, err)
		}
		logger.Info("Deleted %d %s terms for reload", n, t)
	}
	return nil
}

// seed queues the configured roots of the selected types.
func (s *OntologyLoaderService) seed(ctx context.Context, opts domain.LoadOptions) error {
	for _, t := range opts.SelectedTypes() {
		roots := s.cfg.RootsFor(t)
		for _, r := range roots {
			entry := domain.UnprocessedOntologyURL{URL: s.api.TermURL(r.IRI), Type: t, CreatedAt: s.now().UTC()}
			if _, err := s.frontier.Add(ctx, entry); err != nil {
				return fmt.Errorf("seed %s: %w", r.IRI, err)
			}
		}
		logger.Debug("Seeded %d %s roots", len(roots), t)
	}
	return nil
}

// crawl runs passes over the frontier until no covered entry is below the
// retry ceiling or the context is done. The context is checked before each
// entry.
func (s *OntologyLoaderService) crawl(ctx context.Context, opts domain.LoadOptions) (*domain.LoadReport, error) {
	report := &domain.LoadReport{
		RunID:     uuid.NewString(),
		Loaded:    make(map[domain.TermType]int),
		StartedAt: s.now().UTC(),
	}
	visited := make(map[domain.TermKey]bool)

	for pass := 1; ; pass++ {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		entries, err := s.pending(ctx, opts)
		if err != nil {
			return report, err
		}
		var eligible []domain.UnprocessedOntologyURL
		for _, e := range entries {
			if !e.Exhausted(s.cfg.MaxAttempts) {
				eligible = append(eligible, e)
			}
		}
		if len(eligible) == 0 {
			break
		}
		logger.Debug("Crawl pass %d: %d eligible entries", pass, len(eligible))

		for _, e := range eligible {
			if ctx.Err() != nil {
				report.Interrupted = true
				break
			}
			visited[domain.TermKey{URL: e.URL, Type: e.Type}] = true
			if err := s.process(ctx, e, visited, report); err != nil {
				return report, err
			}
		}
	}

	remaining, err := s.pending(context.WithoutCancel(ctx), opts)
	if err != nil {
		return report, err
	}
	for _, e := range remaining {
		if e.Exhausted(s.cfg.MaxAttempts) {
			report.Exhausted++
		}
	}

	report.FinishedAt = s.now().UTC()
	logger.Info("Crawl %s finished: %d processed, %d failed, %d loaded, %d exhausted",
		report.RunID, report.Processed, report.Failed, report.TotalLoaded(), report.Exhausted)
	return report, nil
}

// process handles one frontier entry. Fetch and storage failures are
// recorded on the entry and in the report; only a failure to record them
// is returned.
func (s *OntologyLoaderService) process(
	ctx context.Context, e domain.UnprocessedOntologyURL,
	visited map[domain.TermKey]bool, report *domain.LoadReport,
) error {
	batch, err := s.fetchSubtree(ctx, e, visited)
	if err != nil {
		if ctx.Err() != nil {
			report.Interrupted = true
			return nil
		}
		return s.fail(ctx, e, err, report)
	}

	saved, err := s.save(ctx, batch)
	if err != nil {
		return s.fail(ctx, e, err, report)
	}
	report.Loaded[e.Type] += saved
	s.metrics.TermsLoaded(e.Type, saved)

	// Terms saved here are skipped when the entry is retried.
	if err := s.frontier.Delete(ctx, e.URL, e.Type); err != nil {
		return s.fail(ctx, e, fmt.Errorf("delete frontier entry: %w", err), report)
	}

	report.Processed++
	s.metrics.CrawlFetch(e.Type, fetchOK)
	logger.Debug("Processed %s (%d terms, %d new)", e.URL, len(batch), saved)
	return nil
}

// fetchSubtree fetches the entry's term and, when it has children, drains
// the whole paginated child listing. Each child is queued as its own
// frontier entry.
func (s *OntologyLoaderService) fetchSubtree(
	ctx context.Context, e domain.UnprocessedOntologyURL, visited map[domain.TermKey]bool,
) ([]domain.OntologyTerm, error) {
	detail, err := s.api.Term(ctx, e.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch term: %w", err)
	}

	batch := []domain.OntologyTerm{toOntologyTerm(*detail, e.Type)}
	if !detail.HasChildren {
		return batch, nil
	}

	pageURL := listingURL(*detail, e.URL)
	for pageURL != "" {
		page, err := s.api.Page(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch page %s: %w", pageURL, err)
		}
		for _, child := range page.Terms {
			batch = append(batch, toOntologyTerm(child, e.Type))
			if err := s.enqueue(ctx, child, e.Type, visited); err != nil {
				return nil, err
			}
		}
		if page.Next == "" || page.Next == pageURL || (page.Last != "" && pageURL == page.Last) {
			break
		}
		pageURL = page.Next
	}
	return batch, nil
}

// enqueue adds a child to the frontier unless this run has already seen it.
func (s *OntologyLoaderService) enqueue(
	ctx context.Context, child driven.RemoteTerm, t domain.TermType, visited map[domain.TermKey]bool,
) error {
	url := child.Self
	if url == "" {
		if child.IRI == "" {
			return nil
		}
		url = s.api.TermURL(child.IRI)
	}
	key := domain.TermKey{URL: url, Type: t}
	if visited[key] {
		return nil
	}
	visited[key] = true
	_, err := s.frontier.Add(ctx, domain.UnprocessedOntologyURL{URL: url, Type: t, CreatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", url, err)
	}
	return nil
}

// save post-processes and deduplicates a batch, drops terms already stored
// and saves the rest. Returns the number saved.
func (s *OntologyLoaderService) save(ctx context.Context, batch []domain.OntologyTerm) (int, error) {
	seen := make(map[domain.TermKey]bool, len(batch))
	fresh := make([]domain.OntologyTerm, 0, len(batch))
	for _, term := range batch {
		if term.URL == "" || seen[term.Key()] {
			continue
		}
		seen[term.Key()] = true

		exists, err := s.terms.Exists(ctx, term.Key())
		if err != nil {
			return 0, fmt.Errorf("check term %s: %w", term.URL, err)
		}
		if !exists {
			fresh = append(fresh, PostProcessTerm(term))
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := s.terms.SaveTerms(ctx, fresh); err != nil {
		return 0, fmt.Errorf("save terms: %w", err)
	}
	return len(fresh), nil
}

// fail records a failed attempt on the entry; it stays in the frontier.
// A permanent failure exhausts the entry at once.
func (s *OntologyLoaderService) fail(
	ctx context.Context, e domain.UnprocessedOntologyURL, cause error, report *domain.LoadReport,
) error {
	permanent := errors.Is(cause, driven.ErrPermanent)
	e.Attempts++
	if permanent && !e.Exhausted(s.cfg.MaxAttempts) {
		e.Attempts = s.cfg.MaxAttempts + 1
	}
	e.LastError = cause.Error()
	if err := s.frontier.Update(ctx, e); err != nil {
		return fmt.Errorf("update frontier entry %s: %w", e.URL, err)
	}

	report.Failed++
	report.Errors = append(report.Errors, fmt.Sprintf("%s (attempt %d): %v", e.URL, e.Attempts, cause))
	s.metrics.CrawlFetch(e.Type, fetchError)

	log := logger.Logger().With(
		zap.String("url", e.URL),
		zap.String("type", string(e.Type)),
		zap.Int("attempt", e.Attempts),
		zap.Error(cause),
	)
	switch {
	case permanent:
		log.Warn("Not retrying frontier entry")
	case e.Exhausted(s.cfg.MaxAttempts):
		log.Warn("Giving up on frontier entry")
	default:
		log.Debug("Frontier entry failed")
	}
	return nil
}

// listingURL picks the child listing of a term: direct children when
// linked, descendants otherwise, and the conventional children path as a
// last resort.
func listingURL(t driven.RemoteTerm, entryURL string) string {
	switch {
	case t.Children != "":
		return t.Children
	case t.Descendants != "":
		return t.Descendants
	default:
		return strings.TrimSuffix(entryURL, "/") + "/children"
	}
}

func toOntologyTerm(r driven.RemoteTerm, t domain.TermType) domain.OntologyTerm {
	return domain.OntologyTerm{
		ID:         domain.TermID(t, r.IRI),
		URL:        r.IRI,
		Label:      strings.TrimSpace(r.Label),
		Type:       t,
		Synonyms:   r.Synonyms,
		Definition: strings.TrimSpace(r.Description),
	}
}

// PostProcessTerm rewrites "Malignant <x> Neoplasm <y>" diagnosis labels to
// "<x> Cancer <y>" and lower-cases and deduplicates synonyms.
func PostProcessTerm(t domain.OntologyTerm) domain.OntologyTerm {
	if t.Type == domain.TermDiagnosis {
		t.Label = RewriteDiagnosisLabel(t.Label)
	}
	t.Synonyms = NormalizeSynonyms(t.Synonyms)
	return t
}

// RewriteDiagnosisLabel applies the malignant-neoplasm rewrite.
func RewriteDiagnosisLabel(label string) string {
	return malignantNeoplasm.ReplaceAllString(label, "${1}Cancer${2}")
}

// NormalizeSynonyms lower-cases, trims and deduplicates synonyms, keeping
// first-occurrence order.
func NormalizeSynonyms(synonyms []string) []string {
	if len(synonyms) == 0 {
		return nil
	}
	lower := cases.Lower(language.Und)
	seen := make(map[string]bool, len(synonyms))
	out := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		s = strings.TrimSpace(lower.String(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
