package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ontomap/internal/core/domain"
)

// --- Mock implementations ---

// mockIndex implements driven.IndexReader and driven.CalibrationIndex.
// Calibration searches return the stored calibration document with
// calibScore, or with the family's entry in familyScores for single-family
// queries.
type mockIndex struct {
	mu           sync.Mutex
	hits         []domain.Hit
	calibScore   float64
	familyScores map[domain.SourceKind]float64
	omitFamily   domain.SourceKind
	omitCalib    bool
	searchErr    error
	putErr       error

	calibs    map[string]domain.IndexedDocument
	maxCalibs int
	puts      int
	removes   int
	queries   []domain.Query
}

func newMockIndex(calibScore float64, hits ...domain.Hit) *mockIndex {
	return &mockIndex{hits: hits, calibScore: calibScore, calibs: map[string]domain.IndexedDocument{}}
}

func (m *mockIndex) Search(_ context.Context, q domain.Query) ([]domain.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if q.RestrictID != "" {
		if _, ok := m.calibs[q.RestrictID]; !ok || m.omitCalib {
			return nil, nil
		}
		score := m.calibScore
		if len(q.Families) == 1 {
			name := q.Families[0].Name
			if name == m.omitFamily {
				return nil, nil
			}
			if fs, ok := m.familyScores[name]; ok {
				score = fs
			}
		}
		return []domain.Hit{{ID: q.RestrictID, SourceKind: domain.SourceCalibration, Score: score}}, nil
	}
	return m.hits, nil
}

func (m *mockIndex) Count(_ context.Context) (uint64, error) {
	return uint64(len(m.hits)), nil
}

func (m *mockIndex) PutCalibration(_ context.Context, doc domain.IndexedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.calibs[doc.ID] = doc
	m.maxCalibs = max(m.maxCalibs, len(m.calibs))
	return nil
}

func (m *mockIndex) RemoveCalibration(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removes++
	delete(m.calibs, id)
	return nil
}

func TestRelativeScore(t *testing.T) {
	assert.InDelta(t, 50.0, RelativeScore(1, 2), 1e-9)
	assert.InDelta(t, 100.0, RelativeScore(2, 2), 1e-9)
	assert.InDelta(t, 150.0, RelativeScore(3, 2), 1e-9)
	assert.Zero(t, RelativeScore(1, 0))
}

func TestRelativeScoreNormalizer_Search(t *testing.T) {
	idx := newMockIndex(4.0,
		domain.Hit{ID: "a", SourceKind: domain.SourceRule, Score: 4.0},
		domain.Hit{ID: "b", SourceKind: domain.SourceOntology, Score: 2.0},
		domain.Hit{ID: "c", SourceKind: domain.SourceRule, Score: 5.0},
	)
	m := newTestMapper(t)
	n := NewRelativeScoreNormalizer(m, idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	hits, maxScore, err := n.Search(context.Background(), r, q)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, maxScore, 1e-9)
	require.Len(t, hits, 3)
	assert.InDelta(t, 100.0, hits[0].RelativeScore, 1e-9)
	assert.InDelta(t, 50.0, hits[1].RelativeScore, 1e-9)
	assert.InDelta(t, 125.0, hits[2].RelativeScore, 1e-9)

	// The calibration document was added once and removed afterwards.
	assert.Equal(t, 1, idx.puts)
	assert.Equal(t, 1, idx.removes)
	assert.Empty(t, idx.calibs)

	// Real query first, then one calibration query per family.
	require.Len(t, q.Families, 2)
	require.Len(t, idx.queries, 3)
	assert.Empty(t, idx.queries[0].RestrictID)
	for i, f := range q.Families {
		cq := idx.queries[i+1]
		assert.True(t, strings.HasPrefix(cq.RestrictID, "calibration:"+r.Key()+":"))
		assert.Equal(t, []domain.Family{f}, cq.Families)
		assert.Empty(t, cq.ExcludeIDs)
	}
}

func TestRelativeScoreNormalizer_CalibratesEachFamily(t *testing.T) {
	idx := newMockIndex(8.0,
		domain.Hit{ID: "rule", SourceKind: domain.SourceRule, Score: 8.0},
		domain.Hit{ID: "term", SourceKind: domain.SourceOntology, Score: 2.0},
	)
	idx.familyScores = map[domain.SourceKind]float64{
		domain.SourceRule:     8.0,
		domain.SourceOntology: 2.0,
	}
	n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	hits, maxScore, err := n.Search(context.Background(), r, q)
	require.NoError(t, err)

	assert.InDelta(t, 8.0, maxScore, 1e-9)
	require.Len(t, hits, 2)
	assert.InDelta(t, 100.0, hits[0].RelativeScore, 1e-9)
	assert.InDelta(t, 100.0, hits[1].RelativeScore, 1e-9)
}

func TestRelativeScoreNormalizer_UnmatchedFamilyUsesBestCalibration(t *testing.T) {
	idx := newMockIndex(8.0, domain.Hit{ID: "term", SourceKind: domain.SourceOntology, Score: 2.0})
	idx.omitFamily = domain.SourceOntology
	n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	hits, _, err := n.Search(context.Background(), r, q)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 25.0, hits[0].RelativeScore, 1e-9)
}

func TestRelativeScoreNormalizer_OneCalibrationAtATime(t *testing.T) {
	idx := newMockIndex(1.0, domain.Hit{ID: "a", SourceKind: domain.SourceRule, Score: 1})
	n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := n.Search(context.Background(), r, q)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, idx.puts)
	assert.Equal(t, 1, idx.maxCalibs)
	assert.Empty(t, idx.calibs)
}

func TestRelativeScoreNormalizer_UniqueCalibrationIDs(t *testing.T) {
	idx := newMockIndex(1.0)
	n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, _, err := n.Search(context.Background(), r, q)
		require.NoError(t, err)
	}
	require.Len(t, idx.queries, 6)
	assert.NotEqual(t, idx.queries[1].RestrictID, idx.queries[4].RestrictID)
}

func TestRelativeScoreNormalizer_CalibrationMissing(t *testing.T) {
	idx := newMockIndex(1.0, domain.Hit{ID: "a", Score: 1})
	idx.omitCalib = true
	n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	_, _, err = n.Search(context.Background(), r, q)
	assert.ErrorIs(t, err, domain.ErrCalibrationMissing)
	assert.Equal(t, 1, idx.removes)
}

func TestRelativeScoreNormalizer_CalibrationScoreInvalid(t *testing.T) {
	for _, score := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		idx := newMockIndex(score)
		n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
		r := treatment("p1", "cisplatin", "chemo", "pdx")
		q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
		require.NoError(t, err)

		_, _, err = n.Search(context.Background(), r, q)
		assert.ErrorIs(t, err, domain.ErrCalibrationScore, "score %v", score)
	}
}

func TestRelativeScoreNormalizer_PutFails(t *testing.T) {
	idx := newMockIndex(1.0)
	idx.putErr = errors.New("disk full")
	n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	_, _, err = n.Search(context.Background(), r, q)
	require.Error(t, err)
	assert.Empty(t, idx.queries)
}

func TestRelativeScoreNormalizer_SearchFailsStillRemovesCalibration(t *testing.T) {
	idx := newMockIndex(1.0)
	idx.searchErr = errors.New("boom")
	n := NewRelativeScoreNormalizer(newTestMapper(t), idx, idx)
	r := treatment("p1", "cisplatin", "chemo", "pdx")
	q, err := NewQueryBuilder(domain.DefaultConfig()).Build(r)
	require.NoError(t, err)

	_, _, err = n.Search(context.Background(), r, q)
	require.Error(t, err)
	assert.Equal(t, 1, idx.removes)
}
