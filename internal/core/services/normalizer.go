package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/ontomap/internal/core/domain"
	"github.com/custodia-labs/ontomap/internal/core/ports/driven"
	"github.com/custodia-labs/ontomap/internal/logger"
)

// calibrationPrefix prefixes every calibration document id.
const calibrationPrefix = "calibration:"

// NormalizedHit is a raw hit with its relative score.
type NormalizedHit struct {
	domain.Hit
	RelativeScore float64
}

// RelativeScoreNormalizer rescales raw scores of one query against the
// score of a synthetic perfect match for the same record. Each family is
// calibrated on its own, so a hit is compared with the best score its own
// family can give.
type RelativeScoreNormalizer struct {
	mapper *DocumentMapper
	reader driven.IndexReader
	calib  driven.CalibrationIndex

	// mu keeps one calibration document in the index at a time so that
	// concurrent searches see the same term statistics.
	mu sync.Mutex
}

// NewRelativeScoreNormalizer creates a normalizer.
func NewRelativeScoreNormalizer(
	mapper *DocumentMapper, reader driven.IndexReader, calib driven.CalibrationIndex,
) *RelativeScoreNormalizer {
	return &RelativeScoreNormalizer{mapper: mapper, reader: reader, calib: calib}
}

// Search indexes a fresh calibration document for the record, executes q,
// scores the calibration document with each family of q, and removes it.
// The returned max score is the best family calibration score.
func (n *RelativeScoreNormalizer) Search(
	ctx context.Context, record domain.SourceRecord, q domain.Query,
) ([]NormalizedHit, float64, error) {
	id := calibrationPrefix + record.Key() + ":" + uuid.NewString()
	doc, err := n.mapper.Calibration(record, id)
	if err != nil {
		return nil, 0, fmt.Errorf("build calibration: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.calib.PutCalibration(ctx, doc); err != nil {
		return nil, 0, fmt.Errorf("index calibration: %w", err)
	}
	defer func() {
		if err := n.calib.RemoveCalibration(context.WithoutCancel(ctx), id); err != nil {
			logger.Warn("Failed to remove calibration document %s: %v", id, err)
		}
	}()

	hits, err := n.reader.Search(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	perFamily, maxScore, err := n.maxScores(ctx, q, id)
	if err != nil {
		return nil, 0, err
	}
	logger.Debug("Calibration %s max score %.4f %v", id, maxScore, perFamily)

	out := make([]NormalizedHit, 0, len(hits))
	for _, h := range hits {
		ref, ok := perFamily[h.SourceKind]
		if !ok {
			ref = maxScore
		}
		out = append(out, NormalizedHit{Hit: h, RelativeScore: RelativeScore(h.Score, ref)})
	}
	return out, maxScore, nil
}

// maxScores runs the calibration variant of q once per family. A family
// the calibration document does not match falls back to the best score of
// the others; no match at all is a failure.
func (n *RelativeScoreNormalizer) maxScores(
	ctx context.Context, q domain.Query, id string,
) (map[domain.SourceKind]float64, float64, error) {
	perFamily := make(map[domain.SourceKind]float64, len(q.Families))
	var maxScore float64
	for _, f := range q.Families {
		cq := q.Calibration(id)
		cq.Families = []domain.Family{f}

		hits, err := n.reader.Search(ctx, cq)
		if err != nil {
			return nil, 0, fmt.Errorf("calibration search: %w", err)
		}
		for _, h := range hits {
			if h.ID != id {
				continue
			}
			if h.Score <= 0 || math.IsNaN(h.Score) || math.IsInf(h.Score, 0) {
				return nil, 0, fmt.Errorf("%w: %s family scored %v", domain.ErrCalibrationScore, f.Name, h.Score)
			}
			perFamily[f.Name] = h.Score
			maxScore = max(maxScore, h.Score)
		}
	}
	if len(perFamily) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrCalibrationMissing, id)
	}
	return perFamily, maxScore, nil
}

// RelativeScore returns raw / maxScore * 100. Values above 100 are kept.
func RelativeScore(raw, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return raw / maxScore * 100
}
