package service

import (
	"context"

	"ShapeFinder/internal/domain/models"
)

// DistanceEngine measures the dissimilarity of two feature sequences.
type DistanceEngine interface {
	Distance(a, b models.FeatureSequence) (float64, error)
}

// Ranker orders candidates by distance to a query and keeps the n closest.
type Ranker interface {
	Rank(ctx context.Context, query models.FeatureSequence, candidates []models.Candidate, n int) ([]models.MatchResult, error)
}
