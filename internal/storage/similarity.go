package storage

import (
	"math"

	"github.com/dshills/colstore/pkg/types"
)

// similarityFunc scores two vectors; higher means more similar
type similarityFunc func(a, b []float32) float64

func similarityFor(metric types.DistanceMetric) similarityFunc {
	switch metric {
	case types.MetricDot:
		return dotProduct
	case types.MetricEuclidean:
		return negEuclidean
	default:
		return cosineSimilarity
	}
}

// cosineSimilarity returns a value in [-1, 1], 1 meaning identical direction
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// negEuclidean returns negative distance so that higher still means closer
func negEuclidean(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(-1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return -math.Sqrt(sum)
}
