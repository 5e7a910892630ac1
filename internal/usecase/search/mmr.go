package search

import (
	"math"

	"github.com/kailas-cloud/docqa/internal/repository/vectorstore"
)

// selectMMR picks up to k candidate indexes by maximal marginal relevance:
// the first pick is the candidate most similar to the query, each next pick
// maximizes lambda*sim(query, c) - (1-lambda)*max sim(c, picked).
// Ties go to the lower index.
func selectMMR(query []float32, candidates [][]float32, k int, lambda float64) []int {
	n := min(k, len(candidates))
	if n <= 0 {
		return nil
	}

	toQuery := make([]float64, len(candidates))
	best := 0
	for i, c := range candidates {
		toQuery[i] = vectorstore.CosineSimilarity(query, c)
		if toQuery[i] > toQuery[best] {
			best = i
		}
	}

	picked := []int{best}
	chosen := make([]bool, len(candidates))
	chosen[best] = true

	// redundancy[i] = max similarity of candidate i to any picked candidate.
	redundancy := make([]float64, len(candidates))
	for i := range redundancy {
		redundancy[i] = math.Inf(-1)
	}

	for len(picked) < n {
		last := candidates[picked[len(picked)-1]]
		next, nextScore := -1, math.Inf(-1)
		for i, c := range candidates {
			if chosen[i] {
				continue
			}
			redundancy[i] = max(redundancy[i], vectorstore.CosineSimilarity(c, last))
			score := lambda*toQuery[i] - (1-lambda)*redundancy[i]
			if score > nextScore {
				next, nextScore = i, score
			}
		}
		picked = append(picked, next)
		chosen[next] = true
	}
	return picked
}
