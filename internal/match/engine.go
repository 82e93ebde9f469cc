// Package match scores query embeddings against stored profiles.
//
// Matching is an exact pairwise scan: every (query, stored) pair of a
// candidate profile is scored and averaged. No index structure is used.
package match

import (
	"sort"

	"github.com/nabeeladzan/lxfu/internal/faceprint"
)

// Candidate is the best-scoring profile for a query set.
type Candidate struct {
	Name          string
	AvgSimilarity float64
	MaxSimilarity float64
}

// BestMatch scans profiles for the candidate with the highest average
// similarity to the query embeddings.
//
// When allowAll is false only the profile named target is considered;
// all others are skipped outright. A candidate is skipped entirely when it
// has no stored samples or any sample's dimension differs from the query
// dimension. Candidates are visited in sorted name order and replaced only
// on a strictly greater average, so ties resolve to the lexicographically
// smallest name. Returns nil when no candidate produced a scored pair.
func BestMatch(queries [][]float32, profiles map[string][][]float32, target string, allowAll bool) *Candidate {
	if len(queries) == 0 || len(profiles) == 0 {
		return nil
	}
	dim := len(queries[0])

	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var best *Candidate
	for _, name := range names {
		if !allowAll && name != target {
			continue
		}
		samples := profiles[name]
		if len(samples) == 0 {
			continue
		}
		if dimensionMismatch(samples, dim) {
			continue
		}

		var sum float64
		maxSim := -1.0
		count := 0
		for _, stored := range samples {
			for _, query := range queries {
				sim := faceprint.Similarity(query, stored)
				sum += sim
				if sim > maxSim {
					maxSim = sim
				}
				count++
			}
		}
		if count == 0 {
			continue
		}

		avg := sum / float64(count)
		if best == nil || avg > best.AvgSimilarity {
			best = &Candidate{Name: name, AvgSimilarity: avg, MaxSimilarity: maxSim}
		}
	}

	return best
}

func dimensionMismatch(samples [][]float32, dim int) bool {
	for _, s := range samples {
		if len(s) != dim {
			return true
		}
	}
	return false
}
