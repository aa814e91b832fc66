package interview

import "strings"

// answeredTurns counts turns carrying a non-empty transcribed answer.
func answeredTurns(history []Turn) int {
	n := 0
	for _, t := range history {
		if strings.TrimSpace(t.AnswerText) != "" {
			n++
		}
	}
	return n
}

func hasTurnScores(history []Turn) bool {
	for _, t := range history {
		if len(t.Scores) > 0 {
			return true
		}
	}
	return false
}

// aggregateTurnScores averages per-turn scores for each dimension. A
// dimension never scored by the oracle ends up at zero, matching the
// report shape of the batch path.
func aggregateTurnScores(dimensions []string, history []Turn) map[string]DimensionScore {
	sums := make(map[string]float64, len(dimensions))
	counts := make(map[string]int, len(dimensions))
	for _, t := range history {
		for dim, score := range t.Scores {
			sums[dim] += score
			counts[dim]++
		}
	}

	out := make(map[string]DimensionScore, len(dimensions))
	for _, dim := range dimensions {
		if counts[dim] == 0 {
			out[dim] = DimensionScore{}
			continue
		}
		out[dim] = DimensionScore{Score: sums[dim] / float64(counts[dim])}
	}
	return out
}

// overallScore combines dimension scores into a single number. With no
// weights configured this is the arithmetic mean; weights shift the blend
// without requiring every dimension to be listed. Dimensions the oracle
// never scored stay at zero in the report but are excluded from the mean,
// since valid scores start at 1 and a skipped dimension says nothing about
// the candidate.
func overallScore(dims map[string]DimensionScore, weights map[string]float64) float64 {
	var sum, totalWeight float64
	for dim, ds := range dims {
		if ds.Score == 0 {
			continue
		}
		w := 1.0
		if weights != nil {
			if override, ok := weights[dim]; ok && override > 0 {
				w = override
			}
		}
		sum += ds.Score * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}
