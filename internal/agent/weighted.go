package agent

import "math/rand"

// WeightedPick selects one action with probability proportional to its
// configured weight. Zero-weight actions are never picked. Returns false when
// the candidate list is empty or all weights are zero.
func WeightedPick(rng *rand.Rand, candidates []ActionType, cfg Config) (ActionType, bool) {
	total := 0.0
	for _, a := range candidates {
		w := cfg.Weight(a)
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return "", false
	}
	target := rng.Float64() * total
	for _, a := range candidates {
		w := cfg.Weight(a)
		if w <= 0 {
			continue
		}
		target -= w
		if target < 0 {
			return a, true
		}
	}
	// Float rounding can leave target at exactly zero; fall back to the last
	// positive-weight candidate.
	for i := len(candidates) - 1; i >= 0; i-- {
		if cfg.Weight(candidates[i]) > 0 {
			return candidates[i], true
		}
	}
	return "", false
}
