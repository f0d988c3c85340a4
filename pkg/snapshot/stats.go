package snapshot

import (
	"math"

	"github.com/aretw0/promptvault/pkg/core"
)

// ComputeStats summarises prompts. Unrated prompts count as 0 in the
// average. The most used model is the one carried by the most prompts;
// ties go to the model seen first.
func ComputeStats(prompts []core.Prompt) core.Stats {
	stats := core.Stats{TotalPrompts: len(prompts)}
	if len(prompts) == 0 {
		return stats
	}

	sum := 0
	counts := make(map[string]int)
	var order []string
	for _, p := range prompts {
		sum += p.RatingValue()
		model := p.Model()
		if model == "" {
			continue
		}
		if counts[model] == 0 {
			order = append(order, model)
		}
		counts[model]++
	}
	stats.AverageRating = math.Round(float64(sum)/float64(len(prompts))*100) / 100

	best := 0
	for _, model := range order {
		if counts[model] > best {
			best = counts[model]
			m := model
			stats.MostUsedModel = &m
		}
	}
	return stats
}
