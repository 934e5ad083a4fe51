// Package scoring turns rule-engine results into a single 0-100 accessibility score.
//
// Each distinct rule contributes its impact weight once. Violated rules count against the
// page with the highest impact they were reported with; every other rule counts in favour
// with the impact found in passes, incomplete or inapplicable (weight 1 when none is
// recorded). The score is the passed share of the total weight.
package scoring

import (
	"math"

	"github.com/user/a11y-auditor/internal/entity"
)

// DefaultWeight applies to rules without a recorded or recognised impact. Changing it
// breaks comparability with historical snapshots.
const DefaultWeight = 1

var impactWeights = map[entity.Impact]int{
	entity.ImpactCritical: 10,
	entity.ImpactSerious:  7,
	entity.ImpactModerate: 3,
	entity.ImpactMinor:    1,
	entity.ImpactUnknown:  DefaultWeight,
}

// Weight returns the weight of an impact.
func Weight(impact entity.Impact) int {
	return impactWeights[impact.Normalize()]
}

// Score computes the weighted score of one result, rounded to one decimal.
func Score(result *entity.AuditResult) float64 {
	if result == nil {
		return 100
	}
	return ScoreResults(&result.RuleResults)
}

// ScoreResults is Score over bare rule results.
func ScoreResults(r *entity.RuleResults) float64 {
	failed := make(map[string]int)
	for _, v := range r.Violations {
		if v.ID == "" {
			continue
		}
		w := Weight(v.Impact)
		if cur, ok := failed[v.ID]; !ok || w > cur {
			failed[v.ID] = w
		}
	}

	failedWeight := 0
	for _, w := range failed {
		failedWeight += w
	}

	passedWeight := 0
	seen := make(map[string]bool)
	for _, section := range [][]entity.RuleFinding{r.Passes, r.Incomplete, r.Inapplicable} {
		for _, f := range section {
			if f.ID == "" || seen[f.ID] {
				continue
			}
			if _, violated := failed[f.ID]; violated {
				continue
			}
			seen[f.ID] = true
			passedWeight += passedRuleWeight(r, f.ID)
		}
	}

	total := passedWeight + failedWeight
	if total == 0 {
		return 100
	}
	score := float64(passedWeight) / float64(total) * 100
	return math.Max(0, math.Round(score*10)/10)
}

// passedRuleWeight looks the rule up in passes, incomplete, inapplicable in that order and
// uses the first entry that carries an impact.
func passedRuleWeight(r *entity.RuleResults, id string) int {
	for _, section := range [][]entity.RuleFinding{r.Passes, r.Incomplete, r.Inapplicable} {
		for _, f := range section {
			if f.ID == id && f.Impact != "" {
				return Weight(f.Impact)
			}
		}
	}
	return DefaultWeight
}
