package service

import (
	"github.com/jiaranai/learninglab/internal/domain"
)

// underflowEpsilon is the smallest total posterior mass treated as
// renormalizable. Below it the update is abandoned and the prior kept, so a
// numerically degenerate likelihood can never produce NaN beliefs.
const underflowEpsilon = 1e-12

// BeliefUpdater applies Bayes' rule over the discretized ability grid.
type BeliefUpdater struct {
	model LikelihoodModel
}

func NewBeliefUpdater(model LikelihoodModel) BeliefUpdater {
	return BeliefUpdater{model: model}
}

// Posterior returns the belief distribution after observing one response at
// the given difficulty. An unsure outcome carries no evidence and returns
// the prior unchanged. The result always sums to 1 within floating
// tolerance; if the combined mass underflows, the prior is returned intact.
func (u BeliefUpdater) Posterior(prior domain.BeliefDistribution, outcome domain.ResponseOutcome, difficulty float64) domain.BeliefDistribution {
	if outcome == domain.OutcomeUnsure {
		return prior.Clone()
	}

	difficulty = ClampDifficulty(difficulty)

	posterior := prior.Clone()
	var total float64
	for i, bp := range posterior.Points {
		likelihood := u.model.ProbCorrect(bp.Ability, difficulty)
		if outcome == domain.OutcomeIncorrect {
			likelihood = 1 - likelihood
		}
		posterior.Points[i].Probability = bp.Probability * likelihood
		total += posterior.Points[i].Probability
	}

	if total < underflowEpsilon {
		return prior.Clone()
	}

	for i := range posterior.Points {
		posterior.Points[i].Probability /= total
	}
	return posterior
}
