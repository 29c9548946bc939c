package service

import (
	"math"

	"github.com/jiaranai/learninglab/internal/domain"
)

// DefaultScale leaves the response curve at its standard steepness. Larger
// values sharpen the curve toward a step function.
const DefaultScale = 1.0

// LikelihoodModel maps the gap between a learner's ability and a question's
// difficulty to a probability of answering correctly, via a logistic curve.
type LikelihoodModel struct {
	Scale float64
}

func NewLikelihoodModel() LikelihoodModel {
	return LikelihoodModel{Scale: DefaultScale}
}

// ProbCorrect returns P(correct | ability, difficulty). Equal ability and
// difficulty gives 0.5; the probability rises smoothly as ability exceeds
// difficulty and falls as it lags.
func (m LikelihoodModel) ProbCorrect(ability, difficulty float64) float64 {
	scale := m.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	return 1.0 / (1.0 + math.Exp(-(ability-difficulty)*scale))
}

// ClampDifficulty forces a difficulty into the valid question range,
// substituting the default for non-positive values.
func ClampDifficulty(d float64) float64 {
	if d <= 0 {
		return domain.DefaultDifficulty
	}
	if d < domain.MinQuestionDifficulty {
		return domain.MinQuestionDifficulty
	}
	if d > domain.MaxQuestionDifficulty {
		return domain.MaxQuestionDifficulty
	}
	return d
}
