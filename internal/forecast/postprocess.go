package forecast

import (
	"math"

	"github.com/epiwatch/sentinel/internal/models"
)

var populationFactors = map[models.PopulationTier]float64{
	models.PopulationSmall:  0.7,
	models.PopulationMedium: 1.0,
	models.PopulationLarge:  1.5,
}

// Adjust scales the raw model output by the demographic and healthcare
// factors and buckets the result into a risk tier. The returned case count
// is always a non-negative integer, even for a negative base prediction.
func Adjust(basePrediction float64, tier models.PopulationTier, healthcareIndex int) (int, models.RiskLevel) {
	populationFactor := populationFactors[tier]
	// 1.2 - index/10, computed over integers first so the factor for a
	// perfect index is 0.2 and not 0.19999999999999996, which would floor
	// one case too low.
	healthcareFactor := float64(12-healthcareIndex) / 10

	cases := int(math.Floor(basePrediction * populationFactor * healthcareFactor))
	if cases < 0 {
		cases = 0
	}
	return cases, riskFor(cases)
}

// riskFor buckets a case count: [0,20) low, [20,50) moderate, 50+ high.
func riskFor(cases int) models.RiskLevel {
	switch {
	case cases < 20:
		return models.RiskLow
	case cases < 50:
		return models.RiskModerate
	default:
		return models.RiskHigh
	}
}

// ModelConfidence is the presentation confidence heuristic, in percent. It
// is not a statistically calibrated figure.
func ModelConfidence(healthcareIndex int) int {
	c := 75 + healthcareIndex*2
	if c > 95 {
		c = 95
	}
	return c
}
