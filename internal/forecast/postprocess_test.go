package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/epiwatch/sentinel/internal/models"
)

func TestAdjustReferenceCase(t *testing.T) {
	// base 30, large tier (1.5), healthcare 10 -> factor 0.2 -> floor(9.0) = 9
	cases, risk := Adjust(30, models.PopulationLarge, 10)
	assert.Equal(t, 9, cases)
	assert.Equal(t, models.RiskLow, risk)
}

func TestAdjustFloorsFractions(t *testing.T) {
	// 31 * 1.0 * 0.7 = 21.7 -> 21
	cases, risk := Adjust(31, models.PopulationMedium, 5)
	assert.Equal(t, 21, cases)
	assert.Equal(t, models.RiskModerate, risk)
}

func TestAdjustNeverNegative(t *testing.T) {
	for _, base := range []float64{-100, -1, -0.01, 0} {
		for _, tier := range []models.PopulationTier{models.PopulationSmall, models.PopulationMedium, models.PopulationLarge} {
			for hci := 1; hci <= 10; hci++ {
				cases, _ := Adjust(base, tier, hci)
				assert.GreaterOrEqual(t, cases, 0)
			}
		}
	}
}

func TestRiskTierBoundaries(t *testing.T) {
	tests := []struct {
		cases int
		want  models.RiskLevel
	}{
		{0, models.RiskLow},
		{19, models.RiskLow},
		{20, models.RiskModerate},
		{49, models.RiskModerate},
		{50, models.RiskHigh},
		{500, models.RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskFor(tt.cases), "cases=%d", tt.cases)
	}
}

func TestPopulationFactors(t *testing.T) {
	// Factors 0.7 / 1.0 / 1.5 against base 100, healthcare 2 (factor 1.0).
	small, _ := Adjust(100, models.PopulationSmall, 2)
	medium, _ := Adjust(100, models.PopulationMedium, 2)
	large, _ := Adjust(100, models.PopulationLarge, 2)

	assert.Equal(t, 70, small)
	assert.Equal(t, 100, medium)
	assert.Equal(t, 150, large)
}

func TestModelConfidenceClamp(t *testing.T) {
	assert.Equal(t, 77, ModelConfidence(1))
	assert.Equal(t, 85, ModelConfidence(5))
	assert.Equal(t, 93, ModelConfidence(9))
	assert.Equal(t, 95, ModelConfidence(10)) // 75+20 clamps at 95
}
