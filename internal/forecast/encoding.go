// Package forecast implements the climate-driven forecasting workflow:
// feature encoding, regressor invocation, demographic adjustment and the
// session record around them.
package forecast

import (
	"fmt"

	"github.com/epiwatch/sentinel/internal/models"
	"github.com/epiwatch/sentinel/internal/predictor"
)

// NumFeatures is the width of the encoded feature vector, in the fixed
// order: country, city, month, temperature, humidity, rainfall, previous
// cases.
const NumFeatures = 7

// The ordinal tables below are a wire contract with the trained regressor:
// the model consumes indices into these exact orderings. Any reordering or
// insertion silently corrupts predictions without raising an error, so the
// tables are versioned data, never to be re-derived at runtime.
var (
	countries = []string{"Senegal", "Mali", "Guinea", "Ivory Coast", "Burkina Faso"}

	// Cities are indexed across the concatenation of every country's city
	// list, in countries order. City index is global, not per country.
	citiesByCountry = map[string][]string{
		"Senegal":      {"Dakar", "Thies", "Saint-Louis", "Ziguinchor"},
		"Mali":         {"Bamako", "Sikasso", "Kayes", "Mopti"},
		"Guinea":       {"Conakry", "Nzerekore", "Kindia", "Labe"},
		"Ivory Coast":  {"Abidjan", "Yamoussoukro", "Bouake", "Daloa"},
		"Burkina Faso": {"Ouagadougou", "Bobo-Dioulasso", "Koudougou", "Banfora"},
	}

	// The forecast model covers the May–October transmission season only.
	months = []string{"May", "June", "July", "August", "September", "October"}
)

// Numeric parameter bounds, inclusive.
const (
	MinTemperature = 15.0
	MaxTemperature = 45.0
	MinRainfallMm  = 0.0
	MaxRainfallMm  = 500.0
	MinHumidityPct = 20.0
	MaxHumidityPct = 100.0
	MinPrevCases   = 0
	MaxPrevCases   = 200
	MinHealthcare  = 1
	MaxHealthcare  = 10
)

// ValidationError reports a forecast parameter that violates a domain
// constraint. It never causes session mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Countries returns the supported countries in encoding order.
func Countries() []string {
	return append([]string(nil), countries...)
}

// Cities returns the valid cities for a country, or nil if unknown.
func Cities(country string) []string {
	return append([]string(nil), citiesByCountry[country]...)
}

// Months returns the supported months in encoding order.
func Months() []string {
	return append([]string(nil), months...)
}

// Validate checks every parameter of req against the domain constraints.
// City membership fails closed: a city outside the selected country's set is
// an error even when it exists under another country.
func Validate(req *models.ForecastRequest) error {
	if indexOf(countries, req.Country) < 0 {
		return &ValidationError{Field: "country", Reason: fmt.Sprintf("unknown country %q", req.Country)}
	}
	if indexOf(citiesByCountry[req.Country], req.City) < 0 {
		return &ValidationError{Field: "city", Reason: fmt.Sprintf("%q is not a city of %s", req.City, req.Country)}
	}
	if indexOf(months, req.Month) < 0 {
		return &ValidationError{Field: "month", Reason: fmt.Sprintf("unknown month %q (season is May-October)", req.Month)}
	}
	if req.Temperature < MinTemperature || req.Temperature > MaxTemperature {
		return &ValidationError{Field: "temperature_c", Reason: fmt.Sprintf("must be within [%v, %v]", MinTemperature, MaxTemperature)}
	}
	if req.RainfallMm < MinRainfallMm || req.RainfallMm > MaxRainfallMm {
		return &ValidationError{Field: "rainfall_mm", Reason: fmt.Sprintf("must be within [%v, %v]", MinRainfallMm, MaxRainfallMm)}
	}
	if req.HumidityPct < MinHumidityPct || req.HumidityPct > MaxHumidityPct {
		return &ValidationError{Field: "humidity_pct", Reason: fmt.Sprintf("must be within [%v, %v]", MinHumidityPct, MaxHumidityPct)}
	}
	if req.PreviousCases < MinPrevCases || req.PreviousCases > MaxPrevCases {
		return &ValidationError{Field: "previous_cases", Reason: fmt.Sprintf("must be within [%d, %d]", MinPrevCases, MaxPrevCases)}
	}
	switch req.PopulationTier {
	case models.PopulationSmall, models.PopulationMedium, models.PopulationLarge:
	default:
		return &ValidationError{Field: "population_tier", Reason: fmt.Sprintf("unknown tier %q", req.PopulationTier)}
	}
	if req.HealthcareIndex < MinHealthcare || req.HealthcareIndex > MaxHealthcare {
		return &ValidationError{Field: "healthcare_index", Reason: fmt.Sprintf("must be within [%d, %d]", MinHealthcare, MaxHealthcare)}
	}
	return nil
}

// Encode validates req and maps it to the regressor's feature vector.
func Encode(req *models.ForecastRequest) ([]float64, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	countryIdx := indexOf(countries, req.Country)
	cityIdx := globalCityIndex(req.Country, req.City)
	monthIdx := indexOf(months, req.Month)

	return []float64{
		float64(countryIdx),
		float64(cityIdx),
		float64(monthIdx),
		req.Temperature,
		req.HumidityPct,
		req.RainfallMm,
		float64(req.PreviousCases),
	}, nil
}

// VerifyEncoding checks the tables against the regressor's expected input
// shape. Called once at startup so an encoding/model mismatch fails loudly
// instead of silently corrupting predictions.
func VerifyEncoding(r predictor.CaseRegressor) error {
	if got := r.NumFeatures(); got != NumFeatures {
		return fmt.Errorf("regressor %s expects %d features, encoder produces %d", r.Name(), got, NumFeatures)
	}

	total := 0
	for _, country := range countries {
		cities, ok := citiesByCountry[country]
		if !ok || len(cities) == 0 {
			return fmt.Errorf("country %s has no city table", country)
		}
		total += len(cities)
	}
	if total != 20 {
		return fmt.Errorf("city table holds %d entries, want 20", total)
	}
	if len(countries) != 5 || len(months) != 6 {
		return fmt.Errorf("ordinal tables out of shape: %d countries, %d months", len(countries), len(months))
	}
	return nil
}

// globalCityIndex returns the city's index across the concatenated table.
func globalCityIndex(country, city string) int {
	offset := 0
	for _, c := range countries {
		if c == country {
			return offset + indexOf(citiesByCountry[c], city)
		}
		offset += len(citiesByCountry[c])
	}
	return -1
}

func indexOf(list []string, v string) int {
	for i, item := range list {
		if item == v {
			return i
		}
	}
	return -1
}
