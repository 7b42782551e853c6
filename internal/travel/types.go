// Package travel holds the shared travel domain model: locations, date
// ranges, and the closed recommendation types produced by the handlers.
package travel

import "time"

// Location is a city/country pair, optionally with a short description
// when it comes out of a destination recommendation.
type Location struct {
	City        string `json:"city"`
	Country     string `json:"country"`
	Description string `json:"description,omitempty"`
}

// DateRange is a travel window. Start must precede End.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Budget is an estimated spend bracket for a recommendation.
type Budget struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// TravelRecommendation is the destination handler's output. Fields are
// closed structs rather than open maps so downstream code can match on
// them safely.
type TravelRecommendation struct {
	Locations       []Location `json:"locations"`
	Activities      []string   `json:"activities"`
	BestTimeToVisit string     `json:"bestTimeToVisit"`
	EstimatedBudget Budget     `json:"estimatedBudget"`
	CulturalNotes   []string   `json:"culturalNotes"`
}

// EmptyTravelRecommendation is the well-formed zero recommendation the
// destination handler degrades to when its model output cannot be parsed.
func EmptyTravelRecommendation() *TravelRecommendation {
	return &TravelRecommendation{
		Locations:       []Location{},
		Activities:      []string{},
		BestTimeToVisit: "unspecified",
		EstimatedBudget: Budget{Currency: "USD"},
		CulturalNotes:   []string{},
	}
}

// WeatherInfo describes current conditions at a destination.
type WeatherInfo struct {
	Temperature         float64 `json:"temperature"`
	Conditions          string  `json:"conditions"`
	Season              string  `json:"season"`
	RecommendedClothing string  `json:"recommendedClothing"`
}

// PackingRecommendation is a generated packing list.
type PackingRecommendation struct {
	Essentials       []string `json:"essentials"`
	Clothing         []string `json:"clothing"`
	Documents        []string `json:"documents"`
	Equipment        []string `json:"equipment"`
	WeightEstimation float64  `json:"weightEstimation"`
}

// EmptyPackingRecommendation is the degraded packing output used when the
// model response cannot be parsed.
func EmptyPackingRecommendation() *PackingRecommendation {
	return &PackingRecommendation{
		Essentials: []string{},
		Clothing:   []string{},
		Documents:  []string{},
		Equipment:  []string{},
	}
}

// WeatherPackingRecommendation is the weather/packing handler's output.
type WeatherPackingRecommendation struct {
	Weather WeatherInfo           `json:"weather"`
	Packing PackingRecommendation `json:"packing"`
}

// DestinationQuery is the destination handler input.
type DestinationQuery struct {
	Preferences []string
	Budget      *float64
	DateRange   *DateRange
}

// WeatherQuery is the weather/packing handler input.
type WeatherQuery struct {
	Location   Location
	DateRange  DateRange
	Activities []string
}
