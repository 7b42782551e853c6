// Package agents implements the recommendation handlers: destination
// search and weather/packing generation. The orchestration core depends
// only on the two handler interfaces here, so tests and alternate
// providers can swap implementations freely.
package agents

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

// DestinationHandler produces destination recommendations from
// preferences, an optional budget, and an optional date range.
type DestinationHandler interface {
	RecommendDestinations(ctx context.Context, q travel.DestinationQuery) (*travel.TravelRecommendation, error)
}

// WeatherPackingHandler produces current weather plus a packing list for
// a concrete location. The weather lookup always completes before packing
// generation starts; packing is generated from the weather result.
type WeatherPackingHandler interface {
	RecommendWeatherPacking(ctx context.Context, q travel.WeatherQuery) (*travel.WeatherPackingRecommendation, error)
}

// extractJSON unmarshals the first-to-last brace span of a model reply
// into out. Models are prompted to answer with bare JSON but routinely
// wrap it in prose or code fences.
func extractJSON(text string, out any) bool {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(text[start:end+1]), out) == nil
}
