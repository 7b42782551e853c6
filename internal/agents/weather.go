package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

const packingPrompt = `You are a travel expert. Create a packing list for %s with the following activities: %s.
Take this weather into account:
- Temperature: %.1f°C
- Conditions: %s
- Season: %s
- Recommended clothing: %s

Reply with ONLY a JSON object in this shape, filling the fields from the data above:
{
  "essentials": ["passport", "money", "cards"],
  "clothing": ["jacket", "boots", "trousers"],
  "documents": ["passport", "travel insurance"],
  "equipment": ["backpack", "camera"],
  "weightEstimation": 15
}

Do not include any additional text, only the JSON.`

// WeatherSource provides current conditions for a location.
type WeatherSource interface {
	Current(ctx context.Context, loc travel.Location) (*travel.WeatherInfo, error)
}

// WeatherPackingAgent looks up current weather and then generates a
// packing list from it. The two steps are strictly sequential: packing
// generation never starts unless the weather lookup succeeded.
type WeatherPackingAgent struct {
	weather   WeatherSource
	chatModel model.BaseChatModel
}

// NewWeatherPackingAgent builds the weather/packing handler.
func NewWeatherPackingAgent(weather WeatherSource, chatModel model.BaseChatModel) *WeatherPackingAgent {
	return &WeatherPackingAgent{weather: weather, chatModel: chatModel}
}

// RecommendWeatherPacking fetches the weather for the queried location and
// generates a packing list for it. A weather failure aborts the handler;
// an unparseable packing reply degrades to an empty well-formed list.
func (a *WeatherPackingAgent) RecommendWeatherPacking(ctx context.Context, q travel.WeatherQuery) (*travel.WeatherPackingRecommendation, error) {
	weather, err := a.weather.Current(ctx, q.Location)
	if err != nil {
		return nil, fmt.Errorf("weather for %s: %w", q.Location.City, err)
	}

	packing, err := a.generatePacking(ctx, q, weather)
	if err != nil {
		return nil, fmt.Errorf("packing for %s: %w", q.Location.City, err)
	}

	return &travel.WeatherPackingRecommendation{
		Weather: *weather,
		Packing: *packing,
	}, nil
}

func (a *WeatherPackingAgent) generatePacking(ctx context.Context, q travel.WeatherQuery, weather *travel.WeatherInfo) (*travel.PackingRecommendation, error) {
	prompt := fmt.Sprintf(packingPrompt,
		q.Location.City, strings.Join(q.Activities, ", "),
		weather.Temperature, weather.Conditions, weather.Season, weather.RecommendedClothing)

	reply, err := a.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, err
	}

	var packing travel.PackingRecommendation
	if !extractJSON(reply.Content, &packing) {
		slog.Warn("packing reply was not valid JSON, degrading to empty list", "city", q.Location.City)
		return travel.EmptyPackingRecommendation(), nil
	}
	return &packing, nil
}
