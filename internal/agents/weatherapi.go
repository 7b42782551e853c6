package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

// DefaultWeatherBaseURL is the WeatherAPI endpoint for current conditions.
const DefaultWeatherBaseURL = "https://api.weatherapi.com/v1"

// WeatherClient fetches current conditions from WeatherAPI.
type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewWeatherClient creates a client for the given API key. An empty
// baseURL falls back to the public WeatherAPI endpoint.
func NewWeatherClient(apiKey, baseURL string) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherBaseURL
	}
	return &WeatherClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type currentConditionsResponse struct {
	Current struct {
		TempC     float64 `json:"temp_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// Current returns the current conditions at a location, with the season
// and clothing heuristics filled in.
func (c *WeatherClient) Current(ctx context.Context, loc travel.Location) (*travel.WeatherInfo, error) {
	u := fmt.Sprintf("%s/current.json?key=%s&q=%s",
		c.baseURL, url.QueryEscape(c.apiKey),
		url.QueryEscape(loc.City+","+loc.Country))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather lookup: unexpected status %d", resp.StatusCode)
	}

	var body currentConditionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	return &travel.WeatherInfo{
		Temperature:         body.Current.TempC,
		Conditions:          body.Current.Condition.Text,
		Season:              seasonFor(loc, time.Now()),
		RecommendedClothing: clothingFor(body.Current.TempC),
	}, nil
}

// southernHemisphere lists countries whose seasons are inverted relative
// to the northern-hemisphere defaults.
var southernHemisphere = map[string]bool{
	"Argentina":    true,
	"Brazil":       true,
	"Chile":        true,
	"Uruguay":      true,
	"Australia":    true,
	"New Zealand":  true,
	"South Africa": true,
}

func seasonFor(loc travel.Location, now time.Time) string {
	month := int(now.Month())
	if southernHemisphere[loc.Country] {
		switch {
		case month >= 9 && month <= 11:
			return "spring"
		case month >= 6 && month <= 8:
			return "winter"
		default:
			return "summer"
		}
	}
	switch {
	case month >= 3 && month <= 5:
		return "spring"
	case month >= 6 && month <= 8:
		return "summer"
	default:
		return "winter"
	}
}

func clothingFor(tempC float64) string {
	switch {
	case tempC < 10:
		return "warm coat, gloves, scarf"
	case tempC < 20:
		return "light jacket, long trousers"
	default:
		return "light clothing, sunglasses"
	}
}
