package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	duckduckgo "github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

const destinationPrompt = `You are an expert travel assistant. Based on the following search results:

%s

Reply with **only** a JSON object in this exact shape:
{
  "locations": [
    {"city": "City name", "country": "Country name", "description": "One-line description of the destination."}
  ],
  "activities": ["recommended activities"],
  "bestTimeToVisit": "ideal season to visit",
  "estimatedBudget": {"min": 1000, "max": 2000, "currency": "USD"},
  "culturalNotes": ["cultural notes about the destination"]
}

Important: respond with the JSON only, no additional text.`

// DestinationAgent searches the web for candidate destinations and asks a
// chat model to distill the results into a structured recommendation.
type DestinationAgent struct {
	chatModel model.BaseChatModel
	search    tool.InvokableTool
}

// NewDestinationAgent builds the destination handler with a DuckDuckGo
// text search tool and the given chat model.
func NewDestinationAgent(ctx context.Context, chatModel model.BaseChatModel) (*DestinationAgent, error) {
	search, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "destination_search",
		ToolDesc:   "Search the web for travel destinations.",
		MaxResults: 10,
		Timeout:    15 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("init destination search: %w", err)
	}
	return &DestinationAgent{chatModel: chatModel, search: search}, nil
}

// NewDestinationAgentWithSearch injects a custom search tool. Used by tests.
func NewDestinationAgentWithSearch(chatModel model.BaseChatModel, search tool.InvokableTool) *DestinationAgent {
	return &DestinationAgent{chatModel: chatModel, search: search}
}

// RecommendDestinations searches for destinations matching the query, then
// distills the results into a TravelRecommendation. A model reply that
// cannot be parsed degrades to an empty well-formed recommendation rather
// than failing the turn.
func (a *DestinationAgent) RecommendDestinations(ctx context.Context, q travel.DestinationQuery) (*travel.TravelRecommendation, error) {
	results, err := a.searchDestinations(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("destination search: %w", err)
	}

	reply, err := a.chatModel.Generate(ctx, []*schema.Message{
		schema.UserMessage(fmt.Sprintf(destinationPrompt, results)),
	})
	if err != nil {
		return nil, fmt.Errorf("destination generation: %w", err)
	}

	var rec travel.TravelRecommendation
	if !extractJSON(reply.Content, &rec) {
		slog.Warn("destination reply was not valid JSON, degrading to empty recommendation")
		return travel.EmptyTravelRecommendation(), nil
	}
	if rec.Locations == nil {
		rec.Locations = []travel.Location{}
	}
	return &rec, nil
}

func (a *DestinationAgent) searchDestinations(ctx context.Context, q travel.DestinationQuery) (string, error) {
	query := fmt.Sprintf("travel destinations for %s", strings.Join(q.Preferences, ", "))
	if q.Budget != nil {
		query += fmt.Sprintf(" with a budget of %.0f USD", *q.Budget)
	}
	if q.DateRange != nil {
		query += " in " + q.DateRange.Start.Format("January 2006")
	}

	args, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", err
	}
	return a.search.InvokableRun(ctx, string(args))
}
