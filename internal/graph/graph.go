// Package graph executes a turn's handler dispatch as a small Eino
// workflow graph. Single-handler mode routes to exactly one handler;
// pipeline mode composes the destination stage into the weather/packing
// stage in a fixed order.
package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/wayfarer-ai/wayfarer/internal/agents"
	"github.com/wayfarer-ai/wayfarer/internal/events"
	"github.com/wayfarer-ai/wayfarer/internal/router"
	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

const (
	nodeRoute        = "topic_router"
	nodeDestinations = "destination_agent"
	nodeWeather      = "weather_packing_agent"
)

// State is the turn state carried through the graph. Inputs are the
// already-resolved field values; outputs are filled in by the nodes.
type State struct {
	ConversationID string
	Topic          router.Topic

	Preferences []string
	Budget      *float64
	Activities  []string
	DateRange   *travel.DateRange
	Location    *travel.Location

	Destination    *travel.TravelRecommendation
	WeatherPacking *travel.WeatherPackingRecommendation

	// TopicDefaulted is set by the caller when an unknown topic was
	// redirected to the destinations branch. WeatherSkipped is set when
	// pipeline mode had no location to hand to the weather stage.
	TopicDefaulted bool
	WeatherSkipped bool
}

// HandlerError wraps a recommendation handler failure. The session is
// never committed when one of these comes back.
type HandlerError struct {
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Orchestrator holds the two compiled graphs, one per operating mode.
type Orchestrator struct {
	destinations   agents.DestinationHandler
	weatherPacking agents.WeatherPackingHandler
	bus            *events.Bus

	single   compose.Runnable[*State, *State]
	pipeline compose.Runnable[*State, *State]
}

// New compiles the single-handler and pipeline graphs.
func New(ctx context.Context, destinations agents.DestinationHandler, weatherPacking agents.WeatherPackingHandler, bus *events.Bus) (*Orchestrator, error) {
	o := &Orchestrator{
		destinations:   destinations,
		weatherPacking: weatherPacking,
		bus:            bus,
	}

	single, err := o.compileSingle(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile single-handler graph: %w", err)
	}
	o.single = single

	pipeline, err := o.compilePipeline(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile pipeline graph: %w", err)
	}
	o.pipeline = pipeline

	return o, nil
}

// compileSingle builds START → router ⇒ (destinations | weather) → END.
// The branch reads the pre-classified topic; classification itself has
// already happened before the graph runs.
func (o *Orchestrator) compileSingle(ctx context.Context) (compose.Runnable[*State, *State], error) {
	g := compose.NewGraph[*State, *State]()

	if err := g.AddLambdaNode(nodeRoute, compose.InvokableLambda(
		func(ctx context.Context, s *State) (*State, error) { return s, nil },
	)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeDestinations, compose.InvokableLambda(o.runDestinations)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeWeather, compose.InvokableLambda(o.runWeatherPacking)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, nodeRoute); err != nil {
		return nil, err
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, s *State) (string, error) {
			if s.Topic == router.TopicWeather || s.Topic == router.TopicPacking {
				return nodeWeather, nil
			}
			return nodeDestinations, nil
		},
		map[string]bool{nodeDestinations: true, nodeWeather: true},
	)
	if err := g.AddBranch(nodeRoute, branch); err != nil {
		return nil, err
	}

	if err := g.AddEdge(nodeDestinations, compose.END); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeWeather, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx)
}

// compilePipeline builds START → destinations → weather → END. Stage two
// always follows stage one; it only short-circuits when stage one
// produced no locations.
func (o *Orchestrator) compilePipeline(ctx context.Context) (compose.Runnable[*State, *State], error) {
	g := compose.NewGraph[*State, *State]()

	if err := g.AddLambdaNode(nodeDestinations, compose.InvokableLambda(o.runDestinations)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodeWeather, compose.InvokableLambda(o.runPipelineWeather)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, nodeDestinations); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeDestinations, nodeWeather); err != nil {
		return nil, err
	}
	if err := g.AddEdge(nodeWeather, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx)
}

// RunSingle dispatches exactly one handler for the turn.
func (o *Orchestrator) RunSingle(ctx context.Context, s *State) (*State, error) {
	return o.single.Invoke(ctx, s)
}

// RunPipeline runs the destination stage, then the weather stage on its
// first recommended location.
func (o *Orchestrator) RunPipeline(ctx context.Context, s *State) (*State, error) {
	return o.pipeline.Invoke(ctx, s)
}

func (o *Orchestrator) runDestinations(ctx context.Context, s *State) (*State, error) {
	o.emit(events.EventHandlerDispatched, s, map[string]any{"handler": nodeDestinations})

	rec, err := o.destinations.RecommendDestinations(ctx, travel.DestinationQuery{
		Preferences: s.Preferences,
		Budget:      s.Budget,
		DateRange:   s.DateRange,
	})
	if err != nil {
		o.emit(events.EventHandlerFailed, s, map[string]any{"handler": nodeDestinations, "error": err.Error()})
		return nil, &HandlerError{Handler: nodeDestinations, Err: err}
	}

	s.Destination = rec
	o.emit(events.EventHandlerCompleted, s, map[string]any{"handler": nodeDestinations, "locations": len(rec.Locations)})
	return s, nil
}

func (o *Orchestrator) runWeatherPacking(ctx context.Context, s *State) (*State, error) {
	return o.weatherStage(ctx, s, *s.Location)
}

// runPipelineWeather feeds the first recommended location into the
// weather stage. With no recommended locations the destination output is
// surfaced as-is and the skip is flagged for the caller.
func (o *Orchestrator) runPipelineWeather(ctx context.Context, s *State) (*State, error) {
	if s.Destination == nil || len(s.Destination.Locations) == 0 {
		s.WeatherSkipped = true
		o.emit(events.EventStageSkipped, s, map[string]any{"reason": "no recommended locations"})
		return s, nil
	}
	return o.weatherStage(ctx, s, s.Destination.Locations[0])
}

func (o *Orchestrator) weatherStage(ctx context.Context, s *State, loc travel.Location) (*State, error) {
	o.emit(events.EventHandlerDispatched, s, map[string]any{"handler": nodeWeather, "city": loc.City})

	rec, err := o.weatherPacking.RecommendWeatherPacking(ctx, travel.WeatherQuery{
		Location:   loc,
		DateRange:  *s.DateRange,
		Activities: s.Activities,
	})
	if err != nil {
		o.emit(events.EventHandlerFailed, s, map[string]any{"handler": nodeWeather, "error": err.Error()})
		return nil, &HandlerError{Handler: nodeWeather, Err: err}
	}

	s.WeatherPacking = rec
	s.Location = &loc
	o.emit(events.EventHandlerCompleted, s, map[string]any{"handler": nodeWeather})
	return s, nil
}

func (o *Orchestrator) emit(t events.EventType, s *State, payload map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.New(t, events.SourceOrchestrator, s.ConversationID, payload))
}
