// Package conversation drives one turn end to end: check the session out
// of the store, classify the topic, resolve required fields against
// stored state, dispatch through the graph, and fold the result back into
// the session. Persistence happens only after the handler succeeded; a
// failed turn leaves the stored session untouched.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wayfarer-ai/wayfarer/internal/events"
	"github.com/wayfarer-ai/wayfarer/internal/graph"
	"github.com/wayfarer-ai/wayfarer/internal/resolve"
	"github.com/wayfarer-ai/wayfarer/internal/router"
	"github.com/wayfarer-ai/wayfarer/internal/sessions"
	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

// ErrNotFound is returned when a conversation id has no stored session.
var ErrNotFound = errors.New("conversation not found")

// TurnRequest is one incoming turn. Every field except Topic may instead
// come from the stored session state.
type TurnRequest struct {
	ConversationID string
	Topic          string
	Preferences    []string
	Budget         *float64
	Location       *travel.Location
	Activities     []string
	DateRange      *travel.DateRange
}

// TurnResult is what a processed turn hands back to the transport layer.
type TurnResult struct {
	ConversationID string                               `json:"conversationId"`
	Topic          router.Topic                         `json:"topic"`
	Destination    *travel.TravelRecommendation         `json:"destination,omitempty"`
	WeatherPacking *travel.WeatherPackingRecommendation `json:"weatherPacking,omitempty"`

	// Pipeline-mode flags: both fallbacks are observable, never silent.
	TopicDefaulted bool `json:"topicDefaulted,omitempty"`
	WeatherSkipped bool `json:"weatherSkipped,omitempty"`
}

// Service wires the store, the orchestrator, and the event bus together.
type Service struct {
	store sessions.Store
	orch  *graph.Orchestrator
	bus   *events.Bus
}

// NewService builds the conversation service. The store is injected so
// tests can run against the in-memory adapter.
func NewService(store sessions.Store, orch *graph.Orchestrator, bus *events.Bus) *Service {
	return &Service{store: store, orch: orch, bus: bus}
}

// Chat processes one single-handler turn: exactly one recommendation
// handler runs, selected by the topic.
func (s *Service) Chat(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	sess, created, err := s.checkout(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	topic, branch, _, err := router.Route(req.Topic, false)
	s.emit(events.EventTopicClassified, events.SourceRouter, sess.ID, map[string]any{"topic": string(topic)})
	if err != nil {
		return nil, err
	}

	state := &graph.State{
		ConversationID: sess.ID,
		Topic:          topic,
		Budget:         req.Budget,
	}
	if err := s.resolveFields(branch, req, sess, state); err != nil {
		return nil, err
	}

	state, err = s.orch.RunSingle(ctx, state)
	if err != nil {
		s.emit(events.EventTurnAborted, events.SourceIntegrator, sess.ID, map[string]any{"error": err.Error()})
		return nil, err
	}

	if err := s.commit(ctx, sess, topic, branch, state, created); err != nil {
		return nil, err
	}

	return &TurnResult{
		ConversationID: sess.ID,
		Topic:          topic,
		Destination:    state.Destination,
		WeatherPacking: state.WeatherPacking,
	}, nil
}

// Plan processes one pipeline-mode turn: the destination stage always
// runs first and its first recommended location feeds the weather stage.
// An unknown topic falls back to the destinations branch, flagged in the
// result.
func (s *Service) Plan(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	sess, created, err := s.checkout(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	topic, _, defaulted, _ := router.Route(req.Topic, true)
	s.emit(events.EventTopicClassified, events.SourceRouter, sess.ID, map[string]any{"topic": string(topic)})
	if defaulted {
		s.emit(events.EventTopicDefaulted, events.SourceRouter, sess.ID, map[string]any{"raw": req.Topic})
	}

	state := &graph.State{
		ConversationID: sess.ID,
		Topic:          topic,
		Budget:         req.Budget,
		TopicDefaulted: defaulted,
	}

	// Pipeline mode needs both stages' inputs up front: fail before any
	// external call if a field is missing from request and context alike.
	fields := &sess.ResolvedFields
	if state.Preferences, err = resolveField(s, sess.ID, "preferences", req.Preferences, fields.Preferences, resolve.StringSet); err != nil {
		return nil, err
	}
	if state.Activities, err = resolveField(s, sess.ID, "activities", req.Activities, fields.Activities, resolve.StringSet); err != nil {
		return nil, err
	}
	if state.DateRange, err = resolveField(s, sess.ID, "dateRange", req.DateRange, fields.DateRange, resolve.DateRangePtr); err != nil {
		return nil, err
	}

	state, err = s.orch.RunPipeline(ctx, state)
	if err != nil {
		s.emit(events.EventTurnAborted, events.SourceIntegrator, sess.ID, map[string]any{"error": err.Error()})
		return nil, err
	}

	if err := s.commitPlan(ctx, sess, topic, state, created); err != nil {
		return nil, err
	}

	return &TurnResult{
		ConversationID: sess.ID,
		Topic:          topic,
		Destination:    state.Destination,
		WeatherPacking: state.WeatherPacking,
		TopicDefaulted: state.TopicDefaulted,
		WeatherSkipped: state.WeatherSkipped,
	}, nil
}

// Context returns the stored session for a conversation.
func (s *Service) Context(ctx context.Context, id string) (*sessions.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a conversation, reporting how many entries went away.
func (s *Service) Delete(ctx context.Context, id string) (int64, error) {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.emit(events.EventSessionDeleted, events.SourceIntegrator, id, nil)
	}
	return n, nil
}

// checkout loads the session for a turn, creating a fresh one when the
// key has no stored state. The returned session is a private copy; the
// durable copy stays untouched until commit.
func (s *Service) checkout(ctx context.Context, id string) (*sessions.Session, bool, error) {
	if id != "" {
		sess, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if sess != nil {
			return sess, false, nil
		}
	}
	return sessions.NewSession(id), true, nil
}

// resolveFields fills the state with the branch's required inputs,
// merging request values over stored context.
func (s *Service) resolveFields(branch router.Branch, req TurnRequest, sess *sessions.Session, state *graph.State) error {
	fields := &sess.ResolvedFields
	var err error

	switch branch {
	case router.BranchDestinations:
		if state.Preferences, err = resolveField(s, sess.ID, "preferences", req.Preferences, fields.Preferences, resolve.StringSet); err != nil {
			return err
		}
		if state.DateRange, err = resolveField(s, sess.ID, "dateRange", req.DateRange, fields.DateRange, resolve.DateRangePtr); err != nil {
			return err
		}
	case router.BranchWeatherPacking:
		if state.Location, err = resolveField(s, sess.ID, "location", req.Location, fields.Location, resolve.LocationPtr); err != nil {
			return err
		}
		if state.Activities, err = resolveField(s, sess.ID, "activities", req.Activities, fields.Activities, resolve.StringSet); err != nil {
			return err
		}
		if state.DateRange, err = resolveField(s, sess.ID, "dateRange", req.DateRange, fields.DateRange, resolve.DateRangePtr); err != nil {
			return err
		}
	}
	return nil
}

// resolveField resolves one field and emits where the value came from.
// Free function because methods cannot be generic.
func resolveField[T any](s *Service, conversationID, field string, request, stored T, present func(T) bool) (T, error) {
	value, source, err := resolve.Resolve(field, request, stored, present)
	if err != nil {
		var zero T
		return zero, err
	}
	s.emit(events.EventFieldResolved, events.SourceResolver, conversationID, map[string]any{
		"field":  field,
		"source": string(source),
	})
	return value, nil
}

// commit integrates a single-handler turn into the session and persists
// it: one message wrapping the handler output, resolved fields updated to
// the values the handler actually saw, TTL refreshed.
func (s *Service) commit(ctx context.Context, sess *sessions.Session, topic router.Topic, branch router.Branch, state *graph.State, created bool) error {
	switch branch {
	case router.BranchDestinations:
		if err := sess.Append(sessions.RoleSystem, sessions.TypeDestinationRecommendation, state.Destination); err != nil {
			return err
		}
		sess.ResolvedFields.Preferences = state.Preferences
		sess.ResolvedFields.DateRange = state.DateRange
	case router.BranchWeatherPacking:
		if err := sess.Append(sessions.RoleSystem, sessions.TypeWeatherPackingRecommendation, state.WeatherPacking); err != nil {
			return err
		}
		sess.ResolvedFields.Location = state.Location
		sess.ResolvedFields.Activities = state.Activities
		sess.ResolvedFields.DateRange = state.DateRange
	}
	sess.ActiveTopic = string(topic)

	return s.save(ctx, sess, created)
}

// commitPlan integrates a pipeline turn: one message per produced
// recommendation, in stage order.
func (s *Service) commitPlan(ctx context.Context, sess *sessions.Session, topic router.Topic, state *graph.State, created bool) error {
	if err := sess.Append(sessions.RoleSystem, sessions.TypeDestinationRecommendation, state.Destination); err != nil {
		return err
	}
	if state.WeatherPacking != nil {
		if err := sess.Append(sessions.RoleSystem, sessions.TypeWeatherPackingRecommendation, state.WeatherPacking); err != nil {
			return err
		}
	}

	sess.ResolvedFields.Preferences = state.Preferences
	sess.ResolvedFields.Activities = state.Activities
	sess.ResolvedFields.DateRange = state.DateRange
	if state.Location != nil {
		sess.ResolvedFields.Location = state.Location
	}
	sess.ActiveTopic = string(topic)

	return s.save(ctx, sess, created)
}

func (s *Service) save(ctx context.Context, sess *sessions.Session, created bool) error {
	if err := s.store.Save(ctx, sess); err != nil {
		s.emit(events.EventTurnAborted, events.SourceIntegrator, sess.ID, map[string]any{"error": err.Error()})
		return fmt.Errorf("persist session %s: %w", sess.ID, err)
	}
	if created {
		s.emit(events.EventSessionCreated, events.SourceIntegrator, sess.ID, nil)
	}
	s.emit(events.EventTurnCommitted, events.SourceIntegrator, sess.ID, map[string]any{"messages": len(sess.Messages)})
	slog.Debug("turn committed", "conversation", sess.ID, "topic", sess.ActiveTopic, "messages", len(sess.Messages))
	return nil
}

func (s *Service) emit(t events.EventType, source events.EventSource, conversationID string, payload map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.New(t, source, conversationID, payload))
}
