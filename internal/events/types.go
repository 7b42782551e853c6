package events

// EventType identifies a turn lifecycle transition.
type EventType string

const (
	// Routing
	EventTopicClassified EventType = "topic.classified"
	EventTopicDefaulted  EventType = "topic.defaulted"

	// Field resolution
	EventFieldResolved EventType = "field.resolved"

	// Handler dispatch
	EventHandlerDispatched EventType = "handler.dispatched"
	EventHandlerCompleted  EventType = "handler.completed"
	EventHandlerFailed     EventType = "handler.failed"

	// Pipeline
	EventStageSkipped EventType = "pipeline.stage_skipped"

	// Commit
	EventTurnCommitted EventType = "turn.committed"
	EventTurnAborted   EventType = "turn.aborted"

	// Session lifecycle
	EventSessionCreated EventType = "session.created"
	EventSessionDeleted EventType = "session.deleted"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceRouter       EventSource = "router"
	SourceResolver     EventSource = "resolver"
	SourceOrchestrator EventSource = "orchestrator"
	SourceIntegrator   EventSource = "integrator"
	SourceServer       EventSource = "server"
)
