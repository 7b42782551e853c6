// Package sessions provides per-conversation state and its persistence.
// A session is checked out at the start of a turn, mutated in memory, and
// written back whole only after the turn's handler succeeded.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

// TTL is the fixed session expiry. Every successful write refreshes it.
const TTL = time.Hour

// Role identifies who produced a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// MessageType tags a message's payload with its recommendation kind.
type MessageType string

const (
	TypeDestinationRecommendation    MessageType = "destination_recommendation"
	TypeWeatherPackingRecommendation MessageType = "weather_packing_recommendation"
)

// Message is a single recommendation appended to a conversation. It is
// immutable once appended; Content is opaque to everything but the handler
// that produced it.
type Message struct {
	Role    Role            `json:"role"`
	Type    MessageType     `json:"type"`
	Content json.RawMessage `json:"content"`
}

// ResolvedFields holds the last field values that actually satisfied a
// turn. Never speculative: raw request input that was not used by a
// handler is never stored here.
type ResolvedFields struct {
	Preferences []string          `json:"preferences,omitempty"`
	Location    *travel.Location  `json:"location,omitempty"`
	Activities  []string          `json:"activities,omitempty"`
	DateRange   *travel.DateRange `json:"dateRange,omitempty"`
}

// Session is the durable per-conversation state.
type Session struct {
	ID             string         `json:"id"`
	ActiveTopic    string         `json:"activeTopic"`
	Messages       []Message      `json:"messages"`
	ResolvedFields ResolvedFields `json:"resolvedFields"`
}

// NewSession creates an empty session. With an empty id a fresh one is
// generated.
func NewSession(id string) *Session {
	if id == "" {
		id = GenerateID()
	}
	return &Session{ID: id, Messages: []Message{}}
}

// GenerateID returns a fresh conversation id.
func GenerateID() string {
	u := uuid.New().String()
	return "conv_" + strings.ReplaceAll(u, "-", "")[:12]
}

// Append adds a recommendation message to the conversation. Prior
// messages are never touched.
func (s *Session) Append(role Role, mt MessageType, content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("marshal message content: %w", err)
	}
	s.Messages = append(s.Messages, Message{Role: role, Type: mt, Content: raw})
	return nil
}

// UnavailableError means the store itself could not be reached. Distinct
// from a key simply not being there, which is a normal absent result.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("session store unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Store is the persistence contract for sessions. Get returns (nil, nil)
// when no session exists for the key. Save overwrites the whole session
// and refreshes the TTL. Delete reports how many entries were removed.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) (int64, error)
}
