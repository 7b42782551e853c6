package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s := NewSession("conv_test")
	s.ActiveTopic = "destinations"
	s.ResolvedFields.Preferences = []string{"beach", "culture"}
	if err := s.Append(RoleSystem, TypeDestinationRecommendation, travel.EmptyTravelRecommendation()); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "conv_test")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for a saved session")
	}
	if got.ActiveTopic != "destinations" {
		t.Errorf("ActiveTopic = %q, want %q", got.ActiveTopic, "destinations")
	}
	if len(got.Messages) != 1 || got.Messages[0].Type != TypeDestinationRecommendation {
		t.Errorf("Messages = %+v, want one destination recommendation", got.Messages)
	}
}

func TestMemoryStoreAbsentIsNotAnError(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Get(context.Background(), "conv_missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for a missing key", got)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	if err := store.Save(ctx, NewSession("conv_ttl")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Just before expiry the session is still there
	now = now.Add(TTL - time.Second)
	got, err := store.Get(ctx, "conv_ttl")
	if err != nil || got == nil {
		t.Fatalf("Get before expiry = (%v, %v), want session", got, err)
	}

	// Past expiry it is gone
	now = now.Add(2 * time.Second)
	got, err = store.Get(ctx, "conv_ttl")
	if err != nil {
		t.Fatalf("Get after expiry: %v", err)
	}
	if got != nil {
		t.Error("session survived past its TTL")
	}
}

func TestMemoryStoreSaveRefreshesExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	s := NewSession("conv_refresh")
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	now = now.Add(TTL - time.Minute)
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	// Past the original expiry but within the refreshed one
	now = now.Add(30 * time.Minute)
	got, err := store.Get(ctx, "conv_refresh")
	if err != nil || got == nil {
		t.Fatalf("Get = (%v, %v), want session after refresh", got, err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, NewSession("conv_del")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := store.Delete(ctx, "conv_del")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}

	n, err = store.Delete(ctx, "conv_del")
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if n != 0 {
		t.Errorf("removed = %d, want 0 for a missing key", n)
	}
}

func TestMemoryStoreDoesNotAliasCaller(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s := NewSession("conv_alias")
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's copy must not leak into the stored one
	s.ActiveTopic = "weather"
	s.Messages = append(s.Messages, Message{Role: RoleSystem, Type: TypeWeatherPackingRecommendation})

	got, err := store.Get(ctx, "conv_alias")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ActiveTopic != "" || len(got.Messages) != 0 {
		t.Errorf("stored session changed without Save: %+v", got)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("GenerateID returned duplicates")
	}
	if len(a) != len("conv_")+12 {
		t.Errorf("id %q has unexpected length", a)
	}
}
