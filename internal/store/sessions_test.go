package store

import (
	"testing"
	"time"
)

func newSession(id, routineID string) *Session {
	start := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	return &Session{
		ID:           id,
		RoutineID:    routineID,
		UseWeights:   true,
		Score:        830,
		MaxScore:     1200,
		Frames:       12,
		Matched:      11,
		MeanDistance: 0.31,
		StartedAt:    start,
		EndedAt:      start.Add(4 * time.Second),
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	if err := s.Routines().Create(&Routine{ID: "r1", Name: "salute"}); err != nil {
		t.Fatalf("failed to create routine: %v", err)
	}

	want := newSession("s1", "r1")
	if err := s.Sessions().Create(want); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	got, err := s.Sessions().GetByID("s1")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.Score != want.Score || got.MaxScore != want.MaxScore || got.Matched != want.Matched {
		t.Errorf("score mismatch: got %+v, want %+v", got, want)
	}
	if !got.UseWeights {
		t.Error("expected UseWeights to round trip")
	}
	if !got.EndedAt.Equal(want.EndedAt) {
		t.Errorf("expected EndedAt %v, got %v", want.EndedAt, got.EndedAt)
	}

	if _, err := s.Sessions().GetByID("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestSessionRepository_RequiresRoutine(t *testing.T) {
	s := newTestStore(t)
	if err := s.Sessions().Create(newSession("s1", "missing")); err == nil {
		t.Error("session for a missing routine should violate the foreign key")
	}
}

func TestSessionRepository_ListByRoutine(t *testing.T) {
	s := newTestStore(t)
	for _, rt := range []*Routine{{ID: "r1", Name: "a"}, {ID: "r2", Name: "b"}} {
		if err := s.Routines().Create(rt); err != nil {
			t.Fatalf("failed to create routine: %v", err)
		}
	}

	first := newSession("s1", "r1")
	second := newSession("s2", "r1")
	second.EndedAt = first.EndedAt.Add(time.Minute)
	other := newSession("s3", "r2")

	for _, sess := range []*Session{first, second, other} {
		if err := s.Sessions().Create(sess); err != nil {
			t.Fatalf("failed to create session %q: %v", sess.ID, err)
		}
	}

	list, err := s.Sessions().ListByRoutine("r1")
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	if list[0].ID != "s2" {
		t.Errorf("expected newest session first, got %q", list[0].ID)
	}

	empty, err := s.Sessions().ListByRoutine("none")
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no sessions, got %d", len(empty))
	}
}
