package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t0 := time.UnixMilli(1_700_000_000_000)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Millisecond)
	}
}

func TestAppendCapsHistoryAndKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewInMemoryBackend(), Options{MaxTurns: 20, Now: fixedClock()})

	for i := 0; i < 25; i++ {
		if err := s.Append(ctx, "u1", RoleUser, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}
	h := s.Get(ctx, "u1")
	if len(h) != 20 {
		t.Fatalf("len(history) = %d, want 20", len(h))
	}
	if h[0].Content != "msg-5" || h[19].Content != "msg-24" {
		t.Fatalf("history = [%s .. %s], want [msg-5 .. msg-24]", h[0].Content, h[19].Content)
	}
	for i := 1; i < len(h); i++ {
		if h[i].Timestamp < h[i-1].Timestamp {
			t.Fatalf("timestamps not ascending at %d", i)
		}
	}
}

func TestAppendUserThenAssistant(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewInMemoryBackend(), Options{})
	_ = s.Append(ctx, "u1", RoleUser, "Ada sepatu?")
	_ = s.Append(ctx, "u1", RoleAssistant, "Ada, kak.")

	h := s.Get(ctx, "u1")
	if len(h) != 2 || h[0].Role != RoleUser || h[1].Role != RoleAssistant {
		t.Fatalf("history = %+v, want user then assistant", h)
	}
}

func TestGetMissingUserIsEmpty(t *testing.T) {
	s := NewStore(NewInMemoryBackend(), Options{})
	h := s.Get(context.Background(), "nobody")
	if h == nil || len(h) != 0 {
		t.Fatalf("Get(missing) = %#v, want empty history", h)
	}
}

type failingBackend struct{ InMemoryBackend }

func (*failingBackend) Load(context.Context, string) (History, bool, error) {
	return nil, false, errors.New("unavailable")
}

func TestGetSwallowsReadErrors(t *testing.T) {
	s := NewStore(&failingBackend{}, Options{})
	if h := s.Get(context.Background(), "u1"); len(h) != 0 {
		t.Fatalf("Get() = %+v, want empty", h)
	}
	if err := s.Append(context.Background(), "u1", RoleUser, "x"); err == nil {
		t.Fatalf("Append() error = nil, want error")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewInMemoryBackend(), Options{})
	_ = s.Append(ctx, "u1", RoleUser, "halo")

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if h := s.Get(ctx, "u1"); len(h) != 0 {
		t.Fatalf("Get() after delete = %+v, want empty", h)
	}
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewInMemoryBackend(), Options{})
	if users, err := s.ListUsers(ctx); err != nil || users == nil || len(users) != 0 {
		t.Fatalf("ListUsers() on empty store = %#v, %v", users, err)
	}
	_ = s.Append(ctx, "b", RoleUser, "x")
	_ = s.Append(ctx, "a", RoleUser, "y")

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 || users[0] != "a" || users[1] != "b" {
		t.Fatalf("ListUsers() = %v, want [a b]", users)
	}
}

func TestAppendRejectsEmptyUser(t *testing.T) {
	s := NewStore(NewInMemoryBackend(), Options{})
	if err := s.Append(context.Background(), " ", RoleUser, "x"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("err = %v, want ErrInvalidUser", err)
	}
}
