package history

import (
	"context"
	"errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one conversational message. Timestamp is epoch milliseconds.
type Turn struct {
	Role      Role   `json:"role" firestore:"role"`
	Content   string `json:"content" firestore:"content"`
	Timestamp int64  `json:"timestamp" firestore:"timestamp"`
}

// History is a user's turns, oldest first.
type History []Turn

// ErrInvalidUser is returned for an empty user id.
var ErrInvalidUser = errors.New("user id is required")

// Backend persists one history document per user. Load reports found=false
// for a user with no document. Save replaces the whole document.
type Backend interface {
	Load(ctx context.Context, userID string) (h History, found bool, err error)
	Save(ctx context.Context, userID string, h History) error
	Delete(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]string, error)
	Close() error
}
