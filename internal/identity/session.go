package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession indicates the session id is unknown or expired.
var ErrNoSession = errors.New("identity: no session")

type sessionPayload struct {
	UserID string `json:"user_id"`
}

// SessionStore reads sessions written by the authentication service. It
// never creates, extends or deletes them.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore constructs a read-only session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// UserID returns the user bound to sessionID.
func (s *SessionStore) UserID(ctx context.Context, sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", ErrNoSession
	}
	payload, err := s.client.Get(ctx, redisKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("identity: load session: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return "", fmt.Errorf("identity: decode session: %w", err)
	}
	if strings.TrimSpace(stored.UserID) == "" {
		return "", ErrNoSession
	}
	return stored.UserID, nil
}

func redisKey(id string) string {
	return "session:" + id
}
