// Package identity turns an incoming request into an access.Principal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/buildmart/buildmart/internal/access"
)

const profileLookupTimeout = 2 * time.Second

// ErrProfileNotFound indicates the user has no marketplace profile yet.
var ErrProfileNotFound = errors.New("identity: profile not found")

// Profile is the marketplace profile bound to a user account.
type Profile struct {
	ID             string
	UserID         string
	Role           string
	IsProfessional bool
	IsCompany      bool
}

// Sessions maps a session id to a user id.
type Sessions interface {
	UserID(ctx context.Context, sessionID string) (string, error)
}

// Profiles loads profiles by user id.
type Profiles interface {
	ProfileByUserID(ctx context.Context, userID string) (Profile, error)
}

// Resolver derives the principal for a request from its session.
type Resolver struct {
	sessions   Sessions
	profiles   Profiles
	cookieName string
	logger     *slog.Logger
	group      singleflight.Group
}

// NewResolver constructs a Resolver reading the session id from cookieName
// or a bearer token.
func NewResolver(sessions Sessions, profiles Profiles, cookieName string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if cookieName == "" {
		cookieName = "buildmart_session"
	}
	return &Resolver{sessions: sessions, profiles: profiles, cookieName: cookieName, logger: logger}
}

// Resolve returns the principal for r. Missing or expired sessions and users
// without a valid profile resolve to the anonymous principal. Only backend
// failures are returned as errors.
func (res *Resolver) Resolve(ctx context.Context, r *http.Request) (access.Principal, error) {
	sessionID := res.sessionID(r)
	if sessionID == "" {
		return access.Anonymous(), nil
	}
	userID, err := res.sessions.UserID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return access.Anonymous(), nil
		}
		return access.Principal{}, err
	}

	// The shared lookup outlives any single caller; each caller waits on its
	// own context.
	ch := res.group.DoChan(userID, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), profileLookupTimeout)
		defer cancel()
		return res.profiles.ProfileByUserID(lookupCtx, userID)
	})
	var result singleflight.Result
	select {
	case <-ctx.Done():
		return access.Principal{}, fmt.Errorf("identity: load profile: %w", ctx.Err())
	case result = <-ch:
	}
	v, err := result.Val, result.Err
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return access.Principal{UserID: userID}, nil
		}
		return access.Principal{}, fmt.Errorf("identity: load profile: %w", err)
	}
	profile := v.(Profile)

	role := access.ParseRole(profile.Role)
	if role == "" {
		res.logger.Warn("profile has unknown role", slog.String("profile_id", profile.ID), slog.String("role", profile.Role))
		return access.Principal{UserID: userID}, nil
	}
	return access.Principal{
		UserID:    userID,
		ProfileID: profile.ID,
		Role:      role,
		Flags: access.Flags{
			IsProfessional: profile.IsProfessional,
			IsCompany:      profile.IsCompany,
		},
	}, nil
}

func (res *Resolver) sessionID(r *http.Request) string {
	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(res.cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
