// Package session holds the authenticated staff member for a request.
//
// A Session is created only by Manager.Login and invalidated only by
// Manager.Logout. Everything else reads it from the request context through
// FromContext.
package session

import (
	"context"
	"time"
)

// User is the staff member as reported by the hospital backend.
type User struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

// Session is an authenticated, immutable staff session.
type Session struct {
	id            string
	name          string
	email         string
	role          Role
	department    string
	upstreamToken string
	expiresAt     time.Time
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Name() string          { return s.name }
func (s *Session) Email() string         { return s.email }
func (s *Session) Role() Role            { return s.role }
func (s *Session) Department() string    { return s.department }
func (s *Session) UpstreamToken() string { return s.upstreamToken }
func (s *Session) ExpiresAt() time.Time  { return s.expiresAt }

// Actor is the name recorded against changes made in this session.
func (s *Session) Actor() string {
	if s.name != "" {
		return s.name
	}
	return s.email
}

// HasRole reports whether the session holds one of roles.
func (s *Session) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if s.role == r {
			return true
		}
	}
	return false
}

// CanAccessDepartment reports whether the session may act on department.
// Department staff are limited to their own department.
func (s *Session) CanAccessDepartment(department string) bool {
	return s.role == RoleDepartment && Slug(s.department) == Slug(department)
}

// View is the JSON shape of a session.
type View struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Department string    `json:"department,omitempty"`
	Landing    string    `json:"landing"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (s *Session) View() View {
	return View{
		Name:       s.name,
		Email:      s.email,
		Role:       s.role,
		Department: s.department,
		Landing:    LandingPath(s.role, s.department),
		ExpiresAt:  s.expiresAt,
	}
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the session carried by ctx.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok && s != nil
}
