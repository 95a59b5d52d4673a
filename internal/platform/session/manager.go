package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

// ErrRoleNotPermitted is returned when the backend authenticates a user
// whose role has no screen in the gateway.
var ErrRoleNotPermitted = errors.New("role has no access to the patient flow screens")

// UpstreamLogin is the backend's answer to a successful login.
type UpstreamLogin struct {
	Token string
	User  User
}

// Authenticator verifies credentials against the hospital backend.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*UpstreamLogin, error)
}

// Claims is the payload of a gateway session token.
type Claims struct {
	jwt.RegisteredClaims
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Upstream   string `json:"upstream"`
}

// Config configures a Manager.
type Config struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string
}

// Manager issues, verifies and revokes session tokens.
type Manager struct {
	cfg   Config
	auth  Authenticator
	store RevocationStore
	now   func() time.Time
}

func NewManager(cfg Config, auth Authenticator, store RevocationStore) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "patientflow"
	}
	return &Manager{cfg: cfg, auth: auth, store: store, now: time.Now}
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token   string
	Session *Session
}

// Login authenticates against the backend and opens a session.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		ve := apperr.Validation("email and password are required")
		if email == "" {
			ve.Add("email", "required")
		}
		if password == "" {
			ve.Add("password", "required")
		}
		return nil, ve
	}

	up, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if up.Token == "" {
		return nil, &apperr.BackendError{Op: "login", Err: errors.New("backend returned no token")}
	}
	role, err := ParseRole(up.User.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRoleNotPermitted, err)
	}

	dept := strings.TrimSpace(up.User.Department)
	if role == RoleDepartment && dept == "" {
		dept = DefaultDepartment
	}
	userEmail := up.User.Email
	if userEmail == "" {
		userEmail = email
	}

	now := m.now()
	s := &Session{
		id:            uuid.NewString(),
		name:          up.User.Name,
		email:         userEmail,
		role:          role,
		department:    dept,
		upstreamToken: up.Token,
		expiresAt:     now.Add(m.cfg.TTL).Truncate(time.Second),
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.id,
			Subject:   s.email,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.expiresAt),
		},
		Name:       s.name,
		Role:       role.String(),
		Department: s.department,
		Upstream:   s.upstreamToken,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &LoginResult{Token: token, Session: s}, nil
}

// Logout revokes the session until its natural expiry.
func (m *Manager) Logout(ctx context.Context, s *Session) error {
	if s == nil {
		return apperr.Unauthorized("no session")
	}
	if err := m.store.Revoke(ctx, s.id, s.expiresAt); err != nil {
		return fmt.Errorf("revoke session %s: %w", s.id, err)
	}
	return nil
}

// Verify parses a bearer token and returns its session.
func (m *Manager) Verify(ctx context.Context, tokenStr string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return m.cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("invalid token")
	}

	revoked, err := m.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, apperr.Unauthorized("session was closed")
	}

	role, err := ParseRole(claims.Role)
	if err != nil {
		return nil, apperr.Unauthorized("invalid role")
	}
	return &Session{
		id:            claims.ID,
		name:          claims.Name,
		email:         claims.Subject,
		role:          role,
		department:    claims.Department,
		upstreamToken: claims.Upstream,
		expiresAt:     claims.ExpiresAt.Time,
	}, nil
}
