package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/platform/apperr"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

type fakeAuth struct {
	login *UpstreamLogin
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(_ context.Context, email, password string) (*UpstreamLogin, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

func newTestManager(t *testing.T, user User) (*Manager, *MemoryRevocationStore, *fakeAuth) {
	t.Helper()
	store := NewMemoryRevocationStore(time.Hour)
	t.Cleanup(func() { store.Close() })
	auth := &fakeAuth{login: &UpstreamLogin{Token: "upstream-token", User: user}}
	m := NewManager(Config{SigningKey: testSigningKey, TTL: time.Hour}, auth, store)
	return m, store, auth
}

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(strings.ToUpper(r.String()))
		if err != nil || got != r {
			t.Errorf("ParseRole(%q) = %v, %v", r.String(), got, err)
		}
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Error("expected admin to be rejected")
	}
}

func TestLandingPath(t *testing.T) {
	tests := []struct {
		role Role
		dept string
		want string
	}{
		{RoleReception, "", "/reception"},
		{RoleConsultation, "", "/consultation"},
		{RoleLaboratory, "", "/laboratory"},
		{RolePayment, "", "/payment"},
		{RolePharmacy, "", "/pharmacy"},
		{RoleDepartment, "Internal  Medicine", "/department/internal-medicine"},
		{RoleDepartment, "", "/department/general"},
		{Role(99), "", "/"},
	}
	for _, tt := range tests {
		if got := LandingPath(tt.role, tt.dept); got != tt.want {
			t.Errorf("LandingPath(%v, %q) = %q, want %q", tt.role, tt.dept, got, tt.want)
		}
	}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	m, _, _ := newTestManager(t, User{Name: "Dr Achieng", Email: "achieng@hosp.test", Role: "department", Department: "Internal Medicine"})
	ctx := context.Background()

	res, err := m.Login(ctx, " achieng@hosp.test ", "secret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	s, err := m.Verify(ctx, res.Token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if s.Role() != RoleDepartment || s.Department() != "Internal Medicine" {
		t.Errorf("unexpected session %+v", s.View())
	}
	if s.UpstreamToken() != "upstream-token" {
		t.Errorf("UpstreamToken() = %q", s.UpstreamToken())
	}
	if s.ID() != res.Session.ID() || !s.ExpiresAt().Equal(res.Session.ExpiresAt()) {
		t.Error("verified session differs from issued session")
	}
	if s.View().Landing != "/department/internal-medicine" {
		t.Errorf("landing = %q", s.View().Landing)
	}
}

func TestLogin_DepartmentDefaultsToGeneral(t *testing.T) {
	m, _, _ := newTestManager(t, User{Name: "Nurse", Role: "department"})
	res, err := m.Login(context.Background(), "nurse@hosp.test", "pw")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if res.Session.Department() != "general" {
		t.Errorf("department = %q", res.Session.Department())
	}
	if res.Session.Email() != "nurse@hosp.test" {
		t.Errorf("email = %q", res.Session.Email())
	}
}

func TestLogin_RequiresCredentials(t *testing.T) {
	m, _, auth := newTestManager(t, User{Role: "reception"})
	_, err := m.Login(context.Background(), "", "")
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if auth.calls != 0 {
		t.Error("backend must not be called without credentials")
	}
}

func TestLogin_UnknownRole(t *testing.T) {
	m, _, _ := newTestManager(t, User{Role: "janitor"})
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	if !errors.Is(err, ErrRoleNotPermitted) {
		t.Errorf("expected ErrRoleNotPermitted, got %v", err)
	}
}

func TestLogin_BackendRejects(t *testing.T) {
	m, _, auth := newTestManager(t, User{Role: "reception"})
	auth.err = apperr.Unauthorized("bad credentials")
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestVerify_Rejections(t *testing.T) {
	m, _, _ := newTestManager(t, User{Role: "pharmacy"})
	ctx := context.Background()

	otherStore := NewMemoryRevocationStore(time.Hour)
	defer otherStore.Close()
	other := NewManager(Config{SigningKey: []byte("another-key"), TTL: time.Hour}, &fakeAuth{login: &UpstreamLogin{Token: "t", User: User{Role: "pharmacy"}}}, otherStore)
	foreign, err := other.Login(ctx, "x@y.z", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "old",
			Issuer:    "patientflow",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: "pharmacy",
	})
	expiredStr, _ := expired.SignedString(testSigningKey)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "forever", Issuer: "patientflow"},
		Role:             "pharmacy",
	})
	noExpStr, _ := noExp.SignedString(testSigningKey)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "r",
			Issuer:    "patientflow",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	})
	badRoleStr, _ := badRole.SignedString(testSigningKey)

	for name, tok := range map[string]string{
		"garbage":       "not-a-token",
		"foreign key":   foreign.Token,
		"expired":       expiredStr,
		"no expiration": noExpStr,
		"unknown role":  badRoleStr,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Verify(ctx, tok); apperr.KindOf(err) != apperr.KindUnauthorized {
				t.Errorf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	m, store, _ := newTestManager(t, User{Role: "laboratory"})
	ctx := context.Background()
	res, _ := m.Login(ctx, "lab@hosp.test", "pw")

	if err := m.Logout(ctx, res.Session); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 revocation, got %d", store.Count())
	}
	if _, err := m.Verify(ctx, res.Token); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected revoked token to be rejected, got %v", err)
	}
	if err := m.Logout(ctx, nil); err == nil {
		t.Error("expected error for nil session")
	}
}

func TestMemoryRevocationStore_Cleanup(t *testing.T) {
	s := NewMemoryRevocationStore(time.Hour)
	defer s.Close()
	ctx := context.Background()
	now := time.Now()

	s.Revoke(ctx, "expired", now.Add(-time.Minute))
	s.Revoke(ctx, "live", now.Add(time.Hour))
	s.cleanup()

	if ok, _ := s.IsRevoked(ctx, "expired"); ok {
		t.Error("expected expired entry to be cleaned up")
	}
	if ok, _ := s.IsRevoked(ctx, "live"); !ok {
		t.Error("expected live entry to remain")
	}
	s.Close()
	s.Close()
}

func TestRedisRevocationStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisRevocationStore(client, "")
	defer store.Close()
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if !mr.Exists(defaultRevocationPrefix + "jti-1") {
		t.Error("expected key in redis")
	}
	if ok, err := store.IsRevoked(ctx, "jti-1"); err != nil || !ok {
		t.Errorf("IsRevoked() = %v, %v", ok, err)
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := store.IsRevoked(ctx, "jti-1"); ok {
		t.Error("expected revocation to expire with the token")
	}

	if err := store.Revoke(ctx, "jti-2", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if ok, _ := store.IsRevoked(ctx, "jti-2"); ok {
		t.Error("already expired token should not be stored")
	}
}

func TestRedisRevocationStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisRevocationStore(client, "pf:")
	mr.Close()

	if _, err := store.IsRevoked(context.Background(), "x"); err == nil {
		t.Error("expected error when redis is down")
	}
}

func serve(t *testing.T, mw []echo.MiddlewareFunc, header string, path, param string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if path != "" {
		c.SetParamNames(path)
		c.SetParamValues(param)
	}
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return rec, h(c)
}

func assertStatus(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d", code, he.Code)
	}
}

func TestMiddleware_HeaderChecks(t *testing.T) {
	m, _, _ := newTestManager(t, User{Role: "reception"})
	for _, header := range []string{"", "Token abc", "Bearer", "Bearer   ", "Bearer nonsense"} {
		_, err := serve(t, []echo.MiddlewareFunc{Middleware(m)}, header, "", "")
		assertStatus(t, err, http.StatusUnauthorized)
	}
}

func TestMiddleware_RoleGuard(t *testing.T) {
	m, _, _ := newTestManager(t, User{Role: "reception"})
	res, _ := m.Login(context.Background(), "desk@hosp.test", "pw")
	bearer := "Bearer " + res.Token

	rec, err := serve(t, []echo.MiddlewareFunc{Middleware(m), RequireRole(RoleReception, RoleConsultation)}, bearer, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	_, err = serve(t, []echo.MiddlewareFunc{Middleware(m), RequireRole(RolePharmacy)}, bearer, "", "")
	assertStatus(t, err, http.StatusForbidden)

	_, err = serve(t, []echo.MiddlewareFunc{RequireRole(RolePharmacy)}, "", "", "")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestRequireDepartment(t *testing.T) {
	m, _, _ := newTestManager(t, User{Role: "department", Department: "Internal Medicine"})
	res, _ := m.Login(context.Background(), "doc@hosp.test", "pw")
	bearer := "Bearer " + res.Token
	chain := []echo.MiddlewareFunc{Middleware(m), RequireDepartment("name")}

	if _, err := serve(t, chain, bearer, "name", "internal-medicine"); err != nil {
		t.Errorf("expected own department by slug, got %v", err)
	}
	if _, err := serve(t, chain, bearer, "name", "Internal Medicine"); err != nil {
		t.Errorf("expected own department by name, got %v", err)
	}
	_, err := serve(t, chain, bearer, "name", "surgery")
	assertStatus(t, err, http.StatusForbidden)
}

func TestHandler_LoginAndLogout(t *testing.T) {
	m, _, _ := newTestManager(t, User{Name: "Pharm", Role: "pharmacy"})
	h := NewHandler(m, zerolog.Nop())
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"ph@hosp.test","password":"pw"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"landing":"/pharmacy"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	s, _ := m.Verify(context.Background(), extractToken(t, rec.Body.String()))
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithSession(req.Context(), s))
	rec = httptest.NewRecorder()
	if err := h.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_LoginFailures(t *testing.T) {
	m, _, auth := newTestManager(t, User{Role: "janitor"})
	h := NewHandler(m, zerolog.Nop())
	e := echo.New()

	post := func() error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"x@y.z","password":"pw"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return h.Login(e.NewContext(req, httptest.NewRecorder()))
	}

	assertStatus(t, post(), http.StatusForbidden)
	auth.err = apperr.Unauthorized("bad password")
	assertStatus(t, post(), http.StatusUnauthorized)
}

func extractToken(t *testing.T, body string) string {
	t.Helper()
	const key = `"token":"`
	i := strings.Index(body, key)
	if i < 0 {
		t.Fatalf("no token in %s", body)
	}
	rest := body[i+len(key):]
	return rest[:strings.Index(rest, `"`)]
}
