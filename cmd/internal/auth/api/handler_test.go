package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"biblio/cmd/identity"
	"biblio/cmd/internal/auth/guard"
	"biblio/cmd/internal/auth/revocation"
	"biblio/cmd/internal/auth/session"
	"biblio/cmd/security/password"
)

// memIdentityStore is an in-memory identity.Store for end-to-end tests.
type memIdentityStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]identity.User
	accounts map[string]identity.Account // keyed by user ID
	byEmail  map[string]string           // email_norm -> user ID
}

func newMemIdentityStore() *memIdentityStore {
	return &memIdentityStore{
		users:    make(map[string]identity.User),
		accounts: make(map[string]identity.Account),
		byEmail:  make(map[string]string),
	}
}

func (m *memIdentityStore) CreateUser(_ context.Context, in identity.CreateUserInput) (identity.CreateUserResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	emailNorm := identity.NormalizeEmail(in.Email)
	if _, exists := m.byEmail[emailNorm]; exists {
		return identity.CreateUserResult{}, identity.ConflictError{Op: "mem.CreateUser", Field: "email"}
	}

	role := in.Role
	if role == "" {
		role = identity.RoleMember
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	m.seq++
	id := fmt.Sprintf("user-%d", m.seq)

	u := identity.User{
		ID:          id,
		DisplayName: in.DisplayName,
		Email:       in.Email,
		EmailNorm:   emailNorm,
		Role:        role,
		Status:      identity.StatusActive,
		CreatedAt:   now,
	}
	m.users[id] = u
	m.accounts[id] = identity.Account{
		ID:           "acct-" + id,
		UserID:       id,
		PasswordHash: in.PasswordHash,
		Status:       identity.StatusActive,
		CreatedAt:    now,
	}
	m.byEmail[emailNorm] = id

	return identity.CreateUserResult{User: u}, nil
}

func (m *memIdentityStore) FindByEmail(_ context.Context, email string) (identity.User, identity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[identity.NormalizeEmail(email)]
	if !ok {
		return identity.User{}, identity.Account{}, identity.OpError{Op: "mem.FindByEmail", Kind: identity.ErrNotFound}
	}
	u := m.users[id]
	a := m.accounts[id]
	u.Status = a.Status
	return u, a, nil
}

func (m *memIdentityStore) FindUserByID(_ context.Context, id string) (identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return identity.User{}, identity.OpError{Op: "mem.FindUserByID", Kind: identity.ErrNotFound}
	}
	if a, ok := m.accounts[id]; ok {
		u.Status = a.Status
	}
	return u, nil
}

func (m *memIdentityStore) setRole(userID string, role identity.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[userID]
	u.Role = role
	m.users[userID] = u
}

func (m *memIdentityStore) setStatus(userID string, status identity.AccountStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.accounts[userID]
	a.Status = status
	m.accounts[userID] = a
}

// memSessionStore is an in-memory session.Store with the same
// compare-and-swap contract as the Postgres implementation.
type memSessionStore struct {
	mu   sync.Mutex
	rows map[string]session.Row
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{rows: make(map[string]session.Row)}
}

func (m *memSessionStore) Create(_ context.Context, now time.Time, sessionID, userID string, dev session.DeviceContext, refreshHash, accessTokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := now
	m.rows[sessionID] = session.Row{
		ID:               sessionID,
		UserID:           userID,
		RefreshTokenHash: refreshHash,
		AccessTokenID:    accessTokenID,
		Platform:         dev.Platform,
		Label:            dev.Label,
		UserAgent:        dev.UserAgent,
		IP:               dev.IP,
		CreatedAt:        now,
		ExpiresAt:        expiresAt,
		LastUsedAt:       &last,
	}
	return nil
}

func (m *memSessionStore) GetByID(_ context.Context, sessionID string) (session.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID]
	if !ok {
		return session.Row{}, session.ErrSessionNotFound
	}
	return row, nil
}

func (m *memSessionStore) UpdateRefreshHash(_ context.Context, now time.Time, sessionID, prevHash, newHash, newAccessTokenID string, newExpiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID]
	if !ok || row.RefreshTokenHash != prevHash || row.Revoked() || row.Expired(now) {
		return false, nil
	}
	row.RefreshTokenHash = newHash
	row.AccessTokenID = newAccessTokenID
	row.ExpiresAt = newExpiresAt
	last := now
	row.LastUsedAt = &last
	m.rows[sessionID] = row
	return true, nil
}

func (m *memSessionStore) MarkRevoked(_ context.Context, now time.Time, sessionID, reason string) (session.Row, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID]
	if !ok {
		return session.Row{}, false, session.ErrSessionNotFound
	}
	if row.Revoked() {
		return row, false, nil
	}
	at := now
	row.RevokedAt = &at
	row.RevocationReason = &reason
	m.rows[sessionID] = row
	return row, true, nil
}

func (m *memSessionStore) ListActiveForUser(_ context.Context, now time.Time, userID string) ([]session.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []session.Row
	for _, row := range m.rows {
		if row.UserID == userID && !row.Revoked() && !row.Expired(now) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memSessionStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if row.ExpiresAt.Before(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessionStore) Touch(_ context.Context, now time.Time, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[sessionID]
	if !ok {
		return session.ErrSessionNotFound
	}
	last := now
	row.LastUsedAt = &last
	m.rows[sessionID] = row
	return nil
}

type testServer struct {
	srv       *httptest.Server
	directory *memIdentityStore
	store     *memSessionStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessCfg := session.DefaultConfig()
	sessCfg.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	codec, err := session.NewTokenCodec(sessCfg)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}

	directory := newMemIdentityStore()
	deny := revocation.NewMemoryStore()
	t.Cleanup(func() { _ = deny.Close() })

	store := newMemSessionStore()
	sessions := session.NewService(sessCfg, codec, store, deny, directory)

	pwCfg := password.DefaultConfig()
	// Lighter work factors keep the end-to-end suite quick.
	pwCfg.Params.MemoryKiB = 16 * 1024
	pwCfg.Params.Iterations = 1

	h, err := NewHandler(logger, LoadConfigFromEnv(), nil, directory, sessions, pwCfg)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	g := guard.New(sessions, directory, logger)

	mux := http.NewServeMux()
	h.Register(mux, g)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, directory: directory, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (ts *testServer) signup(t *testing.T, email, pw string) {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/v1/auth/signup", "", signupRequest{Email: email, Password: pw})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: status = %d, body = %s", resp.StatusCode, body)
	}
}

func (ts *testServer) signin(t *testing.T, email, pw string) signinResponse {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/v1/auth/signin", "", signinRequest{Email: email, Password: pw, Platform: "web"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signin: status = %d, body = %s", resp.StatusCode, body)
	}
	var out signinResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode signin response: %v", err)
	}
	return out
}

func TestSignupSigninSignoutFlow(t *testing.T) {
	ts := newTestServer(t)

	ts.signup(t, "reader@example.com", "correct horse battery")

	// Duplicate email is a conflict.
	resp, body := ts.do(t, http.MethodPost, "/v1/auth/signup", "", signupRequest{Email: "Reader@Example.com", Password: "another password"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: status = %d, body = %s", resp.StatusCode, body)
	}

	// Wrong password is a generic 401.
	resp, body = ts.do(t, http.MethodPost, "/v1/auth/signin", "", signinRequest{Email: "reader@example.com", Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d, body = %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "invalid_credentials") {
		t.Fatalf("bad password body = %s", body)
	}

	signedIn := ts.signin(t, "reader@example.com", "correct horse battery")
	access := signedIn.Session.AccessToken

	// The access token opens protected routes.
	resp, body = ts.do(t, http.MethodGet, "/v1/me", access, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status = %d, body = %s", resp.StatusCode, body)
	}
	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.User.Email != "reader@example.com" || me.User.Role != "member" {
		t.Fatalf("me = %+v", me.User)
	}

	// Sign-out, then the same token is dead.
	resp, _ = ts.do(t, http.MethodPost, "/v1/auth/signout", access, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("signout: status = %d", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodGet, "/v1/me", access, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after signout: status = %d, want 401", resp.StatusCode)
	}
}

func TestSigninSuspendedAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "reader@example.com", "correct horse battery")
	ts.directory.setStatus("user-1", identity.StatusSuspended)

	resp, body := ts.do(t, http.MethodPost, "/v1/auth/signin", "", signinRequest{Email: "reader@example.com", Password: "correct horse battery"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("suspended signin: status = %d, body = %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "account_suspended") {
		t.Fatalf("suspended signin body = %s", body)
	}
}

func TestMeMarksSessionRecentlyUsed(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "reader@example.com", "correct horse battery")
	signedIn := ts.signin(t, "reader@example.com", "correct horse battery")

	before, err := ts.store.GetByID(context.Background(), signedIn.Session.SessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	resp, body := ts.do(t, http.MethodGet, "/v1/me", signedIn.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: status = %d, body = %s", resp.StatusCode, body)
	}

	after, err := ts.store.GetByID(context.Background(), signedIn.Session.SessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if before.LastUsedAt == nil || after.LastUsedAt == nil {
		t.Fatalf("last_used_at missing: before=%v after=%v", before.LastUsedAt, after.LastUsedAt)
	}
	if !after.LastUsedAt.After(*before.LastUsedAt) {
		t.Fatalf("last_used_at did not advance: before=%v after=%v", before.LastUsedAt, after.LastUsedAt)
	}
}

func TestRefreshRotationAndReuse(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "reader@example.com", "correct horse battery")
	signedIn := ts.signin(t, "reader@example.com", "correct horse battery")

	resp, body := ts.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{RefreshToken: signedIn.Session.RefreshToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh: status = %d, body = %s", resp.StatusCode, body)
	}
	var rotated refreshResponse
	if err := json.Unmarshal(body, &rotated); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if rotated.Session.RefreshToken == signedIn.Session.RefreshToken {
		t.Fatalf("refresh must rotate the token")
	}

	// Replaying the old token is rejected with the uniform 401 body.
	resp, reuseBody := ts.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{RefreshToken: signedIn.Session.RefreshToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("reuse: status = %d", resp.StatusCode)
	}

	// And afterwards even the rotated token is dead: reuse kills the session.
	resp, revokedBody := ts.do(t, http.MethodPost, "/v1/auth/refresh", "", refreshRequest{RefreshToken: rotated.Session.RefreshToken})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-reuse refresh: status = %d", resp.StatusCode)
	}

	// Uniform body: reuse and plain rejection are indistinguishable.
	if string(reuseBody) != string(revokedBody) {
		t.Fatalf("401 bodies differ: %s vs %s", reuseBody, revokedBody)
	}

	// The winner's access token was denylisted too.
	resp, _ = ts.do(t, http.MethodGet, "/v1/me", rotated.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("access after reuse incident: status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminRouteAndRoleDowngrade(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "admin@example.com", "correct horse battery")
	ts.signup(t, "reader@example.com", "correct horse battery")
	ts.directory.setRole("user-1", identity.RoleAdmin)

	admin := ts.signin(t, "admin@example.com", "correct horse battery")
	reader := ts.signin(t, "reader@example.com", "correct horse battery")

	// Admin can inspect another user's sessions.
	resp, body := ts.do(t, http.MethodGet, "/v1/admin/users/user-2/sessions", admin.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list: status = %d, body = %s", resp.StatusCode, body)
	}
	var listed sessionListResponse
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Sessions) != 1 {
		t.Fatalf("admin list: %d sessions, want 1", len(listed.Sessions))
	}

	// A member is forbidden outright.
	resp, _ = ts.do(t, http.MethodGet, "/v1/admin/users/user-1/sessions", reader.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member on admin route: status = %d, want 403", resp.StatusCode)
	}

	// Demotion takes effect on the very next request, mid-session.
	ts.directory.setRole("user-1", identity.RoleMember)
	resp, _ = ts.do(t, http.MethodGet, "/v1/admin/users/user-2/sessions", admin.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("demoted admin: status = %d, want 403", resp.StatusCode)
	}
}

func TestSessionListAndForeignDelete(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice@example.com", "correct horse battery")
	ts.signup(t, "bob@example.com", "correct horse battery")

	alice := ts.signin(t, "alice@example.com", "correct horse battery")
	bob := ts.signin(t, "bob@example.com", "correct horse battery")

	resp, body := ts.do(t, http.MethodGet, "/v1/sessions", alice.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d, body = %s", resp.StatusCode, body)
	}
	var listed sessionListResponse
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Sessions) != 1 || !listed.Sessions[0].Current {
		t.Fatalf("list = %+v", listed.Sessions)
	}

	// Bob cannot revoke Alice's session; unknown and foreign IDs look alike.
	resp, _ = ts.do(t, http.MethodDelete, "/v1/sessions/"+alice.Session.SessionID, bob.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign delete: status = %d, want 404", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodDelete, "/v1/sessions/no-such-id", bob.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown delete: status = %d, want 404", resp.StatusCode)
	}

	// Alice can revoke her own.
	resp, _ = ts.do(t, http.MethodDelete, "/v1/sessions/"+alice.Session.SessionID, alice.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("own delete: status = %d, want 204", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodGet, "/v1/me", alice.Session.AccessToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after self-revocation: status = %d, want 401", resp.StatusCode)
	}
}
