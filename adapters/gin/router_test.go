package authgin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PaulFidika/nekokit/authtest"
	"github.com/PaulFidika/nekokit/billing"
	"github.com/PaulFidika/nekokit/core"
	"github.com/PaulFidika/nekokit/entitlements"
	"github.com/PaulFidika/nekokit/identity"
	memorylimiter "github.com/PaulFidika/nekokit/ratelimit/memory"
	"github.com/PaulFidika/nekokit/seeding"
	"github.com/PaulFidika/nekokit/subscriptions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*identity.User
	admins map[uuid.UUID]bool
}

func (m *memUsers) HasRole(_ context.Context, id uuid.UUID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return role == core.AdminRole && m.admins[id], nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *memUsers) DeleteOwnedRows(context.Context, string, uuid.UUID) (int64, error) { return 0, nil }
func (m *memUsers) PurgeTx(context.Context, uuid.UUID) (map[string]int64, error)     { return nil, nil }
func (m *memUsers) CountOrphans(context.Context, string) (int64, error)              { return 0, nil }
func (m *memUsers) DeleteOrphans(context.Context, string) (int64, error)             { return 0, nil }

type memSubs struct {
	mu   sync.Mutex
	recs map[uuid.UUID]subscriptions.Record
}

func (m *memSubs) Upsert(_ context.Context, r subscriptions.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[r.UserID] = r
	return nil
}

func (m *memSubs) Get(_ context.Context, id uuid.UUID) (*subscriptions.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type env struct {
	router   *gin.Engine
	issuer   *authtest.Issuer
	users    *memUsers
	subs     *memSubs
	provider *billing.StaticProvider
}

func newEnv(t *testing.T, limiter *memorylimiter.Limiter) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	is := authtest.NewIssuer()
	t.Cleanup(is.Close)
	v, err := is.Verifier(context.Background())
	require.NoError(t, err)

	e := &env{
		issuer:   is,
		users:    &memUsers{users: map[uuid.UUID]*identity.User{}, admins: map[uuid.UUID]bool{}},
		subs:     &memSubs{recs: map[uuid.UUID]subscriptions.Record{}},
		provider: billing.NewStaticProvider(),
	}
	svc := core.NewService(core.Options{}, v, e.users, e.subs, e.provider, nil)
	d := Deps{Service: svc}
	if limiter != nil {
		d.Limiter = limiter
	}
	e.router = NewRouter(d)
	return e
}

func (e *env) addUser(email string) *identity.User {
	u := &identity.User{ID: uuid.New(), Email: email, EmailVerified: true}
	e.users.mu.Lock()
	e.users.users[u.ID] = u
	e.users.mu.Unlock()
	return u
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCheckSubscription_PaidCustomer(t *testing.T) {
	e := newEnv(t, nil)
	u := e.addUser("ada@example.com")
	e.provider.AddCustomer("cus_1", u.Email)
	end := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	e.provider.SetActiveSubscription(billing.Subscription{
		ID: "sub_1", CustomerID: "cus_1", ProductID: "prod_TjrJLggG2PAity",
		CurrentPeriodStart: end.Add(-30 * 24 * time.Hour), CurrentPeriodEnd: end,
	})

	w := e.do(http.MethodPost, "/functions/v1/check-subscription", e.issuer.Token(u.ID.String(), u.Email), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var st entitlements.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Subscribed)
	assert.Equal(t, entitlements.TierBuild, st.Tier)
	require.NotNil(t, st.SubscriptionEnd)
	assert.True(t, end.Equal(*st.SubscriptionEnd))

	rec, _ := e.subs.Get(context.Background(), u.ID)
	require.NotNil(t, rec)
	assert.Equal(t, entitlements.TierBuild, rec.Tier)
}

func TestCheckSubscription_NoCustomerIsFree(t *testing.T) {
	e := newEnv(t, nil)
	u := e.addUser("free@example.com")

	w := e.do(http.MethodPost, "/functions/v1/check-subscription", e.issuer.Token(u.ID.String(), u.Email), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["subscribed"])
	assert.Equal(t, "free", body["tier"])
	assert.Contains(t, body, "subscription_end")
	assert.Nil(t, body["subscription_end"])
}

func TestCheckSubscription_Unauthorized(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodPost, "/functions/v1/check-subscription", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "No authorization header provided", decode(t, w)["error"])

	ghost := uuid.NewString()
	w = e.do(http.MethodPost, "/functions/v1/check-subscription", e.issuer.Token(ghost, "ghost@example.com"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/functions/v1/check-subscription", e.issuer.ExpiredToken(ghost, "ghost@example.com"), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckSubscription_ProviderFailure(t *testing.T) {
	e := newEnv(t, nil)
	u := e.addUser("err@example.com")
	e.provider.Err = errors.New("dial tcp api.stripe.com: connection refused")

	w := e.do(http.MethodPost, "/functions/v1/check-subscription", e.issuer.Token(u.ID.String(), u.Email), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	msg, _ := decode(t, w)["error"].(string)
	assert.Contains(t, msg, "customer lookup failed")
	assert.Contains(t, msg, "connection refused")
}

func TestCheckSubscription_RateLimited(t *testing.T) {
	lim := memorylimiter.New(map[string]memorylimiter.Limit{"default": {Limit: 1, Window: time.Minute}})
	e := newEnv(t, lim)
	u := e.addUser("rl@example.com")
	tok := e.issuer.Token(u.ID.String(), u.Email)

	assert.Equal(t, http.StatusOK, e.do(http.MethodPost, "/functions/v1/check-subscription", tok, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, e.do(http.MethodPost, "/functions/v1/check-subscription", tok, nil).Code)
}

func TestDeleteAccount(t *testing.T) {
	e := newEnv(t, nil)
	u := e.addUser("Bob@example.com")
	tok := e.issuer.Token(u.ID.String(), u.Email)

	w := e.do(http.MethodPost, "/functions/v1/delete-account", tok, map[string]string{"confirmEmail": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email confirmation does not match", decode(t, w)["error"])
	got, _ := e.users.GetByID(context.Background(), u.ID)
	require.NotNil(t, got, "mismatch must not delete")

	w = e.do(http.MethodPost, "/functions/v1/delete-account", tok, map[string]string{"confirmEmail": "Bob@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, core.DeletedMessage, body["message"])

	// The token is still valid but the identity is gone.
	w = e.do(http.MethodPost, "/functions/v1/delete-account", tok, map[string]string{"confirmEmail": "Bob@example.com"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEntitlementGET(t *testing.T) {
	e := newEnv(t, nil)
	u := e.addUser("tier@example.com")
	now := time.Now()
	end := now.Add(time.Hour)
	require.NoError(t, e.subs.Upsert(context.Background(), subscriptions.Record{
		UserID: u.ID, Tier: entitlements.TierBuild, Status: subscriptions.StatusActive,
		StripeSubscriptionID: ptr("sub_1"), CurrentPeriodStart: &now, CurrentPeriodEnd: &end,
	}))
	tok := e.issuer.Token(u.ID.String(), u.Email)

	cases := []struct {
		tier    string
		allowed bool
	}{{"free", true}, {"start", true}, {"build", true}, {"scale", false}}
	for _, tc := range cases {
		w := e.do(http.MethodGet, "/v1/entitlements/"+tc.tier, tok, nil)
		require.Equal(t, http.StatusOK, w.Code, tc.tier)
		body := decode(t, w)
		assert.Equal(t, "build", body["tier"])
		assert.Equal(t, tc.allowed, body["allowed"], tc.tier)
	}

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/entitlements/platinum", tok, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/entitlements/free", "", nil).Code)
}

func TestRequireTier(t *testing.T) {
	e := newEnv(t, nil)
	u := e.addUser("gate@example.com")
	tok := e.issuer.Token(u.ID.String(), u.Email)

	w := e.do(http.MethodGet, "/v1/gates/start", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "tier_required", decode(t, w)["error"])
}

func TestMe_ReportsAdminRole(t *testing.T) {
	e := newEnv(t, nil)
	admin := e.addUser("admin@example.com")
	plain := e.addUser("plain@example.com")
	e.users.mu.Lock()
	e.users.admins[admin.ID] = true
	e.users.mu.Unlock()

	w := e.do(http.MethodGet, "/v1/me", e.issuer.Token(admin.ID.String(), admin.Email), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["is_admin"])
	assert.Equal(t, "admin@example.com", body["email"])

	w = e.do(http.MethodGet, "/v1/me", e.issuer.Token(plain.ID.String(), plain.Email), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["is_admin"])
}

func TestCORSPreflight(t *testing.T) {
	e := newEnv(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/check-subscription", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "x-client-info")
}

func TestSeedEndpointGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seeder := seeding.NewSeeder(nil, nil, nil, nil, nil)

	disabled := NewRouter(Deps{Seeder: seeder, Gate: seeding.Gate{Enabled: false, SecretKey: "k"}})
	w := httptest.NewRecorder()
	disabled.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/functions/v1/seed-test-data",
		bytes.NewBufferString(`{"action":"seed","seed_key":"k"}`)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	enabled := NewRouter(Deps{Seeder: seeder, Gate: seeding.Gate{Enabled: true, SecretKey: "k"}})
	w = httptest.NewRecorder()
	enabled.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/functions/v1/seed-test-data",
		bytes.NewBufferString(`{"action":"seed","seed_key":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	enabled.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/functions/v1/seed-test-data",
		bytes.NewBufferString(`{"action":"explode","seed_key":"k"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid action. Use 'seed' or 'cleanup'", decode(t, w)["error"])
}

func ptr[T any](v T) *T { return &v }
