package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/auth"
	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/MediSynth-io/contentplanner/internal/content"
	"github.com/MediSynth-io/contentplanner/internal/database"
	"github.com/MediSynth-io/contentplanner/internal/export"
	"github.com/MediSynth-io/contentplanner/internal/mailer"
	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/payment"
	"github.com/MediSynth-io/contentplanner/internal/reminder"
	"github.com/MediSynth-io/contentplanner/internal/seed"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/MediSynth-io/contentplanner/internal/subscription"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_api_test"

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) ClientToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockPayments) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*payment.Response)
	return resp, args.Error(1)
}

func (m *mockPayments) CaptureOrder(ctx context.Context, orderID string) (*payment.Response, error) {
	args := m.Called(ctx, orderID)
	resp, _ := args.Get(0).(*payment.Response)
	return resp, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishPDF(ctx context.Context, user *models.User, items []models.ContentItem) (*export.Link, error) {
	args := m.Called(ctx, user, items)
	link, _ := args.Get(0).(*export.Link)
	return link, args.Error(1)
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *memoryCounter) IncrWithExpire(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

type harness struct {
	t        testing.TB
	ctx      context.Context
	db       *database.DB
	store    *store.Store
	auth     *auth.Service
	sender   *recordingSender
	payments *mockPayments
	limiter  *memoryCounter
	api      *Api
}

func newHarness(t testing.TB) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "api.db")}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, zerolog.Nop()))
	s := store.FromDB(db)

	templates, err := seed.Defaults()
	require.NoError(t, err)
	_, err = seed.Apply(ctx, s, templates, zerolog.Nop())
	require.NoError(t, err)

	cfg := config.Config{APIPort: 8081}
	cfg.Stripe.WebhookSecret = testWebhookSecret
	cfg.Auth = config.AuthConfig{
		SessionSecret: "session-secret-for-tests-only-0001",
		StateSecret:   "state-secret-for-tests-only-000001",
		SessionTTL:    time.Hour,
	}

	h := &harness{
		t:        t,
		ctx:      ctx,
		db:       db,
		store:    s,
		auth:     auth.NewService(cfg.Auth, s, false, zerolog.Nop()),
		sender:   &recordingSender{},
		payments: new(mockPayments),
		limiter:  &memoryCounter{},
	}
	h.build(cfg, nil)
	return h
}

func (h *harness) build(cfg config.Config, publisher ExportPublisher) {
	d := Deps{
		Config:        cfg,
		Store:         h.store,
		Auth:          h.auth,
		Content:       content.NewManager(h.store, time.Hour, zerolog.Nop()),
		Subscriptions: subscription.NewService(h.store, nil, zerolog.Nop()),
		Payments:      h.payments,
		Reminders:     reminder.NewDispatcher(h.store, h.sender, reminder.Options{}, zerolog.Nop()),
		Limiter:       h.limiter,
		Log:           zerolog.Nop(),
	}
	if publisher != nil {
		d.Publisher = publisher
	}
	h.api = NewApi(d)
}

// user creates a user and returns a bearer token for them.
func (h *harness) user(id, email string, status models.SubscriptionStatus) string {
	h.t.Helper()
	in := models.UpsertUser{ID: id}
	if email != "" {
		in.Email = &email
	}
	_, err := h.store.UpsertUser(h.ctx, in)
	require.NoError(h.t, err)
	if status != "" && status != models.SubscriptionFree {
		_, err = h.store.LinkSubscription(h.ctx, id, "cus_"+id, "sub_"+id, status)
		require.NoError(h.t, err)
	}
	token, _, err := h.auth.CreateToken(h.ctx, id, "test", 0)
	require.NoError(h.t, err)
	return token
}

func (h *harness) templateID(title string) string {
	h.t.Helper()
	templates, err := h.store.ListTemplates(h.ctx)
	require.NoError(h.t, err)
	for _, t := range templates {
		if t.Title == title {
			return t.ID
		}
	}
	h.t.Fatalf("template %q not seeded", title)
	return ""
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.doWith(method, path, token, body, nil)
}

func (h *harness) doWith(method, path, token string, body any, header http.Header) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	case []byte:
		r = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.api.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
