package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/export"
	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/payment"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

type ApiTestSuite struct {
	suite.Suite
	h     *harness
	alice string
	bob   string
	paid  string
}

func TestApiTestSuite(t *testing.T) {
	suite.Run(t, new(ApiTestSuite))
}

func (s *ApiTestSuite) SetupTest() {
	s.h = newHarness(s.T())
	s.alice = s.h.user("alice", "alice@example.com", models.SubscriptionFree)
	s.bob = s.h.user("bob", "bob@example.com", models.SubscriptionFree)
	s.paid = s.h.user("carol", "carol@example.com", models.SubscriptionActive)
}

func (s *ApiTestSuite) create(token string, body map[string]any) models.ContentItem {
	rec := s.h.do(http.MethodPost, "/api/content", token, body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.ContentItem](s.T(), rec)
}

func (s *ApiTestSuite) TestHeartbeatAndMetrics() {
	rec := s.h.do(http.MethodGet, "/heartbeat", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	s.h.do(http.MethodGet, "/api/templates", "", nil)
	rec = s.h.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `contentplanner_http_requests_total{method="GET",path="/api/templates",status="200"} 1`)
}

func (s *ApiTestSuite) TestUnknownRoute() {
	rec := s.h.do(http.MethodGet, "/api/nope", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.JSONEq(`{"code":"not_found","message":"Not found"}`, rec.Body.String())
}

func (s *ApiTestSuite) TestCurrentUser() {
	rec := s.h.do(http.MethodGet, "/api/auth/user", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.h.do(http.MethodGet, "/api/auth/user", s.alice, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	user := decode[models.User](s.T(), rec)
	s.Equal("alice", user.ID)
	s.Equal(models.SubscriptionFree, user.SubscriptionStatus)
}

func (s *ApiTestSuite) TestCreateLaunchPost() {
	item := s.create(s.alice, map[string]any{
		"title": "Launch post", "platform": "social", "scheduledDate": "2024-07-01T10:00",
	})
	s.Equal("Launch post", item.Title)
	s.Equal("alice", item.UserID)
	s.Equal(models.StatusDraft, item.Status)
	s.False(item.ReminderSent)

	rec := s.h.do(http.MethodGet, "/api/content/"+item.ID, "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(item.ID, decode[models.ContentItem](s.T(), rec).ID)
}

func (s *ApiTestSuite) TestCreateRequiresAuth() {
	rec := s.h.do(http.MethodPost, "/api/content", "", map[string]any{"title": "x"})
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ApiTestSuite) TestCreateValidation() {
	rec := s.h.do(http.MethodPost, "/api/content", s.alice, map[string]any{
		"platform": "tiktok", "scheduledDate": "2024-07-01",
	})
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	body := decode[APIError](s.T(), rec)
	s.Equal("Validation error", body.Message)
	s.Equal("validation_error", body.Code)
	var fields []string
	for _, f := range body.Errors {
		fields = append(fields, f.Field)
	}
	s.ElementsMatch([]string{"title", "platform"}, fields)

	rec = s.h.do(http.MethodGet, "/api/content", s.alice, nil)
	s.Empty(decode[[]models.ContentItem](s.T(), rec))
}

func (s *ApiTestSuite) TestCreateBadJSON() {
	rec := s.h.do(http.MethodPost, "/api/content", s.alice, "{not json")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid JSON", decode[APIError](s.T(), rec).Message)
}

func (s *ApiTestSuite) TestCreateWithPremiumTemplate() {
	premium := s.h.templateID("Weekly Value Newsletter")
	body := map[string]any{
		"title": "Newsletter", "platform": "email", "scheduledDate": "2024-07-01", "templateId": premium,
	}

	rec := s.h.do(http.MethodPost, "/api/content", s.alice, body)
	s.Require().Equal(http.StatusForbidden, rec.Code)
	s.Equal("premium_required", decode[APIError](s.T(), rec).Code)

	item := s.create(s.paid, body)
	s.Equal(premium, *item.TemplateID)
}

func (s *ApiTestSuite) TestGetMissing() {
	rec := s.h.do(http.MethodGet, "/api/content/missing", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Content item not found", decode[APIError](s.T(), rec).Message)
}

func (s *ApiTestSuite) TestUpdate() {
	item := s.create(s.alice, map[string]any{"title": "Draft", "platform": "blog", "scheduledDate": "2024-07-01"})

	rec := s.h.do(http.MethodPut, "/api/content/"+item.ID, s.alice, map[string]any{"status": "posted"})
	s.Require().Equal(http.StatusOK, rec.Code)
	updated := decode[models.ContentItem](s.T(), rec)
	s.Equal(models.StatusPosted, updated.Status)
	s.Equal("Draft", updated.Title)

	rec = s.h.do(http.MethodPut, "/api/content/"+item.ID, s.bob, map[string]any{"title": "Mine now"})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.h.do(http.MethodPut, "/api/content/"+item.ID, s.alice, map[string]any{"platform": "fax"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestDelete() {
	item := s.create(s.alice, map[string]any{"title": "Gone", "platform": "blog", "scheduledDate": "2024-07-01"})

	rec := s.h.do(http.MethodDelete, "/api/content/"+item.ID, s.bob, nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.h.do(http.MethodDelete, "/api/content/"+item.ID, s.alice, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"message":"Content item deleted successfully"}`, rec.Body.String())

	rec = s.h.do(http.MethodDelete, "/api/content/"+item.ID, s.alice, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) TestListScoping() {
	s.create(s.alice, map[string]any{"title": "A", "platform": "blog", "scheduledDate": "2024-07-01"})
	s.create(s.bob, map[string]any{"title": "B", "platform": "blog", "scheduledDate": "2024-07-02"})

	all := decode[[]models.ContentItem](s.T(), s.h.do(http.MethodGet, "/api/content", "", nil))
	s.Len(all, 2)

	mine := decode[[]models.ContentItem](s.T(), s.h.do(http.MethodGet, "/api/content", s.bob, nil))
	s.Require().Len(mine, 1)
	s.Equal("B", mine[0].Title)
}

func (s *ApiTestSuite) TestTemplates() {
	rec := s.h.do(http.MethodGet, "/api/templates", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(decode[[]models.ContentTemplate](s.T(), rec), 10)

	id := s.h.templateID("Quick Tip Monday")
	rec = s.h.do(http.MethodGet, "/api/templates/"+id, "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("Quick Tip Monday", decode[models.ContentTemplate](s.T(), rec).Title)

	rec = s.h.do(http.MethodGet, "/api/templates/nope", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("Template not found", decode[APIError](s.T(), rec).Message)
}

func (s *ApiTestSuite) TestApplyTemplateAfterActivation() {
	premium := s.h.templateID("Case Study Post")

	rec := s.h.do(http.MethodPost, "/api/templates/"+premium+"/apply", s.alice, nil)
	s.Require().Equal(http.StatusForbidden, rec.Code)

	rec = s.h.do(http.MethodPost, "/api/subscription/activate", s.alice, map[string]any{"paypalOrderId": "ORDER-9"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Contains(rec.Body.String(), "Subscription activated successfully")

	rec = s.h.do(http.MethodPost, "/api/templates/"+premium+"/apply", s.alice, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	prefill := decode[map[string]any](s.T(), rec)
	s.Equal("Case Study Post", prefill["title"])
	s.Equal(premium, prefill["templateId"])

	rec = s.h.do(http.MethodPost, "/api/templates/missing/apply", s.alice, nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) TestActivateRequiresOrder() {
	rec := s.h.do(http.MethodPost, "/api/subscription/activate", s.alice, map[string]any{})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("PayPal order ID is required", decode[APIError](s.T(), rec).Message)
}

func (s *ApiTestSuite) TestCreateReminder() {
	item := s.create(s.alice, map[string]any{"title": "Post", "platform": "social", "scheduledDate": "2024-07-01"})

	rec := s.h.do(http.MethodPost, "/api/reminders", s.alice, map[string]any{
		"contentItemId": item.ID, "scheduledFor": "2024-06-30T09:00:00Z",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	r := decode[models.EmailReminder](s.T(), rec)
	s.False(r.Sent)
	s.True(r.ScheduledFor.Equal(time.Date(2024, 6, 30, 9, 0, 0, 0, time.UTC)))

	rec = s.h.do(http.MethodPost, "/api/reminders", s.bob, map[string]any{
		"contentItemId": item.ID, "scheduledFor": "2024-06-30T09:00:00Z",
	})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.h.do(http.MethodPost, "/api/reminders", s.alice, map[string]any{"contentItemId": item.ID})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestExportCSV() {
	s.create(s.alice, map[string]any{"title": "Hello, world", "description": `Say "hi"`, "platform": "social", "scheduledDate": "2024-07-01"})
	s.create(s.alice, map[string]any{"title": "Second", "platform": "blog", "scheduledDate": "2024-07-02"})
	s.create(s.bob, map[string]any{"title": "Not mine", "platform": "blog", "scheduledDate": "2024-07-02"})

	rec := s.h.do(http.MethodGet, "/api/export/csv", s.alice, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("text/csv", rec.Header().Get("Content-Type"))
	s.Contains(rec.Header().Get("Content-Disposition"), "content-calendar.csv")

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	s.Require().Len(lines, 3)
	s.Equal("Title,Description,Platform,Scheduled Date,Status", lines[0])
	s.Contains(rec.Body.String(), `"Hello, world","Say ""hi"""`)
	s.NotContains(rec.Body.String(), "Not mine")
}

func (s *ApiTestSuite) TestExportPDF() {
	rec := s.h.do(http.MethodGet, "/api/export/pdf", s.alice, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	s.create(s.paid, map[string]any{"title": "Premium post", "platform": "blog", "scheduledDate": "2024-07-01"})
	rec = s.h.do(http.MethodGet, "/api/export/pdf", s.paid, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("application/pdf", rec.Header().Get("Content-Type"))
	s.True(strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = s.h.do(http.MethodGet, "/api/export/pdf?upload=true", s.paid, nil)
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

func (s *ApiTestSuite) TestExportPDFUpload() {
	pub := new(mockPublisher)
	expires := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	pub.On("PublishPDF", mock.Anything, mock.MatchedBy(func(u *models.User) bool { return u.ID == "carol" }), mock.Anything).
		Return(&export.Link{URL: "https://files.example.com/x.pdf", Key: "users/carol/exports/x.pdf", ExpiresAt: expires}, nil)
	s.h.build(s.h.api.Config, pub)

	rec := s.h.do(http.MethodGet, "/api/export/pdf?upload=true", s.paid, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	link := decode[export.Link](s.T(), rec)
	s.Equal("https://files.example.com/x.pdf", link.URL)
	pub.AssertExpectations(s.T())
}

func (s *ApiTestSuite) TestTestReminder() {
	rec := s.h.do(http.MethodPost, "/api/test-reminder", s.alice, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	noEmail := s.h.user("dave", "", models.SubscriptionActive)
	rec = s.h.do(http.MethodPost, "/api/test-reminder", noEmail, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("User email not found", decode[APIError](s.T(), rec).Message)

	rec = s.h.do(http.MethodPost, "/api/test-reminder", s.paid, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"message":"Test reminder sent successfully"}`, rec.Body.String())

	sent := s.h.sender.messages()
	s.Require().Len(sent, 1)
	s.Equal("carol@example.com", sent[0].To)
	s.Contains(sent[0].Subject, "Test Content")
}

func (s *ApiTestSuite) TestTestReminderSendFailure() {
	s.h.sender.err = errors.New("smtp down")
	rec := s.h.do(http.MethodPost, "/api/test-reminder", s.paid, nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("Failed to send test reminder", decode[APIError](s.T(), rec).Message)
}

func (s *ApiTestSuite) TestTestReminderRateLimited() {
	for i := 0; i < testReminderLimit; i++ {
		s.Require().Equal(http.StatusOK, s.h.do(http.MethodPost, "/api/test-reminder", s.paid, nil).Code)
	}
	rec := s.h.do(http.MethodPost, "/api/test-reminder", s.paid, nil)
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.NotEmpty(rec.Header().Get("Retry-After"))
}

func (s *ApiTestSuite) TestDeniedTestRemindersDoNotUseQuota() {
	for i := 0; i < testReminderLimit+2; i++ {
		rec := s.h.do(http.MethodPost, "/api/test-reminder", s.alice, nil)
		s.Require().Equal(http.StatusForbidden, rec.Code)
		s.Equal("premium_required", decode[APIError](s.T(), rec).Code)
	}
	s.Zero(s.h.limiter.counts["ratelimit:test-reminder:alice"])

	_, err := s.h.store.ActivateSubscription(s.h.ctx, "alice", "ORDER-9", "ORDER-9")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, s.h.do(http.MethodPost, "/api/test-reminder", s.alice, nil).Code)
}

func (s *ApiTestSuite) TestPayPalPassthrough() {
	s.h.payments.On("ClientToken", mock.Anything).Return("client-token-1", nil)
	s.h.payments.On("CreateOrder", mock.Anything, payment.OrderRequest{Amount: "9.99", Currency: "USD", Intent: "CAPTURE"}).
		Return(&payment.Response{Status: http.StatusCreated, Body: json.RawMessage(`{"id":"ORDER-1","status":"CREATED"}`)}, nil)
	s.h.payments.On("CreateOrder", mock.Anything, payment.OrderRequest{Amount: "-1"}).
		Return(nil, &payment.RequestError{Message: "Invalid amount"})
	s.h.payments.On("CaptureOrder", mock.Anything, "ORDER-1").
		Return(&payment.Response{Status: http.StatusCreated, Body: json.RawMessage(`{"id":"ORDER-1","status":"COMPLETED"}`)}, nil)

	rec := s.h.do(http.MethodGet, "/api/paypal/setup", "", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"clientToken":"client-token-1"}`, rec.Body.String())

	rec = s.h.do(http.MethodPost, "/api/paypal/order", "", map[string]any{"amount": "9.99", "currency": "USD", "intent": "CAPTURE"})
	s.Equal(http.StatusCreated, rec.Code)
	s.JSONEq(`{"id":"ORDER-1","status":"CREATED"}`, rec.Body.String())

	rec = s.h.do(http.MethodPost, "/api/paypal/order", "", map[string]any{"amount": "-1"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("Invalid amount", decode[APIError](s.T(), rec).Message)

	rec = s.h.do(http.MethodPost, "/api/paypal/order/ORDER-1/capture", "", nil)
	s.Equal(http.StatusCreated, rec.Code)
	s.Contains(rec.Body.String(), "COMPLETED")

	s.h.payments.AssertExpectations(s.T())
}

func (s *ApiTestSuite) TestPayPalUnavailable() {
	s.h.payments.On("ClientToken", mock.Anything).Return("", errors.New("connection refused"))
	rec := s.h.do(http.MethodGet, "/api/paypal/setup", "", nil)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("internal_error", decode[APIError](s.T(), rec).Code)
}

func (s *ApiTestSuite) stripeEvent(eventType string, object map[string]any) []byte {
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_" + eventType,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": object},
	})
	s.Require().NoError(err)
	return payload
}

func (s *ApiTestSuite) postStripe(payload []byte) *httptest.ResponseRecorder {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return s.h.doWith(http.MethodPost, "/api/webhooks/stripe", "", signed.Payload, http.Header{"Stripe-Signature": {signed.Header}})
}

func (s *ApiTestSuite) TestStripeWebhook() {
	linked := s.stripeEvent("checkout.session.completed", map[string]any{
		"id":                  "cs_42",
		"object":              "checkout.session",
		"client_reference_id": "alice",
		"customer":            "cus_42",
		"subscription":        "sub_42",
	})
	rec := s.h.do(http.MethodPost, "/api/webhooks/stripe", "", linked)
	s.Equal(http.StatusBadRequest, rec.Code, "unsigned payloads are rejected")

	rec = s.postStripe(linked)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	user, err := s.h.store.GetUser(s.h.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(models.SubscriptionActive, user.SubscriptionStatus)

	rec = s.postStripe(s.stripeEvent("customer.subscription.deleted", map[string]any{
		"id": "sub_42", "object": "subscription", "status": "canceled",
	}))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	user, err = s.h.store.GetUser(s.h.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(models.SubscriptionCancelled, user.SubscriptionStatus)
}
