package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/auth"
	"github.com/MediSynth-io/contentplanner/internal/config"
	"github.com/MediSynth-io/contentplanner/internal/content"
	"github.com/MediSynth-io/contentplanner/internal/entitlement"
	"github.com/MediSynth-io/contentplanner/internal/export"
	"github.com/MediSynth-io/contentplanner/internal/models"
	"github.com/MediSynth-io/contentplanner/internal/payment"
	"github.com/MediSynth-io/contentplanner/internal/store"
	"github.com/MediSynth-io/contentplanner/internal/subscription"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// PaymentGateway is the checkout surface the browser talks to through us.
type PaymentGateway interface {
	ClientToken(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Response, error)
	CaptureOrder(ctx context.Context, orderID string) (*payment.Response, error)
}

// TestSender sends an immediate test reminder.
type TestSender interface {
	SendNow(ctx context.Context, user *models.User) error
}

// ExportPublisher uploads a PDF export and returns a download link.
type ExportPublisher interface {
	PublishPDF(ctx context.Context, user *models.User, items []models.ContentItem) (*export.Link, error)
}

// Counter is a windowed counter used for rate limiting.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Deps are the collaborators the API serves. Publisher and Limiter may be nil.
type Deps struct {
	Config        config.Config
	Store         *store.Store
	Auth          *auth.Service
	Content       *content.Manager
	Subscriptions *subscription.Service
	Payments      PaymentGateway
	Reminders     TestSender
	Publisher     ExportPublisher
	Limiter       Counter
	Registry      *prometheus.Registry
	Log           zerolog.Logger
}

type Api struct {
	Deps
	Router  *chi.Mux
	log     zerolog.Logger
	metrics *httpMetrics
}

func NewApi(d Deps) *Api {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	api := &Api{
		Deps:    d,
		Router:  chi.NewRouter(),
		log:     d.Log.With().Str("component", "api").Logger(),
		metrics: newHTTPMetrics(d.Registry),
	}
	api.setupRoutes()
	return api
}

func (api *Api) setupRoutes() {
	r := api.Router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   api.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Stripe-Signature"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(api.log))
	r.Use(api.metrics.middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/heartbeat"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "Not found"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(api.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/login", api.Auth.Login)
		r.Get("/callback", api.Auth.Callback)
		r.Get("/logout", api.Auth.Logout)

		r.Get("/paypal/setup", api.PayPalSetup)
		r.Post("/paypal/order", api.PayPalCreateOrder)
		r.Post("/paypal/order/{orderID}/capture", api.PayPalCaptureOrder)
		r.Post("/webhooks/stripe", api.StripeWebhook)

		r.Group(func(r chi.Router) {
			r.Use(api.Auth.Authenticate)

			r.Get("/templates", api.ListTemplates)
			r.Get("/templates/{id}", api.GetTemplate)
			r.Get("/content", api.ListContent)
			r.Get("/content/{id}", api.GetContent)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth)

				r.Get("/auth/user", api.CurrentUser)
				r.Post("/subscription/activate", api.ActivateSubscription)
				r.Post("/templates/{id}/apply", api.ApplyTemplate)

				r.Post("/content", api.CreateContent)
				r.Put("/content/{id}", api.UpdateContent)
				r.Delete("/content/{id}", api.DeleteContent)
				r.Post("/reminders", api.CreateReminder)

				r.Get("/export/csv", api.ExportCSV)
				r.Get("/export/pdf", api.ExportPDF)
				r.With(
					api.requirePremium(entitlement.FeatureTestReminder),
					api.rateLimit("test-reminder", testReminderLimit, testReminderWindow),
				).Post("/test-reminder", api.TestReminder)

				r.Post("/tokens", api.CreateToken)
				r.Get("/tokens", api.ListTokens)
				r.Delete("/tokens/{id}", api.DeleteToken)
			})
		})
	})
}

func (api *Api) allowedOrigins() []string {
	origins := []string{"http://localhost:*", "http://127.0.0.1:*"}
	if portal := api.Config.Domains.Portal; portal != "" {
		scheme := "http"
		if api.Config.Domains.Secure {
			scheme = "https"
		}
		origins = append(origins, fmt.Sprintf("%s://%s", scheme, portal))
	}
	return origins
}

// Serve listens on the configured port until ctx is cancelled, then drains
// in-flight requests.
func (api *Api) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort),
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go api.cleanupSessions(ctx, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		api.log.Info().Str("addr", srv.Addr).Msg("Starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	api.log.Info().Msg("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (api *Api) cleanupSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := api.Auth.CleanupSessions(ctx)
		if err != nil && ctx.Err() == nil {
			api.log.Error().Err(err).Msg("Error cleaning up expired sessions")
		} else if n > 0 {
			api.log.Debug().Int64("removed", n).Msg("Expired sessions removed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
