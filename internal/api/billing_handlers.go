package api

import (
	"io"
	"net/http"

	"github.com/MediSynth-io/contentplanner/internal/auth"
	"github.com/MediSynth-io/contentplanner/internal/payment"
	"github.com/go-chi/chi/v5"
)

const maxWebhookBytes = 65536

func (api *Api) PayPalSetup(w http.ResponseWriter, r *http.Request) {
	token, err := api.Payments.ClientToken(r.Context())
	if err != nil {
		api.respond(w, r, err, "Failed to set up PayPal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientToken": token})
}

func (api *Api) PayPalCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req payment.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.respond(w, r, err, "Failed to create order")
		return
	}
	resp, err := api.Payments.CreateOrder(r.Context(), req)
	if err != nil {
		api.respond(w, r, err, "Failed to create order")
		return
	}
	writePassthrough(w, resp)
}

func (api *Api) PayPalCaptureOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := api.Payments.CaptureOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		api.respond(w, r, err, "Failed to capture order")
		return
	}
	writePassthrough(w, resp)
}

func writePassthrough(w http.ResponseWriter, resp *payment.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

func (api *Api) ActivateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PayPalOrderID string `json:"paypalOrderId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		api.respond(w, r, err, "Failed to activate subscription")
		return
	}

	user := auth.UserFromContext(r.Context())
	updated, err := api.Subscriptions.Activate(r.Context(), user.ID, req.PayPalOrderID)
	if err != nil {
		api.respond(w, r, err, "Failed to activate subscription")
		return
	}
	if updated == nil {
		writeError(w, notFound("User not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            "Subscription activated successfully",
		"subscriptionStatus": updated.SubscriptionStatus,
	})
}

func (api *Api) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, badRequest("Failed to read body"))
		return
	}

	err = api.Subscriptions.HandleStripeEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"), api.Config.Stripe.WebhookSecret)
	if err != nil {
		api.respond(w, r, err, "Failed to process webhook")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
