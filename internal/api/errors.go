package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MediSynth-io/contentplanner/internal/content"
	"github.com/MediSynth-io/contentplanner/internal/entitlement"
	"github.com/MediSynth-io/contentplanner/internal/payment"
	"github.com/MediSynth-io/contentplanner/internal/reminder"
	"github.com/MediSynth-io/contentplanner/internal/subscription"
)

// APIError is the JSON error envelope every handler returns.
type APIError struct {
	Status  int                  `json:"-"`
	Code    string               `json:"code"`
	Message string               `json:"message"`
	Errors  []content.FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func notFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "not_found", Message: message}
}

func badRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: message}
}

// classify maps a domain error to its API form. Unknown errors return nil.
func classify(err error) *APIError {
	var apiErr *APIError
	var validation *content.ValidationError
	var denied *entitlement.DeniedError
	var request *payment.RequestError

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &validation):
		return &APIError{Status: http.StatusBadRequest, Code: "validation_error", Message: "Validation error", Errors: validation.Fields}
	case errors.As(err, &denied):
		return &APIError{Status: http.StatusForbidden, Code: "premium_required", Message: denied.Reason}
	case errors.As(err, &request):
		return badRequest(request.Message)
	case errors.Is(err, subscription.ErrOrderRequired):
		return badRequest("PayPal order ID is required")
	case errors.Is(err, subscription.ErrNotCompleted):
		return &APIError{Status: http.StatusPaymentRequired, Code: "payment_incomplete", Message: "Payment has not been completed"}
	case errors.Is(err, subscription.ErrBadSignature):
		return badRequest("Invalid signature")
	case errors.Is(err, reminder.ErrNoEmail):
		return badRequest("User email not found")
	}
	return nil
}

// respond writes err, falling back to a 500 carrying fallback for anything unclassified.
func (api *Api) respond(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if apiErr := classify(err); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	api.log.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
	writeError(w, &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: fallback})
}

func writeError(w http.ResponseWriter, e *APIError) {
	writeJSON(w, e.Status, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("Invalid JSON")
	}
	return nil
}
