package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tucanapay/tucana/service/chains"
	"github.com/tucanapay/tucana/service/engine"
	"github.com/tucanapay/tucana/service/payload"
	"github.com/tucanapay/tucana/service/selector"
)

const maxRequestBodySize = 1 << 20 // 1MB - payment payloads are tiny

// validate checks request DTO struct tags. A single instance is safe for
// concurrent use and caches struct metadata.
var validate = validator.New()

// engineFactory builds a per-user engine; injected so handler tests can
// substitute an in-memory store.
type engineFactory func(userID string) *engine.Engine

type resolveRequest struct {
	Payload string `json:"payload" validate:"required,max=4096"`
}

// handleResolve decodes a raw scanned/pasted payload into a normalized
// payment request.
// POST /api/v1/resolve
func handleResolve(engines engineFactory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if !decodeBody(w, r, logger, &req) {
			return
		}

		resolved, err := engines("").Resolve(req.Payload)
		if err != nil {
			writeEngineError(w, logger, err)
			return
		}
		writeJSON(w, resolved, http.StatusOK)
	})
}

type preselectRequest struct {
	UserID           string                       `json:"user_id"`
	Recipient        string                       `json:"recipient"`
	Amount           string                       `json:"amount"`
	Balances         map[string]map[string]string `json:"balances" validate:"required"`
	RecipientChain   string                       `json:"recipient_chain"`
	PreselectedChain string                       `json:"preselected_chain"`
	RequireBalance   *bool                        `json:"require_balance"`
}

type preselectResponse struct {
	TokenID  string `json:"token_id"`
	Chain    string `json:"chain"`
	Fallback string `json:"fallback"`
}

// handlePreselect picks the token and chain to pre-fill a send flow with.
// POST /api/v1/preselect
func handlePreselect(engines engineFactory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req preselectRequest
		if !decodeBody(w, r, logger, &req) {
			return
		}

		params, err := preselectParamsFromRequest(req)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		pick, fallback, err := engines(req.UserID).Preselect(r.Context(), params)
		if err != nil {
			logger.Error("preselect failed", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, preselectResponse{
			TokenID:  pick.TokenID,
			Chain:    string(pick.Chain),
			Fallback: string(fallback),
		}, http.StatusOK)
	})
}

func preselectParamsFromRequest(req preselectRequest) (engine.PreselectParams, error) {
	params := engine.PreselectParams{
		Recipient:      req.Recipient,
		RequireBalance: true,
	}
	if req.RequireBalance != nil {
		params.RequireBalance = *req.RequireBalance
	}

	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() {
			return params, fmt.Errorf("amount %q is not a non-negative decimal", req.Amount)
		}
		params.Amount = amount
	}

	balances, err := selector.ParseBalances(req.Balances)
	if err != nil {
		return params, err
	}
	params.Balances = balances

	if req.RecipientChain != "" {
		chain, err := chains.Parse(req.RecipientChain)
		if err != nil {
			return params, err
		}
		params.RecipientChain = chain
	}
	if req.PreselectedChain != "" {
		chain, err := chains.Parse(req.PreselectedChain)
		if err != nil {
			return params, err
		}
		params.PreselectedChain = chain
	}
	return params, nil
}

type canSendRequest struct {
	Token    string                       `json:"token" validate:"required"`
	Chain    string                       `json:"chain" validate:"required"`
	Amount   string                       `json:"amount" validate:"required"`
	Balances map[string]map[string]string `json:"balances" validate:"required"`
}

// handleCanSend answers "can I send amount X of token T from chain C".
// Insufficient balance is a normal answer, not an error status.
// POST /api/v1/can-send
func handleCanSend(engines engineFactory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req canSendRequest
		if !decodeBody(w, r, logger, &req) {
			return
		}

		chain, err := chains.Parse(req.Chain)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() {
			writeError(w, fmt.Sprintf("amount %q is not a non-negative decimal", req.Amount), http.StatusBadRequest)
			return
		}
		balances, err := selector.ParseBalances(req.Balances)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, err := engines("").CanSend(req.Token, chain, amount, balances)
		var insufficient *engine.InsufficientBalanceError
		if err != nil && !errors.As(err, &insufficient) {
			logger.Error("can-send check failed", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, result, http.StatusOK)
	})
}

type confirmationRequest struct {
	UserID         string                       `json:"user_id"`
	Recipient      string                       `json:"recipient" validate:"required"`
	Amount         string                       `json:"amount" validate:"required"`
	TokenID        string                       `json:"token_id" validate:"required"`
	Chain          string                       `json:"chain" validate:"required"`
	RecipientChain string                       `json:"recipient_chain"`
	Balances       map[string]map[string]string `json:"balances"`
}

// handleConfirmation builds the fee/warning confirmation for a send.
// POST /api/v1/confirmation
func handleConfirmation(engines engineFactory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req confirmationRequest
		if !decodeBody(w, r, logger, &req) {
			return
		}

		chain, err := chains.Parse(req.Chain)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() {
			writeError(w, fmt.Sprintf("amount %q is not a non-negative decimal", req.Amount), http.StatusBadRequest)
			return
		}

		params := engine.ConfirmParams{
			Recipient: req.Recipient,
			Amount:    amount,
			TokenID:   req.TokenID,
			Chain:     chain,
		}
		if req.RecipientChain != "" {
			rc, err := chains.Parse(req.RecipientChain)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			params.RecipientChain = rc
		}
		if req.Balances != nil {
			balances, err := selector.ParseBalances(req.Balances)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			params.Balances = balances
		}

		confirmation, err := engines(req.UserID).Confirm(r.Context(), params)
		if err != nil {
			logger.Error("confirmation build failed", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, confirmation, http.StatusOK)
	})
}

type recordPaymentRequest struct {
	UserID    string `json:"user_id"`
	TokenID   string `json:"token_id" validate:"required"`
	Chain     string `json:"chain" validate:"required"`
	Recipient string `json:"recipient"`
}

// handleRecordPayment feeds a completed send into the behavior learner.
// POST /api/v1/payments
func handleRecordPayment(engines engineFactory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req recordPaymentRequest
		if !decodeBody(w, r, logger, &req) {
			return
		}

		chain, err := chains.Parse(req.Chain)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := engines(req.UserID).RecordPayment(r.Context(), req.TokenID, chain, req.Recipient); err != nil {
			logger.Error("record payment failed", "error", err)
			writeError(w, "failed to record payment", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
}

// handleGetPreferences returns the learner's current preference snapshot.
// GET /api/v1/preferences/{user}
func handleGetPreferences(engines engineFactory, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.PathValue("user")
		if user == "" {
			writeError(w, "missing user id", http.StatusBadRequest)
			return
		}

		prefs, err := engines(user).Preferences(r.Context())
		if err != nil {
			logger.Error("failed to load preferences", "user", user, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, prefs, http.StatusOK)
	})
}

// decodeBody reads, decodes, and tag-validates a JSON request body. Writes
// the error response itself and returns false when the request is bad.
func decodeBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug("invalid request body", "error", err)
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// errorResponse is the uniform error body. Kind lets the UI pick a message
// per failure class; recoverable tells it whether a retry can help.
type errorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`
	Recoverable bool   `json:"recoverable"`
}

// writeEngineError maps engine error kinds onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	resp := errorResponse{Error: err.Error(), Recoverable: engine.IsRecoverable(err)}
	status := http.StatusInternalServerError

	var parseErr *payload.ParseError
	var validationErr *payload.ValidationError
	switch {
	case errors.As(err, &parseErr):
		resp.Kind = "format"
		status = http.StatusUnprocessableEntity
	case errors.As(err, &validationErr):
		resp.Kind = "validation"
		status = http.StatusUnprocessableEntity
	default:
		logger.Error("unexpected engine error", "error", err)
		resp.Error = "internal server error"
	}
	writeJSON(w, resp, status)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already out; nothing left to do.
		return
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, errorResponse{Error: msg}, status)
}
