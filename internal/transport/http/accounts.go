// Package httptransport is the HTTP surface: thin handlers over the feature
// services, one file per feature.
package httptransport

import (
	"net/http"

	"ustbills/internal/accounts"
	"ustbills/pkg/platform/httputil"
)

type accountsHandler struct {
	svc *accounts.Service
}

type registerRequest struct {
	Email       string  `json:"email"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Country     string  `json:"country"`
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

func (h *accountsHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.svc.Register(r.Context(), accounts.RegisterRequest{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Country:     req.Country,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *accountsHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Profile(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *accountsHandler) registered(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.IsRegistered(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"registered": ok})
}

func (h *accountsHandler) deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.svc.DepositFunds(r.Context(), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *accountsHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.svc.WithdrawFunds(r.Context(), req.Amount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *accountsHandler) transactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.svc.Transactions(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, txns)
}
