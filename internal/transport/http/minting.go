package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ustbills/internal/minting"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/httputil"
)

type mintingHandler struct {
	svc *minting.Service
}

type notifyDepositRequest struct {
	CkBTCAmount uint64 `json:"ckbtc_amount"`
	BlockIndex  uint64 `json:"block_index"`
}

func (h *mintingHandler) notify(w http.ResponseWriter, r *http.Request) {
	var req notifyDepositRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	deposit, err := h.svc.NotifyDeposit(r.Context(), req.CkBTCAmount, req.BlockIndex)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deposit)
}

type redeemRequest struct {
	OUSGAmount uint64 `json:"ousg_amount"`
}

func (h *mintingHandler) redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.svc.Redeem(r.Context(), req.OUSGAmount)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *mintingHandler) deposit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.Validation("deposit id must be numeric"))
		return
	}
	deposit, err := h.svc.GetDeposit(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deposit)
}

func (h *mintingHandler) deposits(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.UserDeposits(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *mintingHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
