package httptransport

import (
	"net/http"

	"ustbills/internal/domain"
	"ustbills/internal/guard"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/httputil"
	"ustbills/pkg/requestcontext"
)

type adminHandler struct {
	guard *guard.Service
	store *store.Store
}

type grantRequest struct {
	Principal string `json:"principal"`
}

func (h *adminHandler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	caller := requestcontext.Caller(r.Context())
	if err := h.guard.Grant(r.Context(), caller, domain.Principal(req.Principal)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}

func (h *adminHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.guard.List(r.Context(), requestcontext.Caller(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *adminHandler) storageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "collect storage stats"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
