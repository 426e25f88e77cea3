package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ustbills/internal/domain"
	"ustbills/internal/kyc"
	"ustbills/pkg/platform/httputil"
)

type kycHandler struct {
	svc *kyc.Service
}

type uploadRequest struct {
	DocumentFrontPage  string `json:"document_front_page"`
	DocumentBackPage   string `json:"document_back_page"`
	SelfieWithDocument string `json:"selfie_with_document"`
}

func (h *kycHandler) upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	uploadID, err := h.svc.UploadDocuments(r.Context(), kyc.UploadRequest{
		DocumentFrontPage:  req.DocumentFrontPage,
		DocumentBackPage:   req.DocumentBackPage,
		SelfieWithDocument: req.SelfieWithDocument,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"upload_id": uploadID})
}

func (h *kycHandler) status(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.SessionStatus(r.Context(), chi.URLParam(r, "uploadID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

type reviewRequest struct {
	UploadID string  `json:"upload_id"`
	Approved bool    `json:"approved"`
	Notes    *string `json:"notes,omitempty"`
}

func (h *kycHandler) review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	session, err := h.svc.AdminReview(r.Context(), kyc.ReviewRequest{
		UploadID: req.UploadID,
		Approved: req.Approved,
		Notes:    req.Notes,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *kycHandler) pending(w http.ResponseWriter, r *http.Request) {
	queue, err := h.svc.PendingReviews(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, queue)
}

type statusOverrideRequest struct {
	Principal string `json:"principal"`
	Status    string `json:"status"`
}

func (h *kycHandler) overrideStatus(w http.ResponseWriter, r *http.Request) {
	var req statusOverrideRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.svc.UpdateKYCStatus(r.Context(),
		domain.Principal(req.Principal), domain.KYCStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
