package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ustbills/internal/domain"
	"ustbills/internal/trading"
	"ustbills/pkg/platform/httputil"
)

type tradingHandler struct {
	svc *trading.Service
}

type createBillRequest struct {
	CUSIP         string  `json:"cusip"`
	FaceValue     uint64  `json:"face_value"`
	PurchasePrice uint64  `json:"purchase_price"`
	MaturityDate  int64   `json:"maturity_date"`
	AnnualYield   float64 `json:"annual_yield"`
	Issuer        string  `json:"issuer"`
	BillType      string  `json:"bill_type"`
}

func (h *tradingHandler) createBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	bill, err := h.svc.CreateBill(r.Context(), trading.CreateBillRequest{
		CUSIP:         req.CUSIP,
		FaceValue:     req.FaceValue,
		PurchasePrice: req.PurchasePrice,
		MaturityDate:  req.MaturityDate,
		AnnualYield:   req.AnnualYield,
		Issuer:        req.Issuer,
		BillType:      req.BillType,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, bill)
}

func (h *tradingHandler) activeBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.svc.GetActiveBills(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bills)
}

func (h *tradingHandler) bills(w http.ResponseWriter, r *http.Request) {
	page := queryUint(r, "page", 0)
	perPage := queryUint(r, "per_page", 20)
	result, err := h.svc.GetBillsPaginated(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *tradingHandler) bill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.svc.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bill)
}

func (h *tradingHandler) buy(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.BuyBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *tradingHandler) holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.svc.UserHoldings(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, holdings)
}

func (h *tradingHandler) currentValue(w http.ResponseWriter, r *http.Request) {
	value, err := h.svc.CalculateCurrentValue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"current_value": value})
}

func (h *tradingHandler) yieldProjection(w http.ResponseWriter, r *http.Request) {
	projection, err := h.svc.GetYieldProjection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, projection)
}

func (h *tradingHandler) maturityYield(w http.ResponseWriter, r *http.Request) {
	yield, err := h.svc.CalculateMaturityYield(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]uint64{"maturity_yield": yield})
}

type brokerPurchaseRequest struct {
	Amount      uint64 `json:"amount"`
	Price       uint64 `json:"price"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	BrokerTxnID string `json:"broker_txn_id"`
	USTBillType string `json:"ustbill_type"`
}

func (h *tradingHandler) addBrokerPurchase(w http.ResponseWriter, r *http.Request) {
	var req brokerPurchaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	err := h.svc.AddBrokerPurchase(r.Context(), domain.VerifiedBrokerPurchase{
		Amount:      req.Amount,
		Price:       req.Price,
		Timestamp:   req.Timestamp,
		BrokerTxnID: req.BrokerTxnID,
		USTBillType: req.USTBillType,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (h *tradingHandler) brokerPurchases(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListBrokerPurchases(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *tradingHandler) tradingStats(w http.ResponseWriter, r *http.Request) {
	tm, err := h.svc.Metrics(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tm)
}

func (h *tradingHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.PlatformConfig(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *tradingHandler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.PlatformConfig
	if err := httputil.DecodeJSON(r, &cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.UpdatePlatformConfig(r.Context(), cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func queryUint(r *http.Request, key string, fallback uint64) uint64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
