package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ustbills/internal/accounts"
	"ustbills/internal/guard"
	"ustbills/internal/kyc"
	"ustbills/internal/minting"
	"ustbills/internal/store"
	"ustbills/internal/trading"
)

// Deps carries everything the router needs.
type Deps struct {
	Accounts *accounts.Service
	KYC      *kyc.Service
	Trading  *trading.Service
	Minting  *minting.Service
	Guard    *guard.Service
	Store    *store.Store

	JWTSigningKey []byte
	Logger        *slog.Logger
	Registry      *prometheus.Registry
}

// NewRouter wires middleware and every route.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	accountsH := &accountsHandler{svc: d.Accounts}
	kycH := &kycHandler{svc: d.KYC}
	tradingH := &tradingHandler{svc: d.Trading}
	mintingH := &mintingHandler{svc: d.Minting}
	adminH := &adminHandler{guard: d.Guard, store: d.Store}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestTime)
	r.Use(Identity(d.JWTSigningKey, d.Logger))
	r.Use(ClientInfo(d.Logger))

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", accountsH.register)
		r.Get("/me", accountsH.me)
		r.Get("/me/registered", accountsH.registered)
		r.Get("/me/transactions", accountsH.transactions)
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Post("/deposit", accountsH.deposit)
		r.Post("/withdraw", accountsH.withdraw)
	})

	r.Route("/bills", func(r chi.Router) {
		r.Post("/", tradingH.createBill)
		r.Get("/", tradingH.bills)
		r.Get("/active", tradingH.activeBills)
		r.Get("/{id}", tradingH.bill)
		r.Post("/{id}/buy", tradingH.buy)
		r.Get("/{id}/maturity-yield", tradingH.maturityYield)
	})

	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", tradingH.holdings)
		r.Get("/{id}/current-value", tradingH.currentValue)
		r.Get("/{id}/yield-projection", tradingH.yieldProjection)
	})

	r.Route("/deposits", func(r chi.Router) {
		r.Post("/notify", mintingH.notify)
		r.Post("/redeem", mintingH.redeem)
		r.Get("/", mintingH.deposits)
		r.Get("/stats", mintingH.stats)
		r.Get("/{id}", mintingH.deposit)
	})

	r.Route("/kyc", func(r chi.Router) {
		r.Post("/upload", kycH.upload)
		r.Get("/{uploadID}", kycH.status)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/kyc/review", kycH.review)
		r.Get("/kyc/pending", kycH.pending)
		r.Post("/kyc/status", kycH.overrideStatus)
		r.Post("/broker-purchases", tradingH.addBrokerPurchase)
		r.Put("/config", tradingH.updateConfig)
		r.Post("/authorized", adminH.grant)
		r.Get("/authorized", adminH.list)
	})

	r.Get("/broker-purchases", tradingH.brokerPurchases)
	r.Get("/config", tradingH.getConfig)
	r.Get("/stats/storage", adminH.storageStats)
	r.Get("/stats/trading", tradingH.tradingStats)

	if d.Registry != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	return r
}
