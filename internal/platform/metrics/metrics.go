// Package metrics registers the platform's Prometheus collectors. One
// Metrics value is created at startup and shared by every service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UsersRegistered prometheus.Counter
	BillsCreated    prometheus.Counter
	Purchases       prometheus.Counter
	PurchaseVolume  prometheus.Counter
	Deposits        *prometheus.CounterVec
	Redemptions     prometheus.Counter
	OracleFallbacks prometheus.Counter
}

// New registers collectors on reg. Pass prometheus.NewRegistry() in tests to
// avoid default-registry collisions.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "ustbills_users_registered_total",
			Help: "Users registered since process start.",
		}),
		BillsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ustbills_bills_created_total",
			Help: "Treasury bill offerings created.",
		}),
		Purchases: factory.NewCounter(prometheus.CounterOpts{
			Name: "ustbills_purchases_total",
			Help: "Completed bill purchases.",
		}),
		PurchaseVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "ustbills_purchase_volume_cents_total",
			Help: "Total purchase volume in cents.",
		}),
		Deposits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ustbills_deposits_total",
			Help: "ckBTC deposit pipeline outcomes.",
		}, []string{"outcome"}),
		Redemptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ustbills_redemptions_total",
			Help: "OUSG redemptions completed.",
		}),
		OracleFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ustbills_oracle_fallbacks_total",
			Help: "Times the BTC price fell back to the configured default.",
		}),
	}
}

// Deposit outcome labels.
const (
	OutcomeMinted   = "minted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeReplayed = "replayed"
)
