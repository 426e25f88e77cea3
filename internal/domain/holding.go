package domain

// HoldingStatus tracks a holding from purchase to maturity. Holdings are
// never deleted.
type HoldingStatus string

const (
	HoldingActive  HoldingStatus = "active"
	HoldingMatured HoldingStatus = "matured"
)

// TokenHolding is created atomically with a successful bill purchase and
// mutated only by valuation and maturity events.
type TokenHolding struct {
	ID             string        `json:"id"`
	UserPrincipal  Principal     `json:"user_principal"`
	USTBillID      string        `json:"ustbill_id"`
	PurchasePrice  uint64        `json:"purchase_price"`
	PurchaseDate   int64         `json:"purchase_date"`
	Status         HoldingStatus `json:"status"`
	CurrentValue   uint64        `json:"current_value"`
	ProjectedYield uint64        `json:"projected_yield"`
	TokenID        uint64        `json:"token_id"`
}

// DaysHeld returns whole days since purchase.
func (h *TokenHolding) DaysHeld(now int64) uint64 {
	if now <= h.PurchaseDate {
		return 0
	}
	return uint64(now-h.PurchaseDate) / secondsPerDay
}

// YieldProjection is the read-only yield view served per holding.
type YieldProjection struct {
	HoldingID       string  `json:"holding_id"`
	CurrentValue    uint64  `json:"current_value"`
	AnnualYieldRate float64 `json:"annual_yield_rate"`
	DaysToMaturity  uint64  `json:"days_to_maturity"`
	ProjectedYield  uint64  `json:"projected_yield"`
	YieldPercentage float64 `json:"yield_percentage"`
}
