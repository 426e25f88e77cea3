package domain

// PlatformConfig is the singleton operating configuration, mutable only by
// privileged callers.
type PlatformConfig struct {
	PlatformFeePercentage      float64 `json:"platform_fee_percentage"` // 0.5% = 0.005
	MinimumInvestment          uint64  `json:"minimum_investment"`      // cents
	MaximumInvestment          uint64  `json:"maximum_investment"`      // cents
	YieldDistributionFrequency uint64  `json:"yield_distribution_frequency"` // days
	KYCExpiryDays              uint64  `json:"kyc_expiry_days"`
	TreasuryAPIRefreshInterval uint64  `json:"treasury_api_refresh_interval"` // seconds
}

// DefaultPlatformConfig returns the bootstrap configuration.
func DefaultPlatformConfig() PlatformConfig {
	return PlatformConfig{
		PlatformFeePercentage:      0.005,     // 0.5%
		MinimumInvestment:          100,       // $1
		MaximumInvestment:          1_000_000, // $10,000
		YieldDistributionFrequency: 1,
		KYCExpiryDays:              365,
		TreasuryAPIRefreshInterval: 3600,
	}
}

// Validate rejects configurations that would wedge the trading path.
func (c PlatformConfig) Validate() error {
	if c.PlatformFeePercentage < 0 || c.PlatformFeePercentage >= 1 {
		return errInvalidConfig("platform_fee_percentage must be in [0, 1)")
	}
	if c.MinimumInvestment == 0 || c.MaximumInvestment < c.MinimumInvestment {
		return errInvalidConfig("investment bounds must satisfy 0 < min <= max")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errInvalidConfig(msg string) error { return configError(msg) }

// TradingMetrics is the singleton rolling aggregate updated after every
// completed purchase.
type TradingMetrics struct {
	TotalVolume       uint64 `json:"total_volume"`
	TotalTransactions uint64 `json:"total_transactions"`
	AveragePrice      uint64 `json:"average_price"`
	HighestPrice      uint64 `json:"highest_price"`
	LowestPrice       uint64 `json:"lowest_price"`
	LastUpdated       int64  `json:"last_updated"`
}

// RecordPurchase folds one completed purchase into the aggregate.
func (m *TradingMetrics) RecordPurchase(price uint64, now int64) {
	if m.TotalTransactions == 0 {
		m.AveragePrice = price
	} else {
		m.AveragePrice = (m.AveragePrice*m.TotalTransactions + price) / (m.TotalTransactions + 1)
	}
	if m.HighestPrice == 0 || price > m.HighestPrice {
		m.HighestPrice = price
	}
	if m.LowestPrice == 0 || price < m.LowestPrice {
		m.LowestPrice = price
	}
	m.TotalVolume += price
	m.TotalTransactions++
	m.LastUpdated = now
}

// VerifiedBrokerPurchase is an append-only inventory record of a bill batch
// acquired through the external broker.
type VerifiedBrokerPurchase struct {
	Amount      uint64 `json:"amount"`
	Price       uint64 `json:"price"`
	Timestamp   int64  `json:"timestamp"`
	BrokerTxnID string `json:"broker_txn_id"`
	USTBillType string `json:"ustbill_type"`
}
