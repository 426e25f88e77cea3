package domain

// Fixed-point scales and the OUSG unit-of-account.
const (
	CkBTCDecimals = 100_000_000 // 8-decimal fixed point (satoshi)
	OUSGDecimals  = 1_000_000   // 6-decimal fixed point
	OUSGUnitUSD   = 5000.0      // one whole OUSG token represents $5000
)

// DepositStatus is the pipeline state of a ckBTC deposit.
//
//	Pending → Validated → Processed
//	Pending → Failed
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositValidated DepositStatus = "validated"
	DepositProcessed DepositStatus = "processed"
	DepositFailed    DepositStatus = "failed"
)

// Deposit is a ckBTC-to-OUSG conversion request. A Failed deposit persists as
// the audit trail of the attempt; BlockIndex is globally unique across all
// processed deposits (enforced via the processed-deposit marker set).
type Deposit struct {
	ID          uint64        `json:"id"`
	Principal   Principal     `json:"principal"`
	CkBTCAmount uint64        `json:"ckbtc_amount"` // satoshi
	USDValue    float64       `json:"usd_value"`
	BTCPrice    float64       `json:"btc_price"` // USD/BTC snapshot
	BlockIndex  uint64        `json:"block_index"`
	Status      DepositStatus `json:"status"`
	OUSGMinted  uint64        `json:"ousg_minted"` // 6-decimal units
	CreatedAt   int64         `json:"created_at"`
	ProcessedAt *int64        `json:"processed_at,omitempty"`
}

// NewDeposit builds a deposit in Pending state.
func NewDeposit(id uint64, p Principal, ckbtcAmount uint64, usdValue, btcPrice float64, blockIndex uint64, now int64) Deposit {
	return Deposit{
		ID:          id,
		Principal:   p,
		CkBTCAmount: ckbtcAmount,
		USDValue:    usdValue,
		BTCPrice:    btcPrice,
		BlockIndex:  blockIndex,
		Status:      DepositPending,
		CreatedAt:   now,
	}
}

// OUSGToMint converts the deposit's USD value into 6-decimal OUSG units at
// the fixed $5000-per-token rate.
func (d *Deposit) OUSGToMint() uint64 {
	return uint64(d.USDValue / OUSGUnitUSD * OUSGDecimals)
}

// MarkValidated records a successful mint.
func (d *Deposit) MarkValidated(ousgMinted uint64, now int64) {
	d.Status = DepositValidated
	d.OUSGMinted = ousgMinted
	d.ProcessedAt = &now
}

// MarkFailed records a failed mint attempt, keeping the record for audit.
func (d *Deposit) MarkFailed(now int64) {
	d.Status = DepositFailed
	d.ProcessedAt = &now
}

// CkBTCToUSD converts a satoshi amount to USD at the given BTC price.
func CkBTCToUSD(ckbtcAmount uint64, btcPrice float64) float64 {
	return float64(ckbtcAmount) / CkBTCDecimals * btcPrice
}

// USDToCkBTC converts a USD amount to satoshi at the given BTC price.
func USDToCkBTC(usd, btcPrice float64) uint64 {
	if btcPrice <= 0 {
		return 0
	}
	return uint64(usd / btcPrice * CkBTCDecimals)
}

// OUSGToUSD converts 6-decimal OUSG units to their USD value.
func OUSGToUSD(ousgAmount uint64) float64 {
	return float64(ousgAmount) / OUSGDecimals * OUSGUnitUSD
}
