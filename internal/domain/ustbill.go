package domain

// USTBillStatus is the lifecycle state of a bill offering.
//
//	Active → SoldOut → Matured
//	Active → Cancelled
type USTBillStatus string

const (
	BillActive    USTBillStatus = "active"
	BillSoldOut   USTBillStatus = "sold_out"
	BillMatured   USTBillStatus = "matured"
	BillCancelled USTBillStatus = "cancelled"
)

const secondsPerDay = 86_400

// USTBill is a Treasury Bill offering under the single-ownership model:
// a nil Owner means available, a set Owner means sold in its entirety.
// Invariant: Owner set implies Status == BillSoldOut, and Owner never
// reverts to nil.
type USTBill struct {
	ID            string        `json:"id"`
	CUSIP         string        `json:"cusip"`
	FaceValue     uint64        `json:"face_value"`     // cents
	PurchasePrice uint64        `json:"purchase_price"` // cents
	MaturityDate  int64         `json:"maturity_date"`  // unix seconds
	AnnualYield   float64       `json:"annual_yield"`   // 5.26% = 0.0526
	Owner         *Principal    `json:"owner,omitempty"`
	Status        USTBillStatus `json:"status"`
	Issuer        string        `json:"issuer"`
	BillType      string        `json:"bill_type"` // 4-week, 13-week, 26-week, 52-week
	CreatedAt     int64         `json:"created_at"`
	UpdatedAt     int64         `json:"updated_at"`
}

// IsAvailableForPurchase reports whether the bill can still be bought.
func (b *USTBill) IsAvailableForPurchase() bool {
	return b.Status == BillActive && b.Owner == nil
}

// IsOwnedBy reports whether principal holds this bill.
func (b *USTBill) IsOwnedBy(p Principal) bool {
	return b.Owner != nil && *b.Owner == p
}

// DaysToMaturity returns whole days until maturity, 0 once matured.
func (b *USTBill) DaysToMaturity(now int64) uint64 {
	if b.MaturityDate <= now {
		return 0
	}
	return uint64(b.MaturityDate-now) / secondsPerDay
}

// MaturityYield is the fixed yield realized at maturity: the discount between
// face value and purchase price.
func (b *USTBill) MaturityYield() uint64 {
	if b.FaceValue <= b.PurchasePrice {
		return 0
	}
	return b.FaceValue - b.PurchasePrice
}

// ProjectedYield computes simple-interest yield over the remaining term,
// truncated to whole cents: value × rate × days / 365.
func ProjectedYield(currentValue uint64, annualYield float64, daysToMaturity uint64) uint64 {
	return uint64(float64(currentValue) * annualYield * float64(daysToMaturity) / 365.0)
}

// YieldPercentage expresses projected yield relative to current value.
// Returns 0 when the current value is 0.
func YieldPercentage(projectedYield, currentValue uint64) float64 {
	if currentValue == 0 {
		return 0
	}
	return float64(projectedYield) / float64(currentValue) * 100.0
}

// AccruedValue returns purchase price plus simple-interest accrual for the
// days held so far, truncated to whole cents.
func AccruedValue(purchasePrice uint64, annualYield float64, daysHeld uint64) uint64 {
	accrued := uint64(float64(purchasePrice) * (annualYield / 365.0) * float64(daysHeld))
	return purchasePrice + accrued
}

// PurchaseFee is the platform fee on a purchase, rounded to the nearest cent.
func PurchaseFee(price uint64, feePercentage float64) uint64 {
	return uint64(float64(price)*feePercentage + 0.5)
}
