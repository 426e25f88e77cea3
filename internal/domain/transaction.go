package domain

// TransactionType classifies a money movement.
type TransactionType string

const (
	TxDeposit           TransactionType = "deposit"
	TxWithdrawal        TransactionType = "withdrawal"
	TxPurchase          TransactionType = "purchase"
	TxSale              TransactionType = "sale"
	TxYieldDistribution TransactionType = "yield_distribution"
	TxFee               TransactionType = "fee"
)

// TransactionStatus is the settlement state of a transaction record.
type TransactionStatus string

const (
	TxCompleted TransactionStatus = "completed"
	TxPending   TransactionStatus = "pending"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is the immutable audit record of a money movement.
// Append-only; never updated or removed.
type Transaction struct {
	ID            string            `json:"id"`
	UserPrincipal Principal         `json:"user_principal"`
	Type          TransactionType   `json:"type"`
	Amount        uint64            `json:"amount"`
	Fees          uint64            `json:"fees"`
	USTBillID     *string           `json:"ustbill_id,omitempty"`
	HoldingID     *string           `json:"holding_id,omitempty"`
	Status        TransactionStatus `json:"status"`
	Timestamp     int64             `json:"timestamp"`
	Description   string            `json:"description"`
}
