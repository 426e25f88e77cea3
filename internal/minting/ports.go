package minting

import (
	"context"

	"ustbills/internal/domain"
)

// RateOracle quotes an exchange rate for a currency pair.
type RateOracle interface {
	GetRate(ctx context.Context, base, quote string) (float64, error)
}

// LedgerTransfer is the verifier's view of one ckBTC ledger entry.
type LedgerTransfer struct {
	From       domain.Principal
	To         domain.Principal
	Amount     uint64 // satoshi
	IsTransfer bool
}

// LedgerVerifier reads the ckBTC ledger to confirm that a claimed deposit
// actually happened.
type LedgerVerifier interface {
	GetTransaction(ctx context.Context, blockIndex uint64) (LedgerTransfer, error)
}

// TokenLedger mints and burns OUSG. Transfer moves 6-decimal units to the
// destination account and returns the resulting ledger block index.
type TokenLedger interface {
	Transfer(ctx context.Context, to domain.Principal, amount uint64) (uint64, error)
}
