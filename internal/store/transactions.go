package store

import (
	"context"
	"strconv"

	"ustbills/internal/domain"
	"ustbills/pkg/platform/sentinel"
)

// Transactions is the append-only audit ledger of money movements. There is
// deliberately no Update or Remove.
type Transactions struct {
	t table[domain.Transaction]
}

func newTransactions(db *DB) (*Transactions, error) {
	t, err := newTable[domain.Transaction](db, regionTransactions)
	if err != nil {
		return nil, err
	}
	return &Transactions{t: t}, nil
}

func (tr *Transactions) Append(_ context.Context, txn domain.Transaction) error {
	n, err := strconv.ParseUint(txn.ID, 10, 64)
	if err != nil {
		return sentinel.ErrNotFound
	}
	return tr.t.insert(u64Key(n), txn)
}

func (tr *Transactions) Get(_ context.Context, id string) (domain.Transaction, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return domain.Transaction{}, sentinel.ErrNotFound
	}
	return tr.t.get(u64Key(n))
}

func (tr *Transactions) ByUser(_ context.Context, p domain.Principal) ([]domain.Transaction, error) {
	return tr.t.filter(func(txn domain.Transaction) bool {
		return txn.UserPrincipal == p
	})
}

func (tr *Transactions) Count() (uint64, error) { return tr.t.count() }
