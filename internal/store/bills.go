package store

import (
	"context"
	"strconv"

	"ustbills/internal/domain"
	"ustbills/pkg/platform/sentinel"
)

// Bills is the USTBill repository. Bill IDs are decimal strings minted by the
// counter; keys are stored big-endian so pagination walks bills in creation
// order.
type Bills struct {
	t table[domain.USTBill]
}

func newBills(db *DB) (*Bills, error) {
	t, err := newTable[domain.USTBill](db, regionBills)
	if err != nil {
		return nil, err
	}
	return &Bills{t: t}, nil
}

func billKey(id string) ([]byte, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	return u64Key(n), nil
}

func (b *Bills) Insert(_ context.Context, bill domain.USTBill) error {
	key, err := billKey(bill.ID)
	if err != nil {
		return err
	}
	return b.t.insert(key, bill)
}

func (b *Bills) Get(_ context.Context, id string) (domain.USTBill, error) {
	key, err := billKey(id)
	if err != nil {
		return domain.USTBill{}, err
	}
	return b.t.get(key)
}

func (b *Bills) Update(_ context.Context, bill domain.USTBill) error {
	key, err := billKey(bill.ID)
	if err != nil {
		return err
	}
	return b.t.update(key, bill)
}

func (b *Bills) All(_ context.Context) ([]domain.USTBill, error) {
	return b.t.filter(nil)
}

// Active returns bills still open for purchase, in creation order.
func (b *Bills) Active(_ context.Context) ([]domain.USTBill, error) {
	return b.t.filter(func(bill domain.USTBill) bool {
		return bill.IsAvailableForPurchase()
	})
}

func (b *Bills) Count() (uint64, error) { return b.t.count() }
