package store

import (
	"context"

	"ustbills/internal/domain"
)

// Holdings is the TokenHolding repository. Holdings are created on purchase
// and never removed; only valuation and maturity events mutate them.
type Holdings struct {
	t table[domain.TokenHolding]
}

func newHoldings(db *DB) (*Holdings, error) {
	t, err := newTable[domain.TokenHolding](db, regionHoldings)
	if err != nil {
		return nil, err
	}
	return &Holdings{t: t}, nil
}

func (h *Holdings) Insert(_ context.Context, holding domain.TokenHolding) error {
	return h.t.insert([]byte(holding.ID), holding)
}

func (h *Holdings) Get(_ context.Context, id string) (domain.TokenHolding, error) {
	return h.t.get([]byte(id))
}

func (h *Holdings) Update(_ context.Context, holding domain.TokenHolding) error {
	return h.t.update([]byte(holding.ID), holding)
}

func (h *Holdings) ByUser(_ context.Context, p domain.Principal) ([]domain.TokenHolding, error) {
	return h.t.filter(func(holding domain.TokenHolding) bool {
		return holding.UserPrincipal == p
	})
}

func (h *Holdings) Count() (uint64, error) { return h.t.count() }
