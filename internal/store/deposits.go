package store

import (
	"context"

	"ustbills/internal/domain"
	"ustbills/pkg/platform/sentinel"
)

// Deposits is the ckBTC deposit repository, keyed by counter-minted ID.
type Deposits struct {
	t table[domain.Deposit]
}

func newDeposits(db *DB) (*Deposits, error) {
	t, err := newTable[domain.Deposit](db, regionDeposits)
	if err != nil {
		return nil, err
	}
	return &Deposits{t: t}, nil
}

func (d *Deposits) Insert(_ context.Context, dep domain.Deposit) error {
	return d.t.insert(u64Key(dep.ID), dep)
}

func (d *Deposits) Get(_ context.Context, id uint64) (domain.Deposit, error) {
	return d.t.get(u64Key(id))
}

func (d *Deposits) Update(_ context.Context, dep domain.Deposit) error {
	return d.t.update(u64Key(dep.ID), dep)
}

func (d *Deposits) ByUser(_ context.Context, p domain.Principal) ([]domain.Deposit, error) {
	return d.t.filter(func(dep domain.Deposit) bool {
		return dep.Principal == p
	})
}

// Pending returns deposits that never reached a terminal state; the
// reconciler reports these when they are older than its threshold.
func (d *Deposits) Pending(_ context.Context) ([]domain.Deposit, error) {
	return d.t.filter(func(dep domain.Deposit) bool {
		return dep.Status == domain.DepositPending
	})
}

func (d *Deposits) All(_ context.Context) ([]domain.Deposit, error) {
	return d.t.filter(nil)
}

func (d *Deposits) Count() (uint64, error) { return d.t.count() }

// ProcessedDeposits is the replay-protection marker set: one entry per ckBTC
// ledger block index that has ever been credited. Insertion is
// first-writer-wins inside a single bolt transaction, which closes the window
// between a pipeline's pre-mint check and its post-mint commit.
type ProcessedDeposits struct {
	region *Region
}

func newProcessedDeposits(db *DB) (*ProcessedDeposits, error) {
	r, err := db.Region(regionProcessed)
	if err != nil {
		return nil, err
	}
	return &ProcessedDeposits{region: r}, nil
}

// Mark records blockIndex as processed by p. Returns sentinel.ErrConflict if
// some call already marked it.
func (pd *ProcessedDeposits) Mark(_ context.Context, blockIndex uint64, p domain.Principal) error {
	return pd.region.PutIfAbsent(u64Key(blockIndex), []byte(p))
}

func (pd *ProcessedDeposits) Contains(_ context.Context, blockIndex uint64) (bool, error) {
	_, err := pd.region.Get(u64Key(blockIndex))
	if err == sentinel.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (pd *ProcessedDeposits) Count() (uint64, error) { return pd.region.Len() }
