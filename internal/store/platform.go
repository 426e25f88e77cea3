package store

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"

	"ustbills/internal/domain"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/sentinel"
)

var cellKey = []byte("value")

// ConfigCell is the singleton platform configuration row.
type ConfigCell struct {
	t table[domain.PlatformConfig]
}

func newConfigCell(db *DB) (*ConfigCell, error) {
	t, err := newTable[domain.PlatformConfig](db, regionConfig)
	if err != nil {
		return nil, err
	}
	return &ConfigCell{t: t}, nil
}

// Get returns the stored configuration, falling back to defaults when the
// cell has never been written.
func (c *ConfigCell) Get(_ context.Context) (domain.PlatformConfig, error) {
	cfg, err := c.t.get(cellKey)
	if err == sentinel.ErrNotFound {
		return domain.DefaultPlatformConfig(), nil
	}
	return cfg, err
}

func (c *ConfigCell) Set(_ context.Context, cfg domain.PlatformConfig) error {
	return c.t.put(cellKey, cfg)
}

// MetricsCell is the singleton trading metrics row.
type MetricsCell struct {
	t table[domain.TradingMetrics]
}

func newMetricsCell(db *DB) (*MetricsCell, error) {
	t, err := newTable[domain.TradingMetrics](db, regionMetrics)
	if err != nil {
		return nil, err
	}
	return &MetricsCell{t: t}, nil
}

func (m *MetricsCell) Get(_ context.Context) (domain.TradingMetrics, error) {
	metrics, err := m.t.get(cellKey)
	if err == sentinel.ErrNotFound {
		return domain.TradingMetrics{}, nil
	}
	return metrics, err
}

func (m *MetricsCell) Set(_ context.Context, metrics domain.TradingMetrics) error {
	return m.t.put(cellKey, metrics)
}

// BrokerPurchases is the append-only verified broker purchase ledger.
type BrokerPurchases struct {
	t table[domain.VerifiedBrokerPurchase]
}

func newBrokerPurchases(db *DB) (*BrokerPurchases, error) {
	t, err := newTable[domain.VerifiedBrokerPurchase](db, regionBrokerPurchases)
	if err != nil {
		return nil, err
	}
	return &BrokerPurchases{t: t}, nil
}

// Append records a purchase under the bucket's own sequence. Minting the key
// and writing the row happen in one transaction, so concurrent appends never
// collide.
func (b *BrokerPurchases) Append(_ context.Context, p domain.VerifiedBrokerPurchase) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode record")
	}
	return b.t.region.update(func(bk *bbolt.Bucket) error {
		seq, err := bk.NextSequence()
		if err != nil {
			return err
		}
		return bk.Put(u64Key(seq), raw)
	})
}

func (b *BrokerPurchases) All(_ context.Context) ([]domain.VerifiedBrokerPurchase, error) {
	return b.t.filter(nil)
}

func (b *BrokerPurchases) Count() (uint64, error) { return b.t.count() }

// Counter mints the monotonic IDs used as primary keys throughout the
// ledger. The increment is a single bolt transaction, so IDs survive
// restarts without reuse.
type Counter struct {
	region *Region
}

func newCounter(db *DB) (*Counter, error) {
	r, err := db.Region(regionCounter)
	if err != nil {
		return nil, err
	}
	return &Counter{region: r}, nil
}

// Next returns the current counter value and advances it.
func (c *Counter) Next() (uint64, error) {
	var id uint64
	err := c.region.update(func(b *bbolt.Bucket) error {
		if raw := b.Get(cellKey); raw != nil {
			id = binary.BigEndian.Uint64(raw)
		}
		return b.Put(cellKey, u64Key(id+1))
	})
	return id, err
}

// GuardSet is the durable authorization allow-list. Growth is monotonic: no
// removal is exposed.
type GuardSet struct {
	region *Region
}

func newGuardSet(db *DB) (*GuardSet, error) {
	r, err := db.Region(regionGuard)
	if err != nil {
		return nil, err
	}
	return &GuardSet{region: r}, nil
}

func (g *GuardSet) Add(_ context.Context, p domain.Principal) error {
	_, err := g.region.Put([]byte(p), []byte{1})
	return err
}

func (g *GuardSet) Contains(_ context.Context, p domain.Principal) (bool, error) {
	_, err := g.region.Get([]byte(p))
	if err == sentinel.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GuardSet) List(_ context.Context) ([]domain.Principal, error) {
	var out []domain.Principal
	err := g.region.ForEach(func(key, _ []byte) error {
		out = append(out, domain.Principal(key))
		return nil
	})
	return out, err
}

func (g *GuardSet) Count() (uint64, error) { return g.region.Len() }
