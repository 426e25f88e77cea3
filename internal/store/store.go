package store

import "fmt"

// Region names. Each logical table gets its own region so tables cannot
// corrupt each other.
const (
	regionUsers           = "users"
	regionBills           = "ustbills"
	regionHoldings        = "holdings"
	regionTransactions    = "transactions"
	regionDeposits        = "deposits"
	regionProcessed       = "processed_deposits"
	regionKYCSessions     = "kyc_sessions"
	regionBrokerPurchases = "broker_purchases"
	regionConfig          = "platform_config"
	regionMetrics         = "trading_metrics"
	regionCounter         = "id_counter"
	regionGuard           = "guard"
)

// Store bundles every repository over one database. It is the single owner of
// all durable state; entities reference each other by identifier only and are
// resolved through these repositories at use time.
type Store struct {
	db *DB

	Users           *Users
	Bills           *Bills
	Holdings        *Holdings
	Transactions    *Transactions
	Deposits        *Deposits
	Processed       *ProcessedDeposits
	KYCSessions     *KYCSessions
	BrokerPurchases *BrokerPurchases
	Config          *ConfigCell
	Metrics         *MetricsCell
	Counter         *Counter
	Guard           *GuardSet
}

// Open opens the database and initializes every region.
func Open(path string) (*Store, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initRegions(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init regions: %w", err)
	}
	return s, nil
}

func (s *Store) initRegions() error {
	var err error
	if s.Users, err = newUsers(s.db); err != nil {
		return err
	}
	if s.Bills, err = newBills(s.db); err != nil {
		return err
	}
	if s.Holdings, err = newHoldings(s.db); err != nil {
		return err
	}
	if s.Transactions, err = newTransactions(s.db); err != nil {
		return err
	}
	if s.Deposits, err = newDeposits(s.db); err != nil {
		return err
	}
	if s.Processed, err = newProcessedDeposits(s.db); err != nil {
		return err
	}
	if s.KYCSessions, err = newKYCSessions(s.db); err != nil {
		return err
	}
	if s.BrokerPurchases, err = newBrokerPurchases(s.db); err != nil {
		return err
	}
	if s.Config, err = newConfigCell(s.db); err != nil {
		return err
	}
	if s.Metrics, err = newMetricsCell(s.db); err != nil {
		return err
	}
	if s.Counter, err = newCounter(s.db); err != nil {
		return err
	}
	if s.Guard, err = newGuardSet(s.db); err != nil {
		return err
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Stats reports per-table entry counts for the storage stats endpoint.
func (s *Store) Stats() (map[string]uint64, error) {
	counts := map[string]func() (uint64, error){
		"users":              s.Users.Count,
		"ustbills":           s.Bills.Count,
		"holdings":           s.Holdings.Count,
		"transactions":       s.Transactions.Count,
		"deposits":           s.Deposits.Count,
		"processed_deposits": s.Processed.Count,
		"kyc_sessions":       s.KYCSessions.Count,
		"broker_purchases":   s.BrokerPurchases.Count,
	}
	out := make(map[string]uint64, len(counts))
	for name, fn := range counts {
		n, err := fn()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		out[name] = n
	}
	return out, nil
}
