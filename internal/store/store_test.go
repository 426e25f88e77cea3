package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"ustbills/internal/domain"
	"ustbills/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	path  string
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "ledger.db")
	st, err := Open(s.path)
	s.Require().NoError(err)
	s.store = st
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

// reopen closes the database and opens it again at the same path, simulating
// a process restart.
func (s *StoreSuite) reopen() {
	s.Require().NoError(s.store.Close())
	st, err := Open(s.path)
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreSuite) newUser(p domain.Principal) domain.User {
	return domain.User{
		Principal:          p,
		Email:              "alice@example.com",
		Country:            "US",
		KYCStatus:          domain.KYCPending,
		IsActive:           true,
		CreatedAt:          1_700_000_000,
		UpdatedAt:          1_700_000_000,
		MaxInvestmentLimit: 1_000_000_000,
	}
}

// TestUserRepository verifies user CRUD and its error surface.
func (s *StoreSuite) TestUserRepository() {
	s.Run("insert then get round-trips the record", func() {
		u := s.newUser("aaaaa-aa")
		s.Require().NoError(s.store.Users.Insert(s.ctx, u))

		got, err := s.store.Users.Get(s.ctx, "aaaaa-aa")
		s.Require().NoError(err)
		s.Equal(u, got)
	})

	s.Run("duplicate insert conflicts", func() {
		u := s.newUser("bbbbb-bb")
		s.Require().NoError(s.store.Users.Insert(s.ctx, u))
		s.ErrorIs(s.store.Users.Insert(s.ctx, u), sentinel.ErrConflict)
	})

	s.Run("get unknown principal is not found", func() {
		_, err := s.store.Users.Get(s.ctx, "zzzzz-zz")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("update requires an existing record", func() {
		u := s.newUser("ccccc-cc")
		s.ErrorIs(s.store.Users.Update(s.ctx, u), sentinel.ErrNotFound)

		s.Require().NoError(s.store.Users.Insert(s.ctx, u))
		u.WalletBalance = 5_000
		s.Require().NoError(s.store.Users.Update(s.ctx, u))

		got, err := s.store.Users.Get(s.ctx, "ccccc-cc")
		s.Require().NoError(err)
		s.Equal(uint64(5_000), got.WalletBalance)
	})
}

// TestUserApply verifies the atomic read-modify-write: the mutation always
// runs against the stored record, and an error from the mutation aborts the
// write.
func (s *StoreSuite) TestUserApply() {
	s.Require().NoError(s.store.Users.Insert(s.ctx, s.newUser("aaaaa-aa")))

	s.Run("mutation commits against the stored record", func() {
		// Another handler commits a wallet credit after our snapshot read.
		credited, err := s.store.Users.Get(s.ctx, "aaaaa-aa")
		s.Require().NoError(err)
		credited.WalletBalance = 50_000
		s.Require().NoError(s.store.Users.Update(s.ctx, credited))

		got, err := s.store.Users.Apply(s.ctx, "aaaaa-aa", func(u *domain.User) error {
			u.TotalInvested += 1_000_000
			return nil
		})
		s.Require().NoError(err)
		s.Equal(uint64(50_000), got.WalletBalance)
		s.Equal(uint64(1_000_000), got.TotalInvested)
	})

	s.Run("mutation error aborts the write", func() {
		_, err := s.store.Users.Apply(s.ctx, "aaaaa-aa", func(u *domain.User) error {
			u.WalletBalance = 0
			return errors.New("veto")
		})
		s.Error(err)

		got, err := s.store.Users.Get(s.ctx, "aaaaa-aa")
		s.Require().NoError(err)
		s.Equal(uint64(50_000), got.WalletBalance)
	})

	s.Run("unknown principal is not found", func() {
		_, err := s.store.Users.Apply(s.ctx, "zzzzz-zz", func(*domain.User) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestBillIteration verifies ascending ID order and the active filter.
func (s *StoreSuite) TestBillIteration() {
	insert := func(id string, status domain.USTBillStatus) {
		s.Require().NoError(s.store.Bills.Insert(s.ctx, domain.USTBill{
			ID:            id,
			CUSIP:         "912796YK7",
			FaceValue:     100_000,
			PurchasePrice: 95_000,
			MaturityDate:  2_000_000_000,
			AnnualYield:   0.05,
			Status:        status,
		}))
	}
	insert("10", domain.BillActive)
	insert("2", domain.BillSoldOut)
	insert("1", domain.BillActive)

	s.Run("all bills come back in numeric ID order", func() {
		bills, err := s.store.Bills.All(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(bills, 3)
		s.Equal("1", bills[0].ID)
		s.Equal("2", bills[1].ID)
		s.Equal("10", bills[2].ID)
	})

	s.Run("active filter excludes sold bills", func() {
		active, err := s.store.Bills.Active(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(active, 2)
		s.Equal("1", active[0].ID)
		s.Equal("10", active[1].ID)
	})
}

// TestDurability verifies that committed state survives a reopen.
func (s *StoreSuite) TestDurability() {
	u := s.newUser("ddddd-dd")
	s.Require().NoError(s.store.Users.Insert(s.ctx, u))
	s.Require().NoError(s.store.Guard.Add(s.ctx, "admin-1"))

	s.reopen()

	got, err := s.store.Users.Get(s.ctx, "ddddd-dd")
	s.Require().NoError(err)
	s.Equal(u.Email, got.Email)

	ok, err := s.store.Guard.Contains(s.ctx, "admin-1")
	s.Require().NoError(err)
	s.True(ok)
}

// TestCounter verifies monotonic IDs across restarts.
func (s *StoreSuite) TestCounter() {
	first, err := s.store.Counter.Next()
	s.Require().NoError(err)
	s.Equal(uint64(0), first)

	second, err := s.store.Counter.Next()
	s.Require().NoError(err)
	s.Equal(uint64(1), second)

	s.reopen()

	third, err := s.store.Counter.Next()
	s.Require().NoError(err)
	s.Equal(uint64(2), third)
}

// TestProcessedDepositMarkers verifies first-writer-wins replay protection.
func (s *StoreSuite) TestProcessedDepositMarkers() {
	s.Require().NoError(s.store.Processed.Mark(s.ctx, 42, "aaaaa-aa"))

	err := s.store.Processed.Mark(s.ctx, 42, "bbbbb-bb")
	s.ErrorIs(err, sentinel.ErrConflict)

	ok, err := s.store.Processed.Contains(s.ctx, 42)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.Processed.Contains(s.ctx, 43)
	s.Require().NoError(err)
	s.False(ok)
}

// TestConfigAndMetricsCells verifies default fallback and persistence of the
// singleton rows.
func (s *StoreSuite) TestConfigAndMetricsCells() {
	s.Run("config defaults when never written", func() {
		cfg, err := s.store.Config.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(domain.DefaultPlatformConfig(), cfg)
	})

	s.Run("config set persists", func() {
		cfg := domain.DefaultPlatformConfig()
		cfg.PlatformFeePercentage = 0.01
		s.Require().NoError(s.store.Config.Set(s.ctx, cfg))

		got, err := s.store.Config.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(0.01, got.PlatformFeePercentage)
	})

	s.Run("metrics zero value when never written", func() {
		m, err := s.store.Metrics.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(domain.TradingMetrics{}, m)
	})

	s.Run("metrics fold persists across reopen", func() {
		m, err := s.store.Metrics.Get(s.ctx)
		s.Require().NoError(err)
		m.RecordPurchase(95_000, 1_700_000_000)
		s.Require().NoError(s.store.Metrics.Set(s.ctx, m))

		s.reopen()

		got, err := s.store.Metrics.Get(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(1), got.TotalTransactions)
		s.Equal(uint64(95_000), got.TotalVolume)
	})
}

// TestBrokerPurchaseLedger verifies append-only keys never collide and the
// sequence survives a reopen.
func (s *StoreSuite) TestBrokerPurchaseLedger() {
	add := func(txn string) {
		s.Require().NoError(s.store.BrokerPurchases.Append(s.ctx, domain.VerifiedBrokerPurchase{
			Amount:      100_000,
			Price:       95_000,
			BrokerTxnID: txn,
			Timestamp:   1_700_000_000,
		}))
	}
	add("broker-1")
	add("broker-2")

	s.reopen()
	add("broker-3")

	all, err := s.store.BrokerPurchases.All(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("broker-1", all[0].BrokerTxnID)
	s.Equal("broker-2", all[1].BrokerTxnID)
	s.Equal("broker-3", all[2].BrokerTxnID)
}

// TestGuardSet verifies idempotent adds and ascending listing.
func (s *StoreSuite) TestGuardSet() {
	s.Require().NoError(s.store.Guard.Add(s.ctx, "b-principal"))
	s.Require().NoError(s.store.Guard.Add(s.ctx, "a-principal"))
	s.Require().NoError(s.store.Guard.Add(s.ctx, "a-principal"))

	list, err := s.store.Guard.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]domain.Principal{"a-principal", "b-principal"}, list)

	n, err := s.store.Guard.Count()
	s.Require().NoError(err)
	s.Equal(uint64(2), n)
}

// TestKYCSessions verifies upsert semantics and the pending-review view.
func (s *StoreSuite) TestKYCSessions() {
	session := domain.FreeKYCSession{
		UserPrincipal: "aaaaa-aa",
		Status:        domain.KYCSessionProcessing,
		CreatedAt:     1_700_000_000,
	}
	s.Require().NoError(s.store.KYCSessions.Put(s.ctx, "aaaaa-aa", session))

	s.Run("re-upload replaces the session", func() {
		session.Status = domain.KYCSessionPendingReview
		s.Require().NoError(s.store.KYCSessions.Put(s.ctx, "aaaaa-aa", session))

		got, err := s.store.KYCSessions.Get(s.ctx, "aaaaa-aa")
		s.Require().NoError(err)
		s.Equal(domain.KYCSessionPendingReview, got.Status)
	})

	s.Run("pending reviews lists waiting sessions in upload order", func() {
		s.Require().NoError(s.store.KYCSessions.Put(s.ctx, "bbbbb-bb", domain.FreeKYCSession{
			UserPrincipal: "bbbbb-bb",
			Status:        domain.KYCSessionAutoApproved,
		}))
		s.Require().NoError(s.store.KYCSessions.Put(s.ctx, "ccccc-cc", domain.FreeKYCSession{
			UserPrincipal: "ccccc-cc",
			Status:        domain.KYCSessionPendingReview,
		}))

		pending, err := s.store.KYCSessions.PendingReviews(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(pending, 2)
		s.Equal("aaaaa-aa", pending[0].UploadID)
		s.Equal("ccccc-cc", pending[1].UploadID)
	})
}

// TestStats verifies the per-table counts used by the storage stats endpoint.
func (s *StoreSuite) TestStats() {
	s.Require().NoError(s.store.Users.Insert(s.ctx, s.newUser("aaaaa-aa")))
	s.Require().NoError(s.store.Transactions.Append(s.ctx, domain.Transaction{
		ID:            "0",
		UserPrincipal: "aaaaa-aa",
		Type:          domain.TxDeposit,
		Amount:        1_000,
		Status:        domain.TxCompleted,
	}))

	stats, err := s.store.Stats()
	s.Require().NoError(err)
	s.Equal(uint64(1), stats["users"])
	s.Equal(uint64(1), stats["transactions"])
	s.Equal(uint64(0), stats["deposits"])
}
