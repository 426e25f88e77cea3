package trading

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ustbills/internal/domain"
	"ustbills/internal/guard"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/requestcontext"
)

const testNow = int64(1_700_000_000)

type TradingSuite struct {
	suite.Suite
	store *store.Store
	svc   *Service

	userCtx  context.Context
	adminCtx context.Context
}

func (s *TradingSuite) SetupTest() {
	st, err := store.Open(filepath.Join(s.T().TempDir(), "ledger.db"))
	s.Require().NoError(err)
	s.store = st

	g := guard.NewService(st.Guard)
	s.Require().NoError(g.Seed(context.Background(), []domain.Principal{"admin-1"}))
	s.svc = NewService(st, g)

	at := time.Unix(testNow, 0)
	s.userCtx = requestcontext.WithTime(requestcontext.WithCaller(context.Background(), "aaaaa-aa"), at)
	s.adminCtx = requestcontext.WithTime(requestcontext.WithCaller(context.Background(), "admin-1"), at)

	s.Require().NoError(st.Users.Insert(context.Background(), domain.User{
		Principal:     "aaaaa-aa",
		Email:         "alice@example.com",
		Country:       "US",
		KYCStatus:     domain.KYCVerified,
		KYCTier:       1,
		IsActive:      true,
		WalletBalance: 200_000,
	}))
}

func (s *TradingSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func TestTradingSuite(t *testing.T) {
	suite.Run(t, new(TradingSuite))
}

func (s *TradingSuite) billRequest() CreateBillRequest {
	return CreateBillRequest{
		CUSIP:         "912796YK7",
		FaceValue:     100_000,
		PurchasePrice: 95_000,
		MaturityDate:  testNow + 365*86_400,
		AnnualYield:   0.05,
		Issuer:        "US Treasury",
		BillType:      "52-week",
	}
}

func (s *TradingSuite) createBill() domain.USTBill {
	bill, err := s.svc.CreateBill(s.adminCtx, s.billRequest())
	s.Require().NoError(err)
	return bill
}

// TestCreateBill verifies admin gating and the offering validation rules.
func (s *TradingSuite) TestCreateBill() {
	s.Run("admin creates an active bill", func() {
		bill := s.createBill()
		s.Equal(domain.BillActive, bill.Status)
		s.Nil(bill.Owner)
	})

	s.Run("non-admin cannot create", func() {
		_, err := s.svc.CreateBill(s.userCtx, s.billRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("validation rejects malformed offerings", func() {
		cases := []struct {
			name   string
			mutate func(*CreateBillRequest)
		}{
			{"short cusip", func(r *CreateBillRequest) { r.CUSIP = "912796" }},
			{"lowercase cusip", func(r *CreateBillRequest) { r.CUSIP = "912796yk7" }},
			{"zero yield", func(r *CreateBillRequest) { r.AnnualYield = 0 }},
			{"yield of one", func(r *CreateBillRequest) { r.AnnualYield = 1 }},
			{"past maturity", func(r *CreateBillRequest) { r.MaturityDate = testNow - 1 }},
			{"zero price", func(r *CreateBillRequest) { r.PurchasePrice = 0 }},
			{"face below price", func(r *CreateBillRequest) { r.FaceValue = 90_000 }},
		}
		for _, tc := range cases {
			req := s.billRequest()
			tc.mutate(&req)
			_, err := s.svc.CreateBill(s.adminCtx, req)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), tc.name)
		}
	})
}

// TestBuyBill verifies the happy path and every ordered precondition.
func (s *TradingSuite) TestBuyBill() {
	bill := s.createBill()

	s.Run("purchase transfers ownership and records everything", func() {
		result, err := s.svc.BuyBill(s.userCtx, bill.ID)
		s.Require().NoError(err)
		s.Equal(uint64(475), result.Fee) // 95_000 × 0.005
		s.Equal(uint64(95_475), result.TotalDebited)

		user, err := s.store.Users.Get(context.Background(), "aaaaa-aa")
		s.Require().NoError(err)
		s.Equal(uint64(200_000-95_475), user.WalletBalance)
		s.Equal(uint64(95_000), user.TotalInvested)

		sold, err := s.svc.GetBill(s.userCtx, bill.ID)
		s.Require().NoError(err)
		s.Equal(domain.BillSoldOut, sold.Status)
		s.Require().NotNil(sold.Owner)
		s.Equal(domain.Principal("aaaaa-aa"), *sold.Owner)

		s.Equal(domain.HoldingActive, result.Holding.Status)
		s.Equal(uint64(95_000), result.Holding.CurrentValue)
		s.Equal(uint64(4_750), result.Holding.ProjectedYield) // 95_000 × 0.05 × 365/365

		txns, err := s.store.Transactions.ByUser(context.Background(), "aaaaa-aa")
		s.Require().NoError(err)
		s.Require().Len(txns, 2)
		s.Equal(domain.TxPurchase, txns[0].Type)
		s.Equal(domain.TxFee, txns[1].Type)

		tm, err := s.svc.Metrics(s.userCtx)
		s.Require().NoError(err)
		s.Equal(uint64(1), tm.TotalTransactions)
		s.Equal(uint64(95_000), tm.TotalVolume)
		s.Equal(uint64(95_000), tm.AveragePrice)
	})

	s.Run("a sold bill cannot be bought again", func() {
		_, err := s.svc.BuyBill(s.userCtx, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})
}

// TestBuyBillPreconditions covers the rejection order before any write.
func (s *TradingSuite) TestBuyBillPreconditions() {
	bill := s.createBill()

	s.Run("anonymous caller", func() {
		anon := requestcontext.WithCaller(context.Background(), domain.Anonymous)
		_, err := s.svc.BuyBill(anon, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeAnonymousCaller))
	})

	s.Run("unregistered caller", func() {
		stranger := requestcontext.WithCaller(context.Background(), "zzzzz-zz")
		_, err := s.svc.BuyBill(stranger, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unverified user cannot trade", func() {
		s.Require().NoError(s.store.Users.Insert(context.Background(), domain.User{
			Principal: "bbbbb-bb", KYCStatus: domain.KYCPending, IsActive: true, WalletBalance: 200_000,
		}))
		other := requestcontext.WithCaller(context.Background(), "bbbbb-bb")
		_, err := s.svc.BuyBill(other, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("unknown bill", func() {
		_, err := s.svc.BuyBill(s.userCtx, "999")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("insufficient balance leaves no writes", func() {
		user, err := s.store.Users.Get(context.Background(), "aaaaa-aa")
		s.Require().NoError(err)
		user.WalletBalance = 100
		s.Require().NoError(s.store.Users.Update(context.Background(), user))

		_, err = s.svc.BuyBill(s.userCtx, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

		fresh, err := s.svc.GetBill(s.userCtx, bill.ID)
		s.Require().NoError(err)
		s.Equal(domain.BillActive, fresh.Status)
		n, err := s.store.Holdings.Count()
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("price outside investment bounds", func() {
		cfg := domain.DefaultPlatformConfig()
		cfg.MaximumInvestment = 10_000
		s.Require().NoError(s.store.Config.Set(context.Background(), cfg))

		_, err := s.svc.BuyBill(s.userCtx, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestPagination covers the 0-based page math and its edges.
func (s *TradingSuite) TestPagination() {
	for i := 0; i < 5; i++ {
		s.createBill()
	}

	s.Run("first page", func() {
		page, err := s.svc.GetBillsPaginated(s.userCtx, 0, 2)
		s.Require().NoError(err)
		s.Len(page.Bills, 2)
		s.Equal(uint64(5), page.Total)
		s.True(page.HasNext)
	})

	s.Run("last partial page", func() {
		page, err := s.svc.GetBillsPaginated(s.userCtx, 2, 2)
		s.Require().NoError(err)
		s.Len(page.Bills, 1)
		s.False(page.HasNext)
	})

	s.Run("page beyond the end is empty", func() {
		page, err := s.svc.GetBillsPaginated(s.userCtx, 10, 2)
		s.Require().NoError(err)
		s.Empty(page.Bills)
		s.False(page.HasNext)
	})

	s.Run("oversized per_page is rejected", func() {
		_, err := s.svc.GetBillsPaginated(s.userCtx, 0, 1_000)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestYieldViews covers valuation and projection for a held bill.
func (s *TradingSuite) TestYieldViews() {
	bill := s.createBill()
	result, err := s.svc.BuyBill(s.userCtx, bill.ID)
	s.Require().NoError(err)
	holdingID := result.Holding.ID

	s.Run("current value accrues with days held", func() {
		later := requestcontext.WithTime(s.userCtx, time.Unix(testNow+182*86_400, 0))
		value, err := s.svc.CalculateCurrentValue(later, holdingID)
		s.Require().NoError(err)
		s.Equal(uint64(97_368), value) // 95_000 + trunc(95_000 × 0.05/365 × 182)

		stored, err := s.store.Holdings.Get(context.Background(), holdingID)
		s.Require().NoError(err)
		s.Equal(uint64(97_368), stored.CurrentValue)
	})

	s.Run("yield projection for the remaining term", func() {
		proj, err := s.svc.GetYieldProjection(s.userCtx, holdingID)
		s.Require().NoError(err)
		s.Equal(uint64(365), proj.DaysToMaturity)
		s.Equal(0.05, proj.AnnualYieldRate)
		s.NotZero(proj.ProjectedYield)
	})

	s.Run("another user cannot read the holding", func() {
		s.Require().NoError(s.store.Users.Insert(context.Background(), domain.User{
			Principal: "bbbbb-bb", KYCStatus: domain.KYCVerified, IsActive: true,
		}))
		other := requestcontext.WithCaller(context.Background(), "bbbbb-bb")
		_, err := s.svc.GetYieldProjection(other, holdingID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// TestMaturityYield verifies the maturity gate.
func (s *TradingSuite) TestMaturityYield() {
	bill := s.createBill()

	s.Run("before maturity is a state error", func() {
		_, err := s.svc.CalculateMaturityYield(s.userCtx, bill.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("at maturity returns the discount", func() {
		matured := requestcontext.WithTime(s.userCtx, time.Unix(testNow+366*86_400, 0))
		yield, err := s.svc.CalculateMaturityYield(matured, bill.ID)
		s.Require().NoError(err)
		s.Equal(uint64(5_000), yield)
	})
}

// TestBrokerPurchases verifies the admin inventory ledger.
func (s *TradingSuite) TestBrokerPurchases() {
	purchase := domain.VerifiedBrokerPurchase{
		Amount:      10,
		Price:       950_000,
		BrokerTxnID: "BRK-001",
		USTBillType: "13-week",
	}

	s.Run("non-admin cannot record", func() {
		err := s.svc.AddBrokerPurchase(s.userCtx, purchase)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admin records and lists in order", func() {
		s.Require().NoError(s.svc.AddBrokerPurchase(s.adminCtx, purchase))
		second := purchase
		second.BrokerTxnID = "BRK-002"
		s.Require().NoError(s.svc.AddBrokerPurchase(s.adminCtx, second))

		list, err := s.svc.ListBrokerPurchases(s.userCtx)
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal("BRK-001", list[0].BrokerTxnID)
		s.Equal(testNow, list[0].Timestamp)
	})

	s.Run("incomplete record is invalid", func() {
		err := s.svc.AddBrokerPurchase(s.adminCtx, domain.VerifiedBrokerPurchase{Amount: 1})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestPlatformConfig verifies the admin-gated config cycle.
func (s *TradingSuite) TestPlatformConfig() {
	s.Run("defaults when never set", func() {
		cfg, err := s.svc.PlatformConfig(s.userCtx)
		s.Require().NoError(err)
		s.Equal(domain.DefaultPlatformConfig(), cfg)
	})

	s.Run("non-admin cannot update", func() {
		err := s.svc.UpdatePlatformConfig(s.userCtx, domain.DefaultPlatformConfig())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("invalid config is rejected", func() {
		cfg := domain.DefaultPlatformConfig()
		cfg.PlatformFeePercentage = 1.5
		err := s.svc.UpdatePlatformConfig(s.adminCtx, cfg)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("update round-trips", func() {
		cfg := domain.DefaultPlatformConfig()
		cfg.MinimumInvestment = 500
		s.Require().NoError(s.svc.UpdatePlatformConfig(s.adminCtx, cfg))

		got, err := s.svc.PlatformConfig(s.userCtx)
		s.Require().NoError(err)
		s.Equal(uint64(500), got.MinimumInvestment)
	})
}
