// Package trading owns the bill lifecycle and the single-ownership purchase
// path. A bill is sold in its entirety to one buyer; there is no partial fill
// and no secondary market.
package trading

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ustbills/internal/domain"
	"ustbills/internal/guard"
	"ustbills/internal/platform/metrics"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/sentinel"
	"ustbills/pkg/requestcontext"
)

// CreateBillRequest describes a new offering.
type CreateBillRequest struct {
	CUSIP         string
	FaceValue     uint64
	PurchasePrice uint64
	MaturityDate  int64
	AnnualYield   float64
	Issuer        string
	BillType      string
}

// BillPage is one page of the paginated bill listing. Pages are 0-based.
type BillPage struct {
	Bills   []domain.USTBill `json:"bills"`
	Page    uint64           `json:"page"`
	PerPage uint64           `json:"per_page"`
	Total   uint64           `json:"total"`
	HasNext bool             `json:"has_next"`
}

// PurchaseResult is the outcome of a completed BuyBill.
type PurchaseResult struct {
	Holding       domain.TokenHolding `json:"holding"`
	Fee           uint64              `json:"fee"`
	TotalDebited  uint64              `json:"total_debited"`
	TransactionID string              `json:"transaction_id"`
}

type Service struct {
	store   *store.Store
	guard   *guard.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu sync.Mutex // serializes the multi-entity purchase sequence
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(st *store.Store, g *guard.Service, opts ...Option) *Service {
	s := &Service{
		store:  st,
		guard:  g,
		logger: slog.Default(),
		tracer: otel.Tracer("ustbills/trading"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBill registers a new offering. Admin only.
func (s *Service) CreateBill(ctx context.Context, req CreateBillRequest) (domain.USTBill, error) {
	if err := s.guard.AssertAdmin(ctx, requestcontext.Caller(ctx)); err != nil {
		return domain.USTBill{}, err
	}
	now := requestcontext.Now(ctx).Unix()
	if err := validateBill(req, now); err != nil {
		return domain.USTBill{}, err
	}

	id, err := s.store.Counter.Next()
	if err != nil {
		return domain.USTBill{}, dErrors.Wrap(err, dErrors.CodeInternal, "mint bill id")
	}
	bill := domain.USTBill{
		ID:            fmt.Sprintf("%d", id),
		CUSIP:         req.CUSIP,
		FaceValue:     req.FaceValue,
		PurchasePrice: req.PurchasePrice,
		MaturityDate:  req.MaturityDate,
		AnnualYield:   req.AnnualYield,
		Status:        domain.BillActive,
		Issuer:        req.Issuer,
		BillType:      req.BillType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Bills.Insert(ctx, bill); err != nil {
		return domain.USTBill{}, dErrors.Wrap(err, dErrors.CodeInternal, "store bill")
	}
	if s.metrics != nil {
		s.metrics.BillsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "bill created", "id", bill.ID, "cusip", bill.CUSIP)
	return bill, nil
}

// GetBill returns one offering.
func (s *Service) GetBill(ctx context.Context, id string) (domain.USTBill, error) {
	bill, err := s.store.Bills.Get(ctx, id)
	if err == sentinel.ErrNotFound {
		return domain.USTBill{}, dErrors.New(dErrors.CodeNotFound, "bill not found")
	}
	if err != nil {
		return domain.USTBill{}, dErrors.Wrap(err, dErrors.CodeInternal, "load bill")
	}
	return bill, nil
}

// GetActiveBills lists bills still available for purchase, in ID order.
func (s *Service) GetActiveBills(ctx context.Context) ([]domain.USTBill, error) {
	bills, err := s.store.Bills.Active(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list active bills")
	}
	return bills, nil
}

// GetBillsPaginated returns page (0-based) of all bills, perPage at a time.
func (s *Service) GetBillsPaginated(ctx context.Context, page, perPage uint64) (BillPage, error) {
	if perPage == 0 || perPage > 100 {
		return BillPage{}, dErrors.Validation("per_page must be between 1 and 100")
	}
	all, err := s.store.Bills.All(ctx)
	if err != nil {
		return BillPage{}, dErrors.Wrap(err, dErrors.CodeInternal, "list bills")
	}
	total := uint64(len(all))
	offset := page * perPage
	slice := []domain.USTBill{}
	if offset < total {
		end := offset + perPage
		if end > total {
			end = total
		}
		slice = all[offset:end]
	}
	return BillPage{
		Bills:   slice,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: (page+1)*perPage < total,
	}, nil
}

// BuyBill executes the purchase: the caller acquires the whole bill. The
// writes commit sequentially; a failure after the first write surfaces as a
// distinct error naming the incomplete step so operators can reconcile.
func (s *Service) BuyBill(ctx context.Context, billID string) (PurchaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "trading.BuyBill")
	defer span.End()

	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return PurchaseResult{}, dErrors.New(dErrors.CodeAnonymousCaller, "purchase requires an authenticated caller")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.Users.Get(ctx, caller)
	if err == sentinel.ErrNotFound {
		return PurchaseResult{}, dErrors.New(dErrors.CodeNotFound, "user not registered")
	}
	if err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	if !user.IsEligibleForTrading() {
		return PurchaseResult{}, dErrors.New(dErrors.CodeStateConflict, "trading not allowed: user is not verified and active")
	}

	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if !bill.IsAvailableForPurchase() {
		return PurchaseResult{}, dErrors.New(dErrors.CodeStateConflict, "bill is sold out or inactive")
	}

	cfg, err := s.store.Config.Get(ctx)
	if err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load platform config")
	}
	if bill.PurchasePrice < cfg.MinimumInvestment || bill.PurchasePrice > cfg.MaximumInvestment {
		return PurchaseResult{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"purchase price %d outside investment bounds [%d, %d]",
			bill.PurchasePrice, cfg.MinimumInvestment, cfg.MaximumInvestment)
	}

	fee := domain.PurchaseFee(bill.PurchasePrice, cfg.PlatformFeePercentage)
	total := bill.PurchasePrice + fee
	if user.WalletBalance < total {
		return PurchaseResult{}, dErrors.Newf(dErrors.CodeInsufficientFunds,
			"balance %d is below price plus fee %d", user.WalletBalance, total)
	}

	// Preconditions hold; begin the write sequence.
	now := requestcontext.Now(ctx).Unix()

	// The debit re-checks the balance against the stored record: a wallet
	// withdrawal committed by another handler since the snapshot read must
	// fail the purchase, not be overwritten.
	if _, err := s.store.Users.Apply(ctx, caller, func(u *domain.User) error {
		if u.WalletBalance < total {
			return dErrors.Newf(dErrors.CodeInsufficientFunds,
				"balance %d is below price plus fee %d", u.WalletBalance, total)
		}
		u.WalletBalance -= total
		u.TotalInvested += bill.PurchasePrice
		u.UpdatedAt = now
		return nil
	}); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInsufficientFunds) {
			return PurchaseResult{}, err
		}
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "purchase aborted: debit failed")
	}

	bill.Owner = &caller
	bill.Status = domain.BillSoldOut
	bill.UpdatedAt = now
	if err := s.store.Bills.Update(ctx, bill); err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"purchase incomplete: funds debited but bill not assigned")
	}

	holdingID, err := s.store.Counter.Next()
	if err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"purchase incomplete: bill assigned but holding id unavailable")
	}
	holding := domain.TokenHolding{
		ID:             fmt.Sprintf("%d", holdingID),
		UserPrincipal:  caller,
		USTBillID:      bill.ID,
		PurchasePrice:  bill.PurchasePrice,
		PurchaseDate:   now,
		Status:         domain.HoldingActive,
		CurrentValue:   bill.PurchasePrice,
		ProjectedYield: domain.ProjectedYield(bill.PurchasePrice, bill.AnnualYield, bill.DaysToMaturity(now)),
		TokenID:        holdingID,
	}
	if err := s.store.Holdings.Insert(ctx, holding); err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"purchase incomplete: bill assigned but holding not recorded")
	}

	purchaseTxnID, err := s.appendTxn(ctx, caller, domain.TxPurchase, bill.PurchasePrice, fee, &bill.ID, &holding.ID, now,
		fmt.Sprintf("purchase of bill %s", bill.ID))
	if err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"purchase incomplete: holding recorded but purchase transaction missing")
	}
	if _, err := s.appendTxn(ctx, caller, domain.TxFee, fee, 0, &bill.ID, &holding.ID, now,
		fmt.Sprintf("platform fee for bill %s", bill.ID)); err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"purchase incomplete: fee transaction missing")
	}

	tm, err := s.store.Metrics.Get(ctx)
	if err == nil {
		tm.RecordPurchase(bill.PurchasePrice, now)
		err = s.store.Metrics.Set(ctx, tm)
	}
	if err != nil {
		return PurchaseResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"purchase incomplete: trading metrics not updated")
	}

	if s.metrics != nil {
		s.metrics.Purchases.Inc()
		s.metrics.PurchaseVolume.Add(float64(bill.PurchasePrice))
	}
	s.logger.InfoContext(ctx, "bill purchased",
		"bill", bill.ID, "buyer", string(caller), "price", bill.PurchasePrice, "fee", fee)
	return PurchaseResult{
		Holding:       holding,
		Fee:           fee,
		TotalDebited:  total,
		TransactionID: purchaseTxnID,
	}, nil
}

func (s *Service) appendTxn(ctx context.Context, p domain.Principal, kind domain.TransactionType, amount, fees uint64, billID, holdingID *string, now int64, desc string) (string, error) {
	id, err := s.store.Counter.Next()
	if err != nil {
		return "", err
	}
	txn := domain.Transaction{
		ID:            fmt.Sprintf("%d", id),
		UserPrincipal: p,
		Type:          kind,
		Amount:        amount,
		Fees:          fees,
		USTBillID:     billID,
		HoldingID:     holdingID,
		Status:        domain.TxCompleted,
		Timestamp:     now,
		Description:   desc,
	}
	if err := s.store.Transactions.Append(ctx, txn); err != nil {
		return "", err
	}
	return txn.ID, nil
}

// UserHoldings lists the caller's holdings.
func (s *Service) UserHoldings(ctx context.Context) ([]domain.TokenHolding, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return nil, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	return s.store.Holdings.ByUser(ctx, caller)
}

// ownedHolding loads a holding and checks it belongs to the caller.
func (s *Service) ownedHolding(ctx context.Context, holdingID string) (domain.TokenHolding, domain.USTBill, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return domain.TokenHolding{}, domain.USTBill{}, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	holding, err := s.store.Holdings.Get(ctx, holdingID)
	if err == sentinel.ErrNotFound {
		return domain.TokenHolding{}, domain.USTBill{}, dErrors.New(dErrors.CodeNotFound, "holding not found")
	}
	if err != nil {
		return domain.TokenHolding{}, domain.USTBill{}, dErrors.Wrap(err, dErrors.CodeInternal, "load holding")
	}
	if holding.UserPrincipal != caller {
		return domain.TokenHolding{}, domain.USTBill{}, dErrors.New(dErrors.CodeUnauthorized, "holding belongs to another user")
	}
	bill, err := s.GetBill(ctx, holding.USTBillID)
	if err != nil {
		return domain.TokenHolding{}, domain.USTBill{}, err
	}
	return holding, bill, nil
}

// CalculateCurrentValue returns purchase price plus simple-interest accrual
// for the days held so far, persisting the refreshed valuation.
func (s *Service) CalculateCurrentValue(ctx context.Context, holdingID string) (uint64, error) {
	holding, bill, err := s.ownedHolding(ctx, holdingID)
	if err != nil {
		return 0, err
	}
	now := requestcontext.Now(ctx).Unix()
	value := domain.AccruedValue(holding.PurchasePrice, bill.AnnualYield, holding.DaysHeld(now))
	if value != holding.CurrentValue {
		holding.CurrentValue = value
		if err := s.store.Holdings.Update(ctx, holding); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "persist valuation")
		}
	}
	return value, nil
}

// GetYieldProjection returns the remaining-term yield projection for a
// holding.
func (s *Service) GetYieldProjection(ctx context.Context, holdingID string) (domain.YieldProjection, error) {
	holding, bill, err := s.ownedHolding(ctx, holdingID)
	if err != nil {
		return domain.YieldProjection{}, err
	}
	now := requestcontext.Now(ctx).Unix()
	days := bill.DaysToMaturity(now)
	projected := domain.ProjectedYield(holding.CurrentValue, bill.AnnualYield, days)
	return domain.YieldProjection{
		HoldingID:       holding.ID,
		CurrentValue:    holding.CurrentValue,
		ProjectedYield:  projected,
		YieldPercentage: domain.YieldPercentage(projected, holding.CurrentValue),
		DaysToMaturity:  days,
		AnnualYieldRate: bill.AnnualYield,
	}, nil
}

// CalculateMaturityYield returns the realized yield of a matured bill: face
// value minus purchase price. Calling it before maturity is a state error.
func (s *Service) CalculateMaturityYield(ctx context.Context, billID string) (uint64, error) {
	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return 0, err
	}
	if bill.MaturityDate > requestcontext.Now(ctx).Unix() {
		return 0, dErrors.New(dErrors.CodeStateConflict, "bill has not matured")
	}
	return bill.MaturityYield(), nil
}

// AddBrokerPurchase records an inventory acquisition from the external
// broker. Admin only; append-only.
func (s *Service) AddBrokerPurchase(ctx context.Context, p domain.VerifiedBrokerPurchase) error {
	if err := s.guard.AssertAdmin(ctx, requestcontext.Caller(ctx)); err != nil {
		return err
	}
	if p.Amount == 0 || p.Price == 0 || p.BrokerTxnID == "" {
		return dErrors.Validation("broker purchase requires amount, price and broker transaction id")
	}
	if p.Timestamp == 0 {
		p.Timestamp = requestcontext.Now(ctx).Unix()
	}
	if err := s.store.BrokerPurchases.Append(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record broker purchase")
	}
	return nil
}

// ListBrokerPurchases returns the broker inventory ledger in insertion order.
func (s *Service) ListBrokerPurchases(ctx context.Context) ([]domain.VerifiedBrokerPurchase, error) {
	return s.store.BrokerPurchases.All(ctx)
}

// Metrics returns the rolling trading aggregate.
func (s *Service) Metrics(ctx context.Context) (domain.TradingMetrics, error) {
	return s.store.Metrics.Get(ctx)
}

// PlatformConfig returns the current operating configuration.
func (s *Service) PlatformConfig(ctx context.Context) (domain.PlatformConfig, error) {
	return s.store.Config.Get(ctx)
}

// UpdatePlatformConfig replaces the operating configuration. Admin only.
func (s *Service) UpdatePlatformConfig(ctx context.Context, cfg domain.PlatformConfig) error {
	if err := s.guard.AssertAdmin(ctx, requestcontext.Caller(ctx)); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid platform config")
	}
	if err := s.store.Config.Set(ctx, cfg); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "store platform config")
	}
	s.logger.InfoContext(ctx, "platform config updated",
		"fee_pct", cfg.PlatformFeePercentage, "min", cfg.MinimumInvestment, "max", cfg.MaximumInvestment)
	return nil
}

func validateBill(req CreateBillRequest, now int64) error {
	if !validCUSIP(req.CUSIP) {
		return dErrors.Validation("cusip must be 9 uppercase alphanumeric characters")
	}
	if req.AnnualYield <= 0 || req.AnnualYield >= 1 {
		return dErrors.Validation("annual yield must be a fraction in (0, 1)")
	}
	if req.MaturityDate <= now {
		return dErrors.Validation("maturity date must be in the future")
	}
	if req.PurchasePrice == 0 || req.FaceValue <= req.PurchasePrice {
		return dErrors.Validation("face value must exceed a positive purchase price")
	}
	return nil
}

func validCUSIP(c string) bool {
	if len(c) != 9 {
		return false
	}
	for _, r := range c {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
