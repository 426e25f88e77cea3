// Package minting owns the ckBTC-deposit-to-OUSG-mint pipeline and the
// redemption path. The ckBTC ledger, the OUSG token ledger and the price
// oracle are external systems consumed through the ports in ports.go.
package minting

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ustbills/internal/domain"
	"ustbills/internal/platform/metrics"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/sentinel"
	"ustbills/pkg/requestcontext"
)

// Config carries the pipeline's deployment knobs.
type Config struct {
	// PlatformAccount is the ckBTC account deposits must be sent to.
	PlatformAccount domain.Principal
	// BurnSink receives OUSG transfers on redemption.
	BurnSink domain.Principal
	// FallbackBTCPrice is used when the oracle is unreachable.
	FallbackBTCPrice float64
	// StrictKYC requires full verification and tier limits for deposits;
	// relaxed mode only requires an active account under its ceiling.
	StrictKYC bool
}

// MinimumDepositUSD is the smallest accepted deposit: one whole OUSG token.
const MinimumDepositUSD = domain.OUSGUnitUSD

// MinimumRedeemUnits is one whole OUSG token in 6-decimal units.
const MinimumRedeemUnits = uint64(domain.OUSGDecimals)

// RedeemResult reports a completed burn. The outbound ckBTC transfer is
// settled out of band; CkBTCOwed is what the settlement job must pay.
type RedeemResult struct {
	OUSGBurned uint64  `json:"ousg_burned"`
	USDValue   float64 `json:"usd_value"`
	CkBTCOwed  uint64  `json:"ckbtc_owed"`
	BTCPrice   float64 `json:"btc_price"`
	BurnBlock  uint64  `json:"burn_block"`
}

// DepositStats is the aggregate served on the stats endpoint.
type DepositStats struct {
	TotalDeposits   uint64 `json:"total_deposits"`
	PendingDeposits uint64 `json:"pending_deposits"`
	TotalCkBTC      uint64 `json:"total_ckbtc"`
	TotalOUSGMinted uint64 `json:"total_ousg_minted"`
	FailedDeposits  uint64 `json:"failed_deposits"`
}

type Service struct {
	store    *store.Store
	oracle   RateOracle
	verifier LedgerVerifier
	ledger   TokenLedger
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	mu sync.Mutex // serializes the deposit and redeem sequences
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(st *store.Store, oracle RateOracle, verifier LedgerVerifier, ledger TokenLedger, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:    st,
		oracle:   oracle,
		verifier: verifier,
		ledger:   ledger,
		cfg:      cfg,
		logger:   slog.Default(),
		tracer:   otel.Tracer("ustbills/minting"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.Deposits.WithLabelValues(outcome).Inc()
	}
}

// btcPrice asks the oracle, falling back to the configured price in degraded
// mode. The fallback is logged; a deposit priced on it is still honored.
func (s *Service) btcPrice(ctx context.Context) float64 {
	rate, err := s.oracle.GetRate(ctx, "BTC", "USD")
	if err != nil || rate <= 0 {
		s.logger.WarnContext(ctx, "btc price oracle unavailable, using fallback",
			"fallback", s.cfg.FallbackBTCPrice, "error", err)
		if s.metrics != nil {
			s.metrics.OracleFallbacks.Inc()
		}
		return s.cfg.FallbackBTCPrice
	}
	return rate
}

// NotifyDeposit processes a claimed ckBTC deposit at the given ledger block
// index, minting OUSG to the caller on success. Replay of an already
// processed block index is rejected both before and after the mint; the
// post-mint marker insert is first-writer-wins.
func (s *Service) NotifyDeposit(ctx context.Context, ckbtcAmount, blockIndex uint64) (domain.Deposit, error) {
	ctx, span := s.tracer.Start(ctx, "minting.NotifyDeposit")
	defer span.End()

	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return domain.Deposit{}, dErrors.New(dErrors.CodeAnonymousCaller, "deposit requires an authenticated caller")
	}
	if ckbtcAmount == 0 {
		return domain.Deposit{}, dErrors.Validation("deposit amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.Users.Get(ctx, caller)
	if err == sentinel.ErrNotFound {
		return domain.Deposit{}, dErrors.New(dErrors.CodeNotFound, "user not registered")
	}
	if err != nil {
		return domain.Deposit{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}

	processed, err := s.store.Processed.Contains(ctx, blockIndex)
	if err != nil {
		return domain.Deposit{}, dErrors.Wrap(err, dErrors.CodeInternal, "check processed markers")
	}
	if processed {
		s.countOutcome(metrics.OutcomeReplayed)
		return domain.Deposit{}, dErrors.Newf(dErrors.CodeAlreadyExists, "block index %d already processed", blockIndex)
	}

	price := s.btcPrice(ctx)
	usd := domain.CkBTCToUSD(ckbtcAmount, price)
	if usd < MinimumDepositUSD {
		s.countOutcome(metrics.OutcomeRejected)
		return domain.Deposit{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"deposit of $%.2f is below the $%.0f minimum", usd, MinimumDepositUSD)
	}
	usdCents := uint64(usd * 100)
	if !user.CanMakeDeposit(usdCents, s.cfg.StrictKYC) {
		s.countOutcome(metrics.OutcomeRejected)
		return domain.Deposit{}, dErrors.New(dErrors.CodeStateConflict,
			"deposit not allowed for this account's verification state or limit")
	}

	transfer, err := s.verifier.GetTransaction(ctx, blockIndex)
	if err != nil {
		return domain.Deposit{}, dErrors.Wrap(err, dErrors.CodeExternal, "verify ckbtc transfer")
	}
	if err := s.validateTransfer(transfer, caller, ckbtcAmount); err != nil {
		s.countOutcome(metrics.OutcomeRejected)
		return domain.Deposit{}, err
	}

	id, err := s.store.Counter.Next()
	if err != nil {
		return domain.Deposit{}, dErrors.Wrap(err, dErrors.CodeInternal, "mint deposit id")
	}
	now := requestcontext.Now(ctx).Unix()
	deposit := domain.NewDeposit(id, caller, ckbtcAmount, usd, price, blockIndex, now)
	if err := s.store.Deposits.Insert(ctx, deposit); err != nil {
		return domain.Deposit{}, dErrors.Wrap(err, dErrors.CodeInternal, "store pending deposit")
	}

	ousg := deposit.OUSGToMint()
	if _, err := s.ledger.Transfer(ctx, caller, ousg); err != nil {
		deposit.MarkFailed(now)
		if uerr := s.store.Deposits.Update(ctx, deposit); uerr != nil {
			s.logger.ErrorContext(ctx, "failed deposit not recorded", "deposit", deposit.ID, "error", uerr)
		}
		s.countOutcome(metrics.OutcomeFailed)
		return deposit, dErrors.Wrap(err, dErrors.CodeExternal, "ousg mint failed")
	}

	// Mint succeeded; everything after this is bookkeeping whose failure is
	// reported distinctly so operators can reconcile.
	deposit.MarkValidated(ousg, now)
	if err := s.store.Deposits.Update(ctx, deposit); err != nil {
		return deposit, dErrors.Wrap(err, dErrors.CodeInternal,
			"reconcile needed: ousg minted but deposit not marked validated")
	}

	// The user snapshot predates the mint call; apply the delta to the
	// stored record so a wallet update committed during the await survives.
	if _, err := s.store.Users.Apply(ctx, caller, func(u *domain.User) error {
		u.TotalInvested += usdCents
		u.UpdatedAt = now
		return nil
	}); err != nil {
		return deposit, dErrors.Wrap(err, dErrors.CodeInternal,
			"reconcile needed: ousg minted but user totals not updated")
	}

	if err := s.store.Processed.Mark(ctx, blockIndex, caller); err != nil {
		if err == sentinel.ErrConflict {
			return deposit, dErrors.Newf(dErrors.CodeStateConflict,
				"reconcile needed: block index %d was concurrently processed", blockIndex)
		}
		return deposit, dErrors.Wrap(err, dErrors.CodeInternal,
			"reconcile needed: ousg minted but block not marked processed")
	}

	s.countOutcome(metrics.OutcomeMinted)
	s.logger.InfoContext(ctx, "deposit minted",
		"deposit", deposit.ID, "principal", string(caller), "block", blockIndex,
		"ckbtc", ckbtcAmount, "usd", usd, "ousg", ousg)
	return deposit, nil
}

func (s *Service) validateTransfer(t LedgerTransfer, caller domain.Principal, ckbtcAmount uint64) error {
	if !t.IsTransfer {
		return dErrors.Validation("ledger entry is not a transfer")
	}
	if t.To != s.cfg.PlatformAccount {
		return dErrors.Validation("transfer was not sent to the platform account")
	}
	if t.From != caller {
		return dErrors.Validation("transfer was not sent by the caller")
	}
	if t.Amount == 0 || t.Amount != ckbtcAmount {
		return dErrors.Validation("transfer amount does not match the claimed deposit")
	}
	return nil
}

// Redeem burns the caller's OUSG and reports the ckBTC owed. The outbound
// ckBTC payment is settled by a follow-up job, not in this call.
func (s *Service) Redeem(ctx context.Context, ousgAmount uint64) (RedeemResult, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return RedeemResult{}, dErrors.New(dErrors.CodeAnonymousCaller, "redemption requires an authenticated caller")
	}
	if ousgAmount < MinimumRedeemUnits {
		return RedeemResult{}, dErrors.Newf(dErrors.CodeInvalidInput,
			"redemption minimum is %d units (one token)", MinimumRedeemUnits)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.Users.Get(ctx, caller)
	if err == sentinel.ErrNotFound {
		return RedeemResult{}, dErrors.New(dErrors.CodeNotFound, "user not registered")
	}
	if err != nil {
		return RedeemResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	if user.KYCStatus != domain.KYCVerified {
		return RedeemResult{}, dErrors.New(dErrors.CodeStateConflict, "redemption requires a verified account")
	}

	burnBlock, err := s.ledger.Transfer(ctx, s.cfg.BurnSink, ousgAmount)
	if err != nil {
		return RedeemResult{}, dErrors.Wrap(err, dErrors.CodeExternal, "ousg burn failed")
	}

	usd := domain.OUSGToUSD(ousgAmount)
	usdCents := uint64(usd * 100)
	now := requestcontext.Now(ctx).Unix()
	// Decrement against the stored record, not the pre-burn snapshot.
	if _, err := s.store.Users.Apply(ctx, caller, func(u *domain.User) error {
		if u.TotalInvested >= usdCents {
			u.TotalInvested -= usdCents
		} else {
			u.TotalInvested = 0
		}
		u.UpdatedAt = now
		return nil
	}); err != nil {
		return RedeemResult{}, dErrors.Wrap(err, dErrors.CodeInternal,
			"reconcile needed: ousg burned but user totals not updated")
	}

	price := s.btcPrice(ctx)
	result := RedeemResult{
		OUSGBurned: ousgAmount,
		USDValue:   usd,
		CkBTCOwed:  domain.USDToCkBTC(usd, price),
		BTCPrice:   price,
		BurnBlock:  burnBlock,
	}
	if s.metrics != nil {
		s.metrics.Redemptions.Inc()
	}
	s.logger.InfoContext(ctx, "ousg redeemed",
		"principal", string(caller), "ousg", ousgAmount, "usd", usd, "ckbtc_owed", result.CkBTCOwed)
	return result, nil
}

// GetDeposit returns one deposit to its owner. Ownership is the only read
// path; there is no admin view of individual deposits.
func (s *Service) GetDeposit(ctx context.Context, id uint64) (domain.Deposit, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return domain.Deposit{}, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	deposit, err := s.store.Deposits.Get(ctx, id)
	if err == sentinel.ErrNotFound {
		return domain.Deposit{}, dErrors.New(dErrors.CodeNotFound, "deposit not found")
	}
	if err != nil {
		return domain.Deposit{}, dErrors.Wrap(err, dErrors.CodeInternal, "load deposit")
	}
	if deposit.Principal != caller {
		return domain.Deposit{}, dErrors.New(dErrors.CodeUnauthorized, "deposit belongs to another user")
	}
	return deposit, nil
}

// UserDeposits lists the caller's deposits in ID order.
func (s *Service) UserDeposits(ctx context.Context) ([]domain.Deposit, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return nil, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	return s.store.Deposits.ByUser(ctx, caller)
}

// Stats aggregates the deposit pipeline's history.
func (s *Service) Stats(ctx context.Context) (DepositStats, error) {
	all, err := s.store.Deposits.All(ctx)
	if err != nil {
		return DepositStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "list deposits")
	}
	var stats DepositStats
	for _, d := range all {
		stats.TotalDeposits++
		switch d.Status {
		case domain.DepositPending:
			stats.PendingDeposits++
		case domain.DepositFailed:
			stats.FailedDeposits++
		default:
			stats.TotalCkBTC += d.CkBTCAmount
			stats.TotalOUSGMinted += d.OUSGMinted
		}
	}
	return stats, nil
}
