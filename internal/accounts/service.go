// Package accounts owns user registration and the cash wallet. The wallet is
// platform-internal balance in cents; the OUSG token path lives in minting.
package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"ustbills/internal/domain"
	"ustbills/internal/platform/metrics"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/sentinel"
	"ustbills/pkg/requestcontext"
)

// RegistrationNotifier tells the external document file store that a new
// account exists, so later KYC uploads have a destination. Failures are
// non-fatal; registration stands.
type RegistrationNotifier interface {
	NotifyRegistered(ctx context.Context, p domain.Principal) error
}

// RegisterRequest is the caller-supplied part of a new account.
type RegisterRequest struct {
	Email       string
	PhoneNumber *string
	Country     string
}

const initialMaxInvestmentLimit = 1_000_000_000 // $10M account ceiling

type Service struct {
	users    *store.Users
	txns     *store.Transactions
	counter  *store.Counter
	notifier RegistrationNotifier
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu sync.Mutex // serializes wallet read-modify-write sequences
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier wires the document file store client. Without it, registration
// skips the notify step.
func WithNotifier(n RegistrationNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		users:   st.Users,
		txns:    st.Transactions,
		counter: st.Counter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the account for the calling principal. The caller must be
// authenticated; one account per principal.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return domain.User{}, dErrors.New(dErrors.CodeAnonymousCaller, "registration requires an authenticated caller")
	}
	if err := validateEmail(req.Email); err != nil {
		return domain.User{}, err
	}
	if strings.TrimSpace(req.Country) == "" {
		return domain.User{}, dErrors.Validation("country is required")
	}

	now := requestcontext.Now(ctx).Unix()
	user := domain.User{
		Principal:          caller,
		Email:              strings.TrimSpace(req.Email),
		PhoneNumber:        req.PhoneNumber,
		Country:            strings.TrimSpace(req.Country),
		KYCStatus:          domain.KYCPending,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
		MaxInvestmentLimit: initialMaxInvestmentLimit,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if err == sentinel.ErrConflict {
			return domain.User{}, dErrors.New(dErrors.CodeAlreadyExists, "user already registered")
		}
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "store user")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRegistered(ctx, caller); err != nil {
			s.logger.WarnContext(ctx, "file store registration notify failed",
				"principal", string(caller), "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.logger.InfoContext(ctx, "user registered", "principal", string(caller), "country", user.Country)
	return user, nil
}

// Profile returns the caller's account.
func (s *Service) Profile(ctx context.Context) (domain.User, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return domain.User{}, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	user, err := s.users.Get(ctx, caller)
	if err == sentinel.ErrNotFound {
		return domain.User{}, dErrors.New(dErrors.CodeNotFound, "user not registered")
	}
	if err != nil {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	return user, nil
}

// IsRegistered reports whether the caller has an account. Anonymous callers
// are never registered.
func (s *Service) IsRegistered(ctx context.Context) (bool, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return false, nil
	}
	_, err := s.users.Get(ctx, caller)
	if err == sentinel.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	return true, nil
}

// DepositFunds credits the caller's wallet and records the movement. The
// credit commits against the stored record, never a snapshot.
func (s *Service) DepositFunds(ctx context.Context, amount uint64) (domain.User, error) {
	if amount == 0 {
		return domain.User{}, dErrors.Validation("deposit amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.applyWallet(ctx, func(u *domain.User) error {
		u.WalletBalance += amount
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if err := s.appendTxn(ctx, user.Principal, domain.TxDeposit, amount, "wallet deposit"); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// WithdrawFunds debits the caller's wallet. A withdrawal beyond the balance
// fails with no write.
func (s *Service) WithdrawFunds(ctx context.Context, amount uint64) (domain.User, error) {
	if amount == 0 {
		return domain.User{}, dErrors.Validation("withdrawal amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.applyWallet(ctx, func(u *domain.User) error {
		if u.WalletBalance < amount {
			return dErrors.Newf(dErrors.CodeInsufficientFunds,
				"balance %d is below requested %d", u.WalletBalance, amount)
		}
		u.WalletBalance -= amount
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	if err := s.appendTxn(ctx, user.Principal, domain.TxWithdrawal, amount, "wallet withdrawal"); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// applyWallet runs fn against the caller's stored record in one transaction
// and stamps the update time. Coded errors from fn pass through untouched.
func (s *Service) applyWallet(ctx context.Context, fn func(*domain.User) error) (domain.User, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return domain.User{}, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	user, err := s.users.Apply(ctx, caller, func(u *domain.User) error {
		if err := fn(u); err != nil {
			return err
		}
		u.UpdatedAt = requestcontext.Now(ctx).Unix()
		return nil
	})
	if err == sentinel.ErrNotFound {
		return domain.User{}, dErrors.New(dErrors.CodeNotFound, "user not registered")
	}
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInsufficientFunds) {
			return domain.User{}, err
		}
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "update wallet")
	}
	return user, nil
}

// Transactions returns the caller's movement history.
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return nil, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	return s.txns.ByUser(ctx, caller)
}

func (s *Service) appendTxn(ctx context.Context, p domain.Principal, kind domain.TransactionType, amount uint64, desc string) error {
	id, err := s.counter.Next()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "mint transaction id")
	}
	txn := domain.Transaction{
		ID:            fmt.Sprintf("%d", id),
		UserPrincipal: p,
		Type:          kind,
		Amount:        amount,
		Status:        domain.TxCompleted,
		Timestamp:     requestcontext.Now(ctx).Unix(),
		Description:   desc,
	}
	if err := s.txns.Append(ctx, txn); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record transaction")
	}
	return nil
}

// validateEmail applies the registration format rules: a single @, non-empty
// local and domain parts, dotted domain.
func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return dErrors.Validation("email is required")
	}
	at := strings.Count(email, "@")
	if at != 1 {
		return dErrors.Validation("email must contain exactly one @")
	}
	parts := strings.SplitN(email, "@", 2)
	local, dom := parts[0], parts[1]
	if local == "" || dom == "" {
		return dErrors.Validation("email local and domain parts must be non-empty")
	}
	if !strings.Contains(dom, ".") || strings.HasPrefix(dom, ".") || strings.HasSuffix(dom, ".") {
		return dErrors.Validation("email domain must be dotted")
	}
	return nil
}
