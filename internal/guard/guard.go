// Package guard is the durable authorization layer. The allow-list lives in
// its own store region so privilege grants survive restarts alongside the
// entity data they protect.
package guard

import (
	"context"
	"log/slog"

	"ustbills/internal/domain"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
)

// Service answers "may this principal perform privileged operations".
type Service struct {
	set    *store.GuardSet
	logger *slog.Logger
}

// Option configures optional service dependencies.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(set *store.GuardSet, opts ...Option) *Service {
	s := &Service{set: set, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed grants admin to the bootstrap principals. Idempotent: re-seeding an
// already granted principal is a no-op.
func (s *Service) Seed(ctx context.Context, principals []domain.Principal) error {
	for _, p := range principals {
		if p.IsAnonymous() {
			continue
		}
		if err := s.set.Add(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "seed admin set")
		}
		s.logger.InfoContext(ctx, "admin seeded", "principal", string(p))
	}
	return nil
}

// AssertAdmin returns nil only for a non-anonymous principal present in the
// allow-list. The anonymity check runs first so an anonymous caller is
// reported as anonymous rather than merely unauthorized.
func (s *Service) AssertAdmin(ctx context.Context, p domain.Principal) error {
	if p.IsAnonymous() {
		return dErrors.New(dErrors.CodeAnonymousCaller, "anonymous callers cannot perform this operation")
	}
	ok, err := s.set.Contains(ctx, p)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check admin set")
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized administrator")
	}
	return nil
}

// IsAuthorized is the non-failing form of AssertAdmin. Anonymous principals
// are never authorized.
func (s *Service) IsAuthorized(ctx context.Context, p domain.Principal) (bool, error) {
	if p.IsAnonymous() {
		return false, nil
	}
	return s.set.Contains(ctx, p)
}

// Grant adds target to the allow-list. Only an existing admin may grant.
func (s *Service) Grant(ctx context.Context, caller, target domain.Principal) error {
	if err := s.AssertAdmin(ctx, caller); err != nil {
		return err
	}
	if target.IsAnonymous() {
		return dErrors.Validation("cannot grant admin to the anonymous principal")
	}
	if err := s.set.Add(ctx, target); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "grant admin")
	}
	s.logger.InfoContext(ctx, "admin granted", "by", string(caller), "principal", string(target))
	return nil
}

// List returns the allow-list in ascending principal order. Admin only.
func (s *Service) List(ctx context.Context, caller domain.Principal) ([]domain.Principal, error) {
	if err := s.AssertAdmin(ctx, caller); err != nil {
		return nil, err
	}
	return s.set.List(ctx)
}
