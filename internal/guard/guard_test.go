package guard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"ustbills/internal/domain"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
)

type GuardSuite struct {
	suite.Suite
	store *store.Store
	svc   *Service
	ctx   context.Context
}

func (s *GuardSuite) SetupTest() {
	st, err := store.Open(filepath.Join(s.T().TempDir(), "ledger.db"))
	s.Require().NoError(err)
	s.store = st
	s.svc = NewService(st.Guard)
	s.ctx = context.Background()
}

func (s *GuardSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

// TestAssertAdmin verifies the authorization decision order: anonymity is
// reported before membership.
func (s *GuardSuite) TestAssertAdmin() {
	s.Require().NoError(s.svc.Seed(s.ctx, []domain.Principal{"admin-1"}))

	s.Run("seeded admin passes", func() {
		s.NoError(s.svc.AssertAdmin(s.ctx, "admin-1"))
	})

	s.Run("anonymous caller is reported as anonymous", func() {
		err := s.svc.AssertAdmin(s.ctx, domain.Anonymous)
		s.True(dErrors.HasCode(err, dErrors.CodeAnonymousCaller))
	})

	s.Run("empty principal is treated as anonymous", func() {
		err := s.svc.AssertAdmin(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeAnonymousCaller))
	})

	s.Run("unknown principal is unauthorized", func() {
		err := s.svc.AssertAdmin(s.ctx, "stranger")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// TestGrant verifies that only admins can grow the allow-list and that grants
// take effect immediately.
func (s *GuardSuite) TestGrant() {
	s.Require().NoError(s.svc.Seed(s.ctx, []domain.Principal{"admin-1"}))

	s.Run("non-admin cannot grant", func() {
		err := s.svc.Grant(s.ctx, "stranger", "target")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admin grant takes effect", func() {
		s.Require().NoError(s.svc.Grant(s.ctx, "admin-1", "admin-2"))
		s.NoError(s.svc.AssertAdmin(s.ctx, "admin-2"))
	})

	s.Run("granting anonymous is rejected", func() {
		err := s.svc.Grant(s.ctx, "admin-1", domain.Anonymous)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("re-grant is idempotent", func() {
		s.NoError(s.svc.Grant(s.ctx, "admin-1", "admin-2"))
	})
}

// TestList verifies the admin-only listing in ascending order.
func (s *GuardSuite) TestList() {
	s.Require().NoError(s.svc.Seed(s.ctx, []domain.Principal{"b-admin", "a-admin"}))

	s.Run("non-admin cannot list", func() {
		_, err := s.svc.List(s.ctx, "stranger")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("admins come back sorted", func() {
		list, err := s.svc.List(s.ctx, "a-admin")
		s.Require().NoError(err)
		s.Equal([]domain.Principal{"a-admin", "b-admin"}, list)
	})
}

// TestSeedSkipsAnonymous verifies the bootstrap path never grants the
// anonymous principal.
func (s *GuardSuite) TestSeedSkipsAnonymous() {
	s.Require().NoError(s.svc.Seed(s.ctx, []domain.Principal{domain.Anonymous, "admin-1"}))

	ok, err := s.svc.IsAuthorized(s.ctx, domain.Anonymous)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.svc.IsAuthorized(s.ctx, "admin-1")
	s.Require().NoError(err)
	s.True(ok)
}
