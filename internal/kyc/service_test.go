package kyc

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

type KYCSuite struct {
	suite.Suite
	store *store.Store
	svc   *Service

	userCtx  context.Context
	adminCtx context.Context
}

func (s *KYCSuite) SetupTest() {
	st, err := store.Open(filepath.Join(s.T().TempDir(), "ledger.db"))
	s.Require().NoError(err)
	s.store = st

	g := guard.NewService(st.Guard)
	s.Require().NoError(g.Seed(context.Background(), []domain.Principal{"admin-1"}))
	s.svc = NewService(st, g)

	at := time.Unix(1_700_000_000, 0)
	s.userCtx = requestcontext.WithTime(requestcontext.WithCaller(context.Background(), "aaaaa-aa"), at)
	s.adminCtx = requestcontext.WithTime(requestcontext.WithCaller(context.Background(), "admin-1"), at)

	s.Require().NoError(st.Users.Insert(context.Background(), domain.User{
		Principal: "aaaaa-aa",
		Email:     "alice@example.com",
		Country:   "US",
		KYCStatus: domain.KYCPending,
		IsActive:  true,
	}))
}

func (s *KYCSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func TestKYCSuite(t *testing.T) {
	suite.Run(t, new(KYCSuite))
}

func (s *KYCSuite) upload() string {
	id, err := s.svc.UploadDocuments(s.userCtx, UploadRequest{
		DocumentFrontPage:  "docs/front.jpg",
		DocumentBackPage:   "docs/back.jpg",
		SelfieWithDocument: "docs/selfie.jpg",
	})
	s.Require().NoError(err)
	return id
}

// TestUploadDocuments verifies session creation and the replace-on-re-upload
// semantics.
func (s *KYCSuite) TestUploadDocuments() {
	s.Run("creates a pending session keyed by principal", func() {
		id := s.upload()
		s.Equal("aaaaa-aa", id)

		session, err := s.store.KYCSessions.Get(context.Background(), id)
		s.Require().NoError(err)
		s.Equal(domain.KYCSessionPendingReview, session.Status)
		s.True(session.NeedsManualReview)
	})

	s.Run("re-upload replaces the session", func() {
		_, err := s.svc.UploadDocuments(s.userCtx, UploadRequest{
			DocumentFrontPage:  "docs/front-v2.jpg",
			DocumentBackPage:   "docs/back-v2.jpg",
			SelfieWithDocument: "docs/selfie-v2.jpg",
		})
		s.Require().NoError(err)

		session, err := s.store.KYCSessions.Get(context.Background(), "aaaaa-aa")
		s.Require().NoError(err)
		s.Equal("docs/front-v2.jpg", session.DocumentFrontPage)
	})

	s.Run("anonymous callers are rejected", func() {
		anon := requestcontext.WithCaller(context.Background(), domain.Anonymous)
		_, err := s.svc.UploadDocuments(anon, UploadRequest{
			DocumentFrontPage: "a", DocumentBackPage: "b", SelfieWithDocument: "c",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeAnonymousCaller))
	})

	s.Run("unregistered users are rejected", func() {
		stranger := requestcontext.WithCaller(context.Background(), "zzzzz-zz")
		_, err := s.svc.UploadDocuments(stranger, UploadRequest{
			DocumentFrontPage: "a", DocumentBackPage: "b", SelfieWithDocument: "c",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing document reference is invalid", func() {
		_, err := s.svc.UploadDocuments(s.userCtx, UploadRequest{
			DocumentFrontPage: "a", DocumentBackPage: "", SelfieWithDocument: "c",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestAdminReview verifies approval effects, rejection, and single settlement.
func (s *KYCSuite) TestAdminReview() {
	id := s.upload()

	s.Run("non-admin cannot review", func() {
		_, err := s.svc.AdminReview(s.userCtx, ReviewRequest{UploadID: id, Approved: true})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("approval verifies the user and elevates tier", func() {
		notes := "documents legible"
		session, err := s.svc.AdminReview(s.adminCtx, ReviewRequest{UploadID: id, Approved: true, Notes: &notes})
		s.Require().NoError(err)
		s.Equal(domain.KYCSessionManualApproved, session.Status)
		s.Require().NotNil(session.ReviewedAt)

		user, err := s.store.Users.Get(context.Background(), "aaaaa-aa")
		s.Require().NoError(err)
		s.Equal(domain.KYCVerified, user.KYCStatus)
		s.Equal(uint8(1), user.KYCTier)
	})

	s.Run("a settled session cannot be reviewed again", func() {
		_, err := s.svc.AdminReview(s.adminCtx, ReviewRequest{UploadID: id, Approved: false})
		s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	})

	s.Run("unknown session is not found", func() {
		_, err := s.svc.AdminReview(s.adminCtx, ReviewRequest{UploadID: "nobody", Approved: true})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestRejectionLeavesUserUntouched verifies a rejected review does not change
// the user's verification state.
func (s *KYCSuite) TestRejectionLeavesUserUntouched() {
	id := s.upload()
	session, err := s.svc.AdminReview(s.adminCtx, ReviewRequest{UploadID: id, Approved: false})
	s.Require().NoError(err)
	s.Equal(domain.KYCSessionRejected, session.Status)

	user, err := s.store.Users.Get(context.Background(), "aaaaa-aa")
	s.Require().NoError(err)
	s.Equal(domain.KYCPending, user.KYCStatus)
	s.Zero(user.KYCTier)
}

// TestPendingReviews verifies the admin queue joins users, skips orphans and
// comes back in upload ID order.
func (s *KYCSuite) TestPendingReviews() {
	s.upload()

	s.Require().NoError(s.store.Users.Insert(context.Background(), domain.User{
		Principal: "bbbbb-bb",
		Email:     "bob@example.com",
		Country:   "US",
		KYCStatus: domain.KYCPending,
		IsActive:  true,
	}))
	s.Require().NoError(s.store.KYCSessions.Put(context.Background(), "bbbbb-bb", domain.FreeKYCSession{
		UserPrincipal: "bbbbb-bb",
		Status:        domain.KYCSessionPendingReview,
	}))

	// Orphan session: its user record does not exist.
	s.Require().NoError(s.store.KYCSessions.Put(context.Background(), "ghost", domain.FreeKYCSession{
		UserPrincipal: "ghost",
		Status:        domain.KYCSessionPendingReview,
	}))

	s.Run("non-admin cannot list", func() {
		_, err := s.svc.PendingReviews(s.userCtx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("queue joins users, skips orphans, orders by upload id", func() {
		queue, err := s.svc.PendingReviews(s.adminCtx)
		s.Require().NoError(err)
		s.Require().Len(queue, 2)
		s.Equal("aaaaa-aa", queue[0].UploadID)
		s.Equal("alice@example.com", queue[0].User.Email)
		s.Equal("bbbbb-bb", queue[1].UploadID)
	})
}

// TestSessionStatus verifies owner-or-admin visibility.
func (s *KYCSuite) TestSessionStatus() {
	id := s.upload()

	s.Run("owner can read", func() {
		session, err := s.svc.SessionStatus(s.userCtx, id)
		s.Require().NoError(err)
		s.Equal(domain.Principal("aaaaa-aa"), session.UserPrincipal)
	})

	s.Run("admin can read", func() {
		_, err := s.svc.SessionStatus(s.adminCtx, id)
		s.NoError(err)
	})

	s.Run("other users cannot read", func() {
		other := requestcontext.WithCaller(context.Background(), "bbbbb-bb")
		_, err := s.svc.SessionStatus(other, id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// TestUpdateKYCStatus verifies the admin override path.
func (s *KYCSuite) TestUpdateKYCStatus() {
	s.Run("admin can override", func() {
		user, err := s.svc.UpdateKYCStatus(s.adminCtx, "aaaaa-aa", domain.KYCVerified)
		s.Require().NoError(err)
		s.Equal(domain.KYCVerified, user.KYCStatus)
		s.Equal(uint8(1), user.KYCTier)
	})

	s.Run("unknown status is invalid", func() {
		_, err := s.svc.UpdateKYCStatus(s.adminCtx, "aaaaa-aa", domain.KYCStatus("weird"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("non-admin cannot override", func() {
		_, err := s.svc.UpdateKYCStatus(s.userCtx, "aaaaa-aa", domain.KYCRejected)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown user is not found", func() {
		_, err := s.svc.UpdateKYCStatus(s.adminCtx, "zzzzz-zz", domain.KYCVerified)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
