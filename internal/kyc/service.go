// Package kyc owns document upload sessions and their admin review. Document
// bytes never pass through this service; uploads carry references into the
// external file store.
package kyc

import (
	"context"
	"log/slog"
	"strings"

	"ustbills/internal/domain"
	"ustbills/internal/guard"
	"ustbills/internal/store"
	dErrors "ustbills/pkg/domain-errors"
	"ustbills/pkg/platform/sentinel"
	"ustbills/pkg/requestcontext"
)

// UploadRequest carries the three document artifact references.
type UploadRequest struct {
	DocumentFrontPage  string
	DocumentBackPage   string
	SelfieWithDocument string
}

// ReviewRequest is an admin verdict on a pending session.
type ReviewRequest struct {
	UploadID string
	Approved bool
	Notes    *string
}

type Service struct {
	users    *store.Users
	sessions *store.KYCSessions
	guard    *guard.Service
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(st *store.Store, g *guard.Service, opts ...Option) *Service {
	s := &Service{
		users:    st.Users,
		sessions: st.KYCSessions,
		guard:    g,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadDocuments opens (or replaces) the caller's review session. The upload
// ID is the caller's principal text, so each user has at most one live
// session and a re-upload supersedes the previous one.
func (s *Service) UploadDocuments(ctx context.Context, req UploadRequest) (string, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return "", dErrors.New(dErrors.CodeAnonymousCaller, "document upload requires an authenticated caller")
	}
	if req.DocumentFrontPage == "" || req.DocumentBackPage == "" || req.SelfieWithDocument == "" {
		return "", dErrors.Validation("all three document references are required")
	}
	if _, err := s.users.Get(ctx, caller); err != nil {
		if err == sentinel.ErrNotFound {
			return "", dErrors.New(dErrors.CodeNotFound, "user not registered")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}

	uploadID := string(caller)
	session := domain.FreeKYCSession{
		UserPrincipal:      caller,
		DocumentFrontPage:  req.DocumentFrontPage,
		DocumentBackPage:   req.DocumentBackPage,
		SelfieWithDocument: req.SelfieWithDocument,
		NeedsManualReview:  true,
		Status:             domain.KYCSessionPendingReview,
		CreatedAt:          requestcontext.Now(ctx).Unix(),
	}
	if err := s.sessions.Put(ctx, uploadID, session); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "store kyc session")
	}
	s.logger.InfoContext(ctx, "kyc documents uploaded", "principal", string(caller))
	return uploadID, nil
}

// AdminReview settles a pending session. Approval marks the user KYC-Verified
// and elevates tier 0 to tier 1; rejection leaves the user untouched. A
// session is reviewed at most once.
func (s *Service) AdminReview(ctx context.Context, req ReviewRequest) (domain.FreeKYCSession, error) {
	if err := s.guard.AssertAdmin(ctx, requestcontext.Caller(ctx)); err != nil {
		return domain.FreeKYCSession{}, err
	}
	session, err := s.sessions.Get(ctx, req.UploadID)
	if err != nil {
		if err == sentinel.ErrNotFound {
			return domain.FreeKYCSession{}, dErrors.New(dErrors.CodeNotFound, "kyc session not found")
		}
		return domain.FreeKYCSession{}, dErrors.Wrap(err, dErrors.CodeInternal, "load kyc session")
	}
	if session.Status != domain.KYCSessionPendingReview {
		return domain.FreeKYCSession{}, dErrors.Newf(dErrors.CodeStateConflict,
			"session already settled as %s", session.Status)
	}

	now := requestcontext.Now(ctx).Unix()
	if req.Approved {
		session.Status = domain.KYCSessionManualApproved
	} else {
		session.Status = domain.KYCSessionRejected
	}
	session.ReviewedAt = &now
	session.ReviewerNotes = req.Notes
	if err := s.sessions.Update(ctx, req.UploadID, session); err != nil {
		return domain.FreeKYCSession{}, dErrors.Wrap(err, dErrors.CodeInternal, "settle kyc session")
	}

	if req.Approved {
		if err := s.setUserVerified(ctx, session.UserPrincipal, now); err != nil {
			return domain.FreeKYCSession{}, err
		}
	}
	s.logger.InfoContext(ctx, "kyc session reviewed",
		"upload_id", req.UploadID, "approved", req.Approved)
	return session, nil
}

func (s *Service) setUserVerified(ctx context.Context, p domain.Principal, now int64) error {
	user, err := s.users.Get(ctx, p)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load user for verification")
	}
	user.KYCStatus = domain.KYCVerified
	if user.KYCTier == 0 {
		user.KYCTier = 1
	}
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "mark user verified")
	}
	return nil
}

// PendingReviews returns the admin review queue in upload ID order, each
// session joined with its user. Sessions whose user record has disappeared
// are skipped.
func (s *Service) PendingReviews(ctx context.Context) ([]domain.UserAndKYCSession, error) {
	if err := s.guard.AssertAdmin(ctx, requestcontext.Caller(ctx)); err != nil {
		return nil, err
	}
	pending, err := s.sessions.PendingReviews(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list pending sessions")
	}
	out := make([]domain.UserAndKYCSession, 0, len(pending))
	for _, p := range pending {
		user, err := s.users.Get(ctx, p.Session.UserPrincipal)
		if err == sentinel.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "join session user")
		}
		out = append(out, domain.UserAndKYCSession{User: user, KYCSession: p.Session, UploadID: p.UploadID})
	}
	return out, nil
}

// SessionStatus returns a session to its owner or to an admin.
func (s *Service) SessionStatus(ctx context.Context, uploadID string) (domain.FreeKYCSession, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsAnonymous() {
		return domain.FreeKYCSession{}, dErrors.New(dErrors.CodeAnonymousCaller, "no authenticated caller")
	}
	session, err := s.sessions.Get(ctx, uploadID)
	if err != nil {
		if err == sentinel.ErrNotFound {
			return domain.FreeKYCSession{}, dErrors.New(dErrors.CodeNotFound, "kyc session not found")
		}
		return domain.FreeKYCSession{}, dErrors.Wrap(err, dErrors.CodeInternal, "load kyc session")
	}
	if session.UserPrincipal == caller {
		return session, nil
	}
	ok, err := s.guard.IsAuthorized(ctx, caller)
	if err != nil {
		return domain.FreeKYCSession{}, dErrors.Wrap(err, dErrors.CodeInternal, "check admin set")
	}
	if !ok {
		return domain.FreeKYCSession{}, dErrors.New(dErrors.CodeUnauthorized, "session belongs to another user")
	}
	return session, nil
}

// UpdateKYCStatus is the admin override of a user's verification state,
// bypassing the session workflow.
func (s *Service) UpdateKYCStatus(ctx context.Context, p domain.Principal, status domain.KYCStatus) (domain.User, error) {
	if err := s.guard.AssertAdmin(ctx, requestcontext.Caller(ctx)); err != nil {
		return domain.User{}, err
	}
	switch status {
	case domain.KYCPending, domain.KYCVerified, domain.KYCRejected, domain.KYCExpired:
	default:
		return domain.User{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown kyc status %q", status)
	}
	user, err := s.users.Get(ctx, p)
	if err != nil {
		if err == sentinel.ErrNotFound {
			return domain.User{}, dErrors.New(dErrors.CodeNotFound, "user not registered")
		}
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	user.KYCStatus = status
	if status == domain.KYCVerified && user.KYCTier == 0 {
		user.KYCTier = 1
	}
	user.UpdatedAt = requestcontext.Now(ctx).Unix()
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "update kyc status")
	}
	s.logger.InfoContext(ctx, "kyc status overridden",
		"principal", string(p), "status", strings.ToLower(string(status)))
	return user, nil
}
