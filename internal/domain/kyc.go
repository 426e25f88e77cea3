package domain

// FreeKYCStatus is the review state of a document upload session.
type FreeKYCStatus string

const (
	KYCSessionProcessing     FreeKYCStatus = "processing"
	KYCSessionPendingReview  FreeKYCStatus = "pending_review"
	KYCSessionAutoApproved   FreeKYCStatus = "auto_approved"
	KYCSessionManualApproved FreeKYCStatus = "manual_approved"
	KYCSessionRejected       FreeKYCStatus = "rejected"
	KYCSessionExpired        FreeKYCStatus = "expired"
)

// FreeKYCSession is one document upload attempt. It is created on upload and
// mutated exactly once by an admin review; it never auto-transitions.
// Document fields are references into the external file store, not bytes.
type FreeKYCSession struct {
	UserPrincipal       Principal     `json:"user_principal"`
	DocumentFrontPage   string        `json:"document_front_page"`
	DocumentBackPage    string        `json:"document_back_page"`
	SelfieWithDocument  string        `json:"selfie_with_document"`
	NeedsManualReview   bool          `json:"needs_manual_review"`
	Status              FreeKYCStatus `json:"status"`
	CreatedAt           int64         `json:"created_at"`
	ReviewedAt          *int64        `json:"reviewed_at,omitempty"`
	ReviewerNotes       *string       `json:"reviewer_notes,omitempty"`
}

// UserAndKYCSession pairs a pending session with its owning user for the
// admin review queue.
type UserAndKYCSession struct {
	User       User           `json:"user"`
	KYCSession FreeKYCSession `json:"kyc_session"`
	UploadID   string         `json:"upload_id"`
}
