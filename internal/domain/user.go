package domain

// KYCStatus is the verification state of a user.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
	KYCExpired  KYCStatus = "expired"
)

// User is the identity-keyed account record. Monetary fields are integer
// cents except TotalInvested/WalletBalance adjustments coming from the mint
// pipeline, which are 6-decimal OUSG units; both only move through the
// defined transitions (deposit, withdraw, purchase, deposit-mint, redeem).
type User struct {
	Principal        Principal `json:"principal"`
	Email            string    `json:"email"`
	PhoneNumber      *string   `json:"phone_number,omitempty"`
	Country          string    `json:"country"`
	KYCStatus        KYCStatus `json:"kyc_status"`
	WalletBalance    uint64    `json:"wallet_balance"`
	TotalInvested    uint64    `json:"total_invested"`
	TotalYieldEarned uint64    `json:"total_yield_earned"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        int64     `json:"created_at"`
	UpdatedAt        int64     `json:"updated_at"`

	// Credential-derived attributes. The full-feature schema is canonical;
	// reduced deployments simply leave these at their zero values.
	VCCredentialsRef   *string `json:"vc_credentials_ref,omitempty"`
	LastVCVerification *int64  `json:"last_vc_verification,omitempty"`
	VerifiedAdult      bool    `json:"verified_adult"`
	VerifiedResident   bool    `json:"verified_resident"`
	KYCTier            uint8   `json:"kyc_tier"`
	AccreditedInvestor bool    `json:"accredited_investor"`
	MaxInvestmentLimit uint64  `json:"max_investment_limit"`
}

// IsEligibleForTrading gates the purchase path: verified and active.
func (u *User) IsEligibleForTrading() bool {
	return u.KYCStatus == KYCVerified && u.IsActive
}

// TierInvestmentLimit returns the ceiling implied by the KYC tier, in cents.
func (u *User) TierInvestmentLimit() uint64 {
	switch u.KYCTier {
	case 0:
		return 0
	case 1:
		return 100_000 // $1,000
	case 2:
		return 1_000_000 // $10,000
	case 3:
		return 10_000_000 // $100,000
	default:
		if u.AccreditedInvestor {
			return ^uint64(0)
		}
		return 1_000_000
	}
}

// CanMakeDeposit decides deposit eligibility. Strict mode requires full KYC
// verification and the tier-based limit; relaxed mode only requires an active
// account under the absolute account ceiling. The mode is a deployment
// configuration, never a compiled-in constant.
func (u *User) CanMakeDeposit(amount uint64, strict bool) bool {
	if !u.IsActive {
		return false
	}
	if strict {
		return u.KYCStatus == KYCVerified && amount <= u.TierInvestmentLimit()
	}
	return amount <= u.MaxInvestmentLimit
}
