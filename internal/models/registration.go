package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus of the off-band payment evidence attached to a registration.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentVerified PaymentStatus = "VERIFIED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// LifecycleState is derived from (payment_status, is_active); it is never stored.
type LifecycleState string

const (
	StatePendingVerification LifecycleState = "pending_verification"
	StateVerified            LifecycleState = "verified"
	StateRejected            LifecycleState = "rejected"
	StateWithdrawn           LifecycleState = "withdrawn"
)

// Registration is one (user, event) registration attempt and its lifecycle state.
// Rows are never deleted; withdrawal and rejection are modeled as state.
type Registration struct {
	ID              uuid.UUID     `json:"id"`
	UserID          uuid.UUID     `json:"user_id"`
	EventID         uuid.UUID     `json:"event_id"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	IsActive        bool          `json:"is_active"`
	TransactionID   string        `json:"transaction_id"`
	EvidenceRef     string        `json:"evidence_ref,omitempty"`
	EvidenceURL     string        `json:"evidence_url,omitempty"`
	RejectionReason string        `json:"rejection_reason,omitempty"`

	// Contact snapshot taken at submission time; may drift from the user's profile.
	RegistrantName   string `json:"registrant_name"`
	RegistrantEmail  string `json:"registrant_email"`
	RegistrantMobile string `json:"registrant_mobile,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentIsVerified reports whether the payment evidence has been verified.
// Derived from PaymentStatus so the two can never disagree.
func (r *Registration) PaymentIsVerified() bool {
	return r.PaymentStatus == PaymentVerified
}

// State derives the lifecycle state from (payment_status, is_active).
func (r *Registration) State() LifecycleState {
	switch {
	case r.PaymentStatus == PaymentRejected:
		return StateRejected
	case !r.IsActive:
		return StateWithdrawn
	case r.PaymentStatus == PaymentVerified:
		return StateVerified
	default:
		return StatePendingVerification
	}
}

// MarshalJSON includes the derived payment_verified flag and lifecycle state.
func (r Registration) MarshalJSON() ([]byte, error) {
	type alias Registration
	return json.Marshal(struct {
		alias
		PaymentVerifiedFlag bool           `json:"payment_verified"`
		State               LifecycleState `json:"state"`
	}{
		alias:               alias(r),
		PaymentVerifiedFlag: r.PaymentIsVerified(),
		State:               r.State(),
	})
}
