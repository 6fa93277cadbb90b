/**
 * @description
 * This file defines the user profile domain model. A profile is created the first
 * time an authenticated user syncs with the backend and is never deleted; KYC state
 * and the administrator flag are mutated only through admin endpoints.
 *
 * @dependencies
 * - time: Standard Go library.
 * - github.com/google/uuid: For profile identifiers.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// KYC verification states carried on a profile.
const (
	KYCStatusPending  = "pending"
	KYCStatusVerified = "verified"
	KYCStatusRejected = "rejected"
)

// Profile represents a registered user of the banking application.
// Identity itself is owned by Clerk; ClerkUserID is the join key between the
// identity provider's subject and our internal records.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	ClerkUserID string    `json:"clerk_user_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone,omitempty"`
	Address     string    `json:"address,omitempty"`
	KYCStatus   string    `json:"kyc_status"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SyncProfileRequest is the DTO for the first-sign-in profile sync endpoint.
type SyncProfileRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// SetKYCStatusRequest is the DTO for the admin KYC mutation endpoint.
type SetKYCStatusRequest struct {
	KYCStatus string `json:"kyc_status"`
}

// SetAdminRequest is the DTO for the admin flag mutation endpoint.
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// IsValidKYCStatus reports whether s is one of the recognized KYC states.
func IsValidKYCStatus(s string) bool {
	switch s {
	case KYCStatusPending, KYCStatusVerified, KYCStatusRejected:
		return true
	}
	return false
}
