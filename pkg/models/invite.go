package models

import "time"

// InviteTTL is the fixed validity window of an email invite.
const InviteTTL = 7 * 24 * time.Hour

// ProjectInvite is an email-addressed, role-carrying access grant with a fixed
// 7-day expiry. Only issuance and listing happen here; acceptance is a separate
// flow. Multiple invites to the same address are allowed.
type ProjectInvite struct {
	ID         string     `json:"id" db:"id"`
	ProjectID  string     `json:"project_id" db:"project_id"`
	Email      string     `json:"email" db:"email"`
	Role       ShareRole  `json:"role" db:"role"`
	Token      string     `json:"token" db:"token"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
