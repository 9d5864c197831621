package model

import "time"

// InviteStatus is derived from the stored timestamps; it is never
// persisted, so it cannot drift from the row it describes.
type InviteStatus string

const (
	InviteActive   InviteStatus = "active"
	InviteExpired  InviteStatus = "expired"
	InviteRedeemed InviteStatus = "redeemed"
)

// ScheduleShareInvite is a token-keyed invitation to a single day
// schedule. The token is the sole lookup key; the numeric id is only
// used on owner-scoped management endpoints.
type ScheduleShareInvite struct {
	ID               int64      `json:"id"`
	ScheduleID       int64      `json:"scheduleId"`
	Token            string     `json:"token"`
	InvitedEmail     *string    `json:"invitedEmail"`
	CanEdit          bool       `json:"canEdit"`
	ExpiresAt        *time.Time `json:"expiresAt"`
	RedeemedAt       *time.Time `json:"redeemedAt"`
	RedeemedByUserID *int64     `json:"redeemedByUserId"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Expired reports whether the invite's window has passed at the given
// instant. A nil ExpiresAt never expires.
func (i *ScheduleShareInvite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

// Status computes the invite's lifecycle state at the given instant.
// Expiry wins over redemption: a redeemed invite past its window still
// reports expired, matching acceptance-time checks.
func (i *ScheduleShareInvite) Status(now time.Time) InviteStatus {
	if i.Expired(now) {
		return InviteExpired
	}
	if i.RedeemedAt != nil {
		return InviteRedeemed
	}
	return InviteActive
}
