package model

import "time"

// User is created on first successful Google sign-in and refreshed on
// every subsequent login. Email is nil until the identity provider
// reports a verified address; PublicSlug is nil until first minted.
type User struct {
	ID         int64     `json:"id"`
	GoogleSub  string    `json:"-"`
	Email      *string   `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatarUrl"`
	PublicSlug *string   `json:"publicSlug"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Summary is the subset of a user exposed to other users (share lists,
// invite metadata). It never carries the email of a third party except
// where the viewer is the schedule owner.
type UserSummary struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatarUrl"`
}

// Summary converts a full user row to its public summary.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
}
