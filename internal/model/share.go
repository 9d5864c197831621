package model

import "time"

// ScheduleShare grants SharedWithUserID view access to a schedule, and
// edit access when CanEdit is set. Unique per (schedule, user).
type ScheduleShare struct {
	ID               int64        `json:"id"`
	ScheduleID       int64        `json:"scheduleId"`
	SharedWithUserID int64        `json:"sharedWithUserId"`
	CanEdit          bool         `json:"canEdit"`
	SharedWith       *UserSummary `json:"sharedWith,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// SharedDay is a reverse-lookup row: a schedule someone else has shared
// with the current user.
type SharedDay struct {
	Owner   UserSummary `json:"owner"`
	Date    string      `json:"date"`
	CanEdit bool        `json:"canEdit"`
}
