package model

import "time"

// ItemKind discriminates plain entries from travel legs.
const (
	KindGeneral = "GENERAL"
	KindMove    = "MOVE"
)

// DaySchedule is one user's plan for one calendar date. The
// (OwnerUserID, Date) pair is unique; Date is a "YYYY-MM-DD" string.
type DaySchedule struct {
	ID          int64          `json:"id"`
	OwnerUserID int64          `json:"ownerUserId"`
	Date        string         `json:"date"`
	Title       string         `json:"title"`
	Notes       string         `json:"notes"`
	Items       []ScheduleItem `json:"items"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// ScheduleItem is a timed entry within a day. StartTime and EndTime are
// UTC instants built from the day's date plus a wall-clock "HH:mm".
// EndTime is stored verbatim even when it precedes StartTime.
type ScheduleItem struct {
	ID             int64      `json:"id"`
	ScheduleID     int64      `json:"scheduleId"`
	Title          string     `json:"title"`
	Emoji          string     `json:"emoji"`
	Color          string     `json:"color"`
	Kind           string     `json:"kind"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	Location       string     `json:"location"`
	DeparturePlace string     `json:"departurePlace"`
	ArrivalPlace   string     `json:"arrivalPlace"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
