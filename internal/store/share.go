package store

import (
	"database/sql"
	"fmt"

	"github.com/tabine/shiori/internal/model"
)

type ShareStore struct {
	db *sql.DB
}

func NewShareStore(db *sql.DB) *ShareStore {
	return &ShareStore{db: db}
}

func scanShare(scanner interface{ Scan(...any) error }) (*model.ScheduleShare, error) {
	var sh model.ScheduleShare
	var canEdit int
	err := scanner.Scan(&sh.ID, &sh.ScheduleID, &sh.SharedWithUserID, &canEdit, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sh.CanEdit = canEdit != 0
	return &sh, nil
}

const shareCols = `id, schedule_id, user_id, can_edit, created_at, updated_at`

// Get returns the share row for (schedule, user), or nil when the user
// holds no share. Absence means no access, never an error.
func (s *ShareStore) Get(scheduleID, userID int64) (*model.ScheduleShare, error) {
	row := s.db.QueryRow(
		`SELECT `+shareCols+` FROM schedule_shares WHERE schedule_id = ? AND user_id = ?`,
		scheduleID, userID,
	)
	sh, err := scanShare(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share: %w", err)
	}
	return sh, nil
}

// Upsert grants or updates a share. The (schedule, user) unique index is
// the backstop for concurrent upserts: two racing calls converge to one
// row carrying the last writer's can_edit.
func (s *ShareStore) Upsert(scheduleID, userID int64, canEdit bool) (*model.ScheduleShare, error) {
	canEditInt := 0
	if canEdit {
		canEditInt = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO schedule_shares (schedule_id, user_id, can_edit) VALUES (?, ?, ?)
		 ON CONFLICT(schedule_id, user_id) DO UPDATE SET
		   can_edit = excluded.can_edit,
		   updated_at = CURRENT_TIMESTAMP`,
		scheduleID, userID, canEditInt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert share: %w", err)
	}
	return s.Get(scheduleID, userID)
}

// Delete revokes a share. Deleting an absent share is a no-op.
func (s *ShareStore) Delete(scheduleID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM schedule_shares WHERE schedule_id = ? AND user_id = ?`,
		scheduleID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// ListBySchedule returns all shares for a schedule with grantee
// summaries, ordered by share id ascending.
func (s *ShareStore) ListBySchedule(scheduleID int64) ([]model.ScheduleShare, error) {
	rows, err := s.db.Query(
		`SELECT sh.id, sh.schedule_id, sh.user_id, sh.can_edit, sh.created_at, sh.updated_at,
		        u.id, u.name, u.email, u.avatar_url
		 FROM schedule_shares sh
		 JOIN users u ON u.id = sh.user_id
		 WHERE sh.schedule_id = ?
		 ORDER BY sh.id ASC`,
		scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query shares: %w", err)
	}
	defer rows.Close()

	var shares []model.ScheduleShare
	for rows.Next() {
		var sh model.ScheduleShare
		var canEdit int
		var su model.UserSummary
		var email sql.NullString
		err := rows.Scan(
			&sh.ID, &sh.ScheduleID, &sh.SharedWithUserID, &canEdit, &sh.CreatedAt, &sh.UpdatedAt,
			&su.ID, &su.Name, &email, &su.AvatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		sh.CanEdit = canEdit != 0
		if email.Valid {
			su.Email = &email.String
		}
		sh.SharedWith = &su
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

// ListForUserOnDate is the reverse lookup: every schedule on the given
// date that someone else has shared with the user.
func (s *ShareStore) ListForUserOnDate(userID int64, date string) ([]model.SharedDay, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.name, u.email, u.avatar_url, d.date, sh.can_edit
		 FROM schedule_shares sh
		 JOIN day_schedules d ON d.id = sh.schedule_id
		 JOIN users u ON u.id = d.owner_user_id
		 WHERE sh.user_id = ? AND d.date = ?
		 ORDER BY sh.id ASC`,
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("query shared days: %w", err)
	}
	defer rows.Close()

	var days []model.SharedDay
	for rows.Next() {
		var sd model.SharedDay
		var canEdit int
		var email sql.NullString
		if err := rows.Scan(&sd.Owner.ID, &sd.Owner.Name, &email, &sd.Owner.AvatarURL, &sd.Date, &canEdit); err != nil {
			return nil, fmt.Errorf("scan shared day: %w", err)
		}
		if email.Valid {
			sd.Owner.Email = &email.String
		}
		sd.CanEdit = canEdit != 0
		days = append(days, sd)
	}
	return days, rows.Err()
}
