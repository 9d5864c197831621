package store

import (
	"database/sql"
	"fmt"

	"github.com/tabine/shiori/internal/model"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func scanSchedule(scanner interface{ Scan(...any) error }) (*model.DaySchedule, error) {
	var d model.DaySchedule
	err := scanner.Scan(&d.ID, &d.OwnerUserID, &d.Date, &d.Title, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const scheduleCols = `id, owner_user_id, date, title, notes, created_at, updated_at`

func (s *ScheduleStore) GetByID(id int64) (*model.DaySchedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleCols+` FROM day_schedules WHERE id = ?`, id)
	d, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return d, nil
}

func (s *ScheduleStore) GetByOwnerAndDate(ownerID int64, date string) (*model.DaySchedule, error) {
	row := s.db.QueryRow(
		`SELECT `+scheduleCols+` FROM day_schedules WHERE owner_user_id = ? AND date = ?`,
		ownerID, date,
	)
	d, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule by owner and date: %w", err)
	}
	return d, nil
}

// Upsert creates the owner's schedule for the date if missing and
// updates title/notes. A nil field leaves the stored value untouched.
// The (owner, date) unique index makes racing upserts converge.
func (s *ScheduleStore) Upsert(ownerID int64, date string, title, notes *string) (*model.DaySchedule, error) {
	var titleVal, notesVal sql.NullString
	if title != nil {
		titleVal = sql.NullString{String: *title, Valid: true}
	}
	if notes != nil {
		notesVal = sql.NullString{String: *notes, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO day_schedules (owner_user_id, date, title, notes)
		 VALUES (?, ?, COALESCE(?, ''), COALESCE(?, ''))
		 ON CONFLICT(owner_user_id, date) DO UPDATE SET
		   title = COALESCE(?, day_schedules.title),
		   notes = COALESCE(?, day_schedules.notes),
		   updated_at = CURRENT_TIMESTAMP`,
		ownerID, date, titleVal, notesVal, titleVal, notesVal,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}
	return s.GetByOwnerAndDate(ownerID, date)
}

// EnsureForDate creates an empty schedule for (owner, date) when none
// exists yet. Used by item creation and by share/invite creation, which
// may target a date the owner has not otherwise touched.
func (s *ScheduleStore) EnsureForDate(ownerID int64, date string) (*model.DaySchedule, error) {
	return s.Upsert(ownerID, date, nil, nil)
}

func (s *ScheduleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM day_schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
