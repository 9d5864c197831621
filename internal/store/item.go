package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tabine/shiori/internal/model"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

// ItemParams carries the writable fields of a schedule item. For Update,
// nil pointers leave the stored value untouched.
type ItemParams struct {
	Title          *string
	Emoji          *string
	Color          *string
	Kind           *string
	StartTime      *time.Time
	EndTime        *time.Time
	ClearEndTime   bool
	Location       *string
	DeparturePlace *string
	ArrivalPlace   *string
	Notes          *string
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.ScheduleItem, error) {
	var it model.ScheduleItem
	var end sql.NullTime

	err := scanner.Scan(
		&it.ID, &it.ScheduleID, &it.Title, &it.Emoji, &it.Color, &it.Kind,
		&it.StartTime, &end, &it.Location, &it.DeparturePlace, &it.ArrivalPlace,
		&it.Notes, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		it.EndTime = &t
	}
	return &it, nil
}

const itemCols = `id, schedule_id, title, emoji, color, kind, start_time, end_time, location, departure_place, arrival_place, notes, created_at, updated_at`

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Create inserts an item. StartTime is required by the caller; EndTime
// is stored verbatim even when it precedes StartTime.
func (s *ItemStore) Create(scheduleID int64, title string, start time.Time, p ItemParams) (*model.ScheduleItem, error) {
	kind := model.KindGeneral
	if p.Kind != nil {
		kind = *p.Kind
	}
	var endVal sql.NullTime
	if p.EndTime != nil {
		endVal = sql.NullTime{Time: p.EndTime.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO schedule_items
		   (schedule_id, title, emoji, color, kind, start_time, end_time, location, departure_place, arrival_place, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scheduleID, title, strOrEmpty(p.Emoji), strOrEmpty(p.Color), kind,
		start.UTC(), endVal, strOrEmpty(p.Location), strOrEmpty(p.DeparturePlace),
		strOrEmpty(p.ArrivalPlace), strOrEmpty(p.Notes),
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) GetByID(id int64) (*model.ScheduleItem, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM schedule_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (s *ItemStore) ListBySchedule(scheduleID int64) ([]model.ScheduleItem, error) {
	rows, err := s.db.Query(
		`SELECT `+itemCols+` FROM schedule_items WHERE schedule_id = ? ORDER BY start_time ASC, id ASC`,
		scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []model.ScheduleItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// Update applies the non-nil fields of p to the item. ClearEndTime
// removes the end timestamp outright.
func (s *ItemStore) Update(id int64, p ItemParams) (*model.ScheduleItem, error) {
	current, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&current.Title, p.Title)
	apply(&current.Emoji, p.Emoji)
	apply(&current.Color, p.Color)
	apply(&current.Kind, p.Kind)
	apply(&current.Location, p.Location)
	apply(&current.DeparturePlace, p.DeparturePlace)
	apply(&current.ArrivalPlace, p.ArrivalPlace)
	apply(&current.Notes, p.Notes)
	if p.StartTime != nil {
		current.StartTime = p.StartTime.UTC()
	}
	if p.ClearEndTime {
		current.EndTime = nil
	} else if p.EndTime != nil {
		t := p.EndTime.UTC()
		current.EndTime = &t
	}

	var endVal sql.NullTime
	if current.EndTime != nil {
		endVal = sql.NullTime{Time: *current.EndTime, Valid: true}
	}

	_, err = s.db.Exec(
		`UPDATE schedule_items SET
		   title = ?, emoji = ?, color = ?, kind = ?, start_time = ?, end_time = ?,
		   location = ?, departure_place = ?, arrival_place = ?, notes = ?,
		   updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		current.Title, current.Emoji, current.Color, current.Kind, current.StartTime,
		endVal, current.Location, current.DeparturePlace, current.ArrivalPlace,
		current.Notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM schedule_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}
