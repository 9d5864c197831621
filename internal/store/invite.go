package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tabine/shiori/internal/model"
)

// Acceptance outcomes that the handler layer maps onto the error
// surface. Everything else bubbles up as an internal failure.
var (
	ErrInviteNotFound      = errors.New("invite not found")
	ErrInviteExpired       = errors.New("invite expired")
	ErrInviteRedeemed      = errors.New("invite already redeemed")
	ErrInviteEmailMismatch = errors.New("invite email mismatch")
)

type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInvite(scanner interface{ Scan(...any) error }) (*model.ScheduleShareInvite, error) {
	var inv model.ScheduleShareInvite
	var invitedEmail sql.NullString
	var canEdit int
	var expiresAt, redeemedAt sql.NullTime
	var redeemedBy sql.NullInt64

	err := scanner.Scan(
		&inv.ID, &inv.ScheduleID, &inv.Token, &invitedEmail, &canEdit,
		&expiresAt, &redeemedAt, &redeemedBy, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if invitedEmail.Valid {
		inv.InvitedEmail = &invitedEmail.String
	}
	inv.CanEdit = canEdit != 0
	if expiresAt.Valid {
		t := expiresAt.Time
		inv.ExpiresAt = &t
	}
	if redeemedAt.Valid {
		t := redeemedAt.Time
		inv.RedeemedAt = &t
	}
	if redeemedBy.Valid {
		inv.RedeemedByUserID = &redeemedBy.Int64
	}
	return &inv, nil
}

const inviteCols = `id, schedule_id, token, invited_email, can_edit, expires_at, redeemed_at, redeemed_by_user_id, created_at`

// generateToken returns 32 bytes of randomness, base64url encoded.
// Token entropy is the only anti-enumeration guarantee the invite
// lookup endpoint relies on.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create issues a new invite for the schedule. The invited email, when
// present, is stored lowercased for case-insensitive matching at
// redemption. Multiple live invites per schedule are allowed.
func (s *InviteStore) Create(scheduleID int64, invitedEmail *string, canEdit bool, expiresAt time.Time) (*model.ScheduleShareInvite, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	var emailVal sql.NullString
	if invitedEmail != nil && strings.TrimSpace(*invitedEmail) != "" {
		emailVal = sql.NullString{String: strings.ToLower(strings.TrimSpace(*invitedEmail)), Valid: true}
	}
	canEditInt := 0
	if canEdit {
		canEditInt = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO schedule_share_invites (schedule_id, token, invited_email, can_edit, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		scheduleID, token, emailVal, canEditInt, expiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert invite: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *InviteStore) GetByID(id int64) (*model.ScheduleShareInvite, error) {
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM schedule_share_invites WHERE id = ?`, id)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return inv, nil
}

// GetByToken is the sole redemption-path lookup; numeric ids are never
// accepted there.
func (s *InviteStore) GetByToken(token string) (*model.ScheduleShareInvite, error) {
	row := s.db.QueryRow(`SELECT `+inviteCols+` FROM schedule_share_invites WHERE token = ?`, token)
	inv, err := scanInvite(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite by token: %w", err)
	}
	return inv, nil
}

// ListBySchedule returns every invite for the schedule, most recent
// first. Owner-trusted view: tokens included.
func (s *InviteStore) ListBySchedule(scheduleID int64) ([]model.ScheduleShareInvite, error) {
	rows, err := s.db.Query(
		`SELECT `+inviteCols+` FROM schedule_share_invites WHERE schedule_id = ? ORDER BY id DESC`,
		scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query invites: %w", err)
	}
	defer rows.Close()

	var invites []model.ScheduleShareInvite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, *inv)
	}
	return invites, rows.Err()
}

// Delete revokes an invite outright. Shares already granted by a prior
// redemption are untouched.
func (s *InviteStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM schedule_share_invites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return nil
}

// AcceptResult identifies the schedule an accepted invite granted
// access to, so the client can navigate straight to it.
type AcceptResult struct {
	OwnerID int64
	Date    string
	CanEdit bool
}

// Accept redeems the invite for the given user, creating or overwriting
// the user's share with the invite's can_edit value. The redemption
// mark and the share write happen in one transaction, and the mark is a
// conditional update on redeemed_at IS NULL so two concurrent accepts
// by different users cannot both pass the conflict check.
//
// Re-acceptance by the user who already redeemed the invite is an
// idempotent success. The caller's verified email must match
// invited_email case-insensitively when that constraint is set.
func (s *InviteStore) Accept(token string, userID int64, userEmail string, now time.Time) (*AcceptResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback()

	var (
		inv     *model.ScheduleShareInvite
		ownerID int64
		date    string
	)
	row := tx.QueryRow(
		`SELECT i.id, i.schedule_id, i.token, i.invited_email, i.can_edit,
		        i.expires_at, i.redeemed_at, i.redeemed_by_user_id, i.created_at,
		        d.owner_user_id, d.date
		 FROM schedule_share_invites i
		 JOIN day_schedules d ON d.id = i.schedule_id
		 WHERE i.token = ?`,
		token,
	)
	inv, ownerID, date, err = scanInviteWithDay(row)
	if err == sql.ErrNoRows {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load invite for accept: %w", err)
	}

	if inv.Expired(now) {
		return nil, ErrInviteExpired
	}
	if inv.RedeemedByUserID != nil {
		if *inv.RedeemedByUserID == userID {
			return &AcceptResult{OwnerID: ownerID, Date: date, CanEdit: inv.CanEdit}, nil
		}
		return nil, ErrInviteRedeemed
	}
	if inv.InvitedEmail != nil {
		if userEmail == "" || !strings.EqualFold(*inv.InvitedEmail, userEmail) {
			return nil, ErrInviteEmailMismatch
		}
	}

	res, err := tx.Exec(
		`UPDATE schedule_share_invites
		 SET redeemed_at = ?, redeemed_by_user_id = ?
		 WHERE id = ? AND redeemed_at IS NULL`,
		now.UTC(), userID, inv.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark invite redeemed: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		// Lost the race to a concurrent accept.
		return nil, ErrInviteRedeemed
	}

	canEditInt := 0
	if inv.CanEdit {
		canEditInt = 1
	}
	_, err = tx.Exec(
		`INSERT INTO schedule_shares (schedule_id, user_id, can_edit) VALUES (?, ?, ?)
		 ON CONFLICT(schedule_id, user_id) DO UPDATE SET
		   can_edit = excluded.can_edit,
		   updated_at = CURRENT_TIMESTAMP`,
		inv.ScheduleID, userID, canEditInt,
	)
	if err != nil {
		return nil, fmt.Errorf("grant share: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit accept tx: %w", err)
	}
	return &AcceptResult{OwnerID: ownerID, Date: date, CanEdit: inv.CanEdit}, nil
}

func scanInviteWithDay(scanner interface{ Scan(...any) error }) (*model.ScheduleShareInvite, int64, string, error) {
	var inv model.ScheduleShareInvite
	var invitedEmail sql.NullString
	var canEdit int
	var expiresAt, redeemedAt sql.NullTime
	var redeemedBy sql.NullInt64
	var ownerID int64
	var date string

	err := scanner.Scan(
		&inv.ID, &inv.ScheduleID, &inv.Token, &invitedEmail, &canEdit,
		&expiresAt, &redeemedAt, &redeemedBy, &inv.CreatedAt,
		&ownerID, &date,
	)
	if err != nil {
		return nil, 0, "", err
	}
	if invitedEmail.Valid {
		inv.InvitedEmail = &invitedEmail.String
	}
	inv.CanEdit = canEdit != 0
	if expiresAt.Valid {
		t := expiresAt.Time
		inv.ExpiresAt = &t
	}
	if redeemedAt.Valid {
		t := redeemedAt.Time
		inv.RedeemedAt = &t
	}
	if redeemedBy.Valid {
		inv.RedeemedByUserID = &redeemedBy.Int64
	}
	return &inv, ownerID, date, nil
}

// DeleteExpired prunes invites whose window closed before the cutoff
// and that were never redeemed. Redeemed invites stay inspectable.
func (s *InviteStore) DeleteExpired(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM schedule_share_invites
		 WHERE expires_at IS NOT NULL AND expires_at <= ? AND redeemed_at IS NULL`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired invites: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
