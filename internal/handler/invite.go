package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/model"
	"github.com/tabine/shiori/internal/store"
)

const (
	defaultInviteTTL = 14 * 24 * time.Hour
	minInviteTTL     = time.Hour
	maxInviteTTL     = 90 * 24 * time.Hour
)

// InviteHandler owns the token-based invitation flow: owner-scoped
// create/list/revoke, unauthenticated inspection, and authenticated
// acceptance that converts the token into a persistent share.
type InviteHandler struct {
	schedules    *store.ScheduleStore
	invites      *store.InviteStore
	users        *store.UserStore
	exposeErrors bool
	logger       *slog.Logger
}

func NewInviteHandler(schedules *store.ScheduleStore, invites *store.InviteStore, users *store.UserStore, exposeErrors bool, logger *slog.Logger) *InviteHandler {
	return &InviteHandler{
		schedules:    schedules,
		invites:      invites,
		users:        users,
		exposeErrors: exposeErrors,
		logger:       logger,
	}
}

type createInviteRequest struct {
	Date     string  `json:"date"`
	Email    *string `json:"email"`
	CanEdit  bool    `json:"canEdit"`
	TTLHours *int    `json:"ttlHours"`
}

// Create issues an invite link token for the caller's day, creating the
// schedule implicitly when needed. TTL defaults to 14 days and must
// stay within [1 hour, 90 days]; out-of-range values are rejected, not
// clamped.
func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	ttl := defaultInviteTTL
	if req.TTLHours != nil {
		ttl = time.Duration(*req.TTLHours) * time.Hour
		if ttl < minInviteTTL || ttl > maxInviteTTL {
			writeError(w, http.StatusBadRequest, "ttlHours must be between 1 hour and 90 days")
			return
		}
	}

	sched, err := h.schedules.EnsureForDate(auth.UserID(r.Context()), date)
	if err != nil {
		writeInternal(h.logger, w, "ensure schedule", err, h.exposeErrors)
		return
	}

	invite, err := h.invites.Create(sched.ID, req.Email, req.CanEdit, time.Now().Add(ttl))
	if err != nil {
		writeInternal(h.logger, w, "create invite", err, h.exposeErrors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invite": invite})
}

// List returns the caller's invites for a date, most recent first. This
// is the owner-trusted view: tokens are included here and nowhere else.
func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r.URL.Query().Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	sched, err := h.schedules.GetByOwnerAndDate(auth.UserID(r.Context()), date)
	if err != nil {
		writeInternal(h.logger, w, "load schedule", err, h.exposeErrors)
		return
	}
	if sched == nil {
		writeJSON(w, http.StatusOK, map[string]any{"invites": []model.ScheduleShareInvite{}})
		return
	}

	invites, err := h.invites.ListBySchedule(sched.ID)
	if err != nil {
		writeInternal(h.logger, w, "list invites", err, h.exposeErrors)
		return
	}
	if invites == nil {
		invites = []model.ScheduleShareInvite{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": invites})
}

// Revoke deletes the invite row outright. Shares granted by an earlier
// redemption stay in place. Revoking an already-gone invite succeeds.
func (h *InviteHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	invite, err := h.invites.GetByID(id)
	if err != nil {
		writeInternal(h.logger, w, "load invite", err, h.exposeErrors)
		return
	}
	if invite == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	sched, err := h.schedules.GetByID(invite.ScheduleID)
	if err != nil {
		writeInternal(h.logger, w, "load schedule", err, h.exposeErrors)
		return
	}
	if sched == nil || sched.OwnerUserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "only the owner can revoke an invite")
		return
	}

	if err := h.invites.Delete(id); err != nil {
		writeInternal(h.logger, w, "delete invite", err, h.exposeErrors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type inviteMeta struct {
	Owner        model.UserSummary `json:"owner"`
	Date         string            `json:"date"`
	CanEdit      bool              `json:"canEdit"`
	InvitedEmail *string           `json:"invitedEmail"`
	ExpiresAt    *time.Time        `json:"expiresAt"`
	RedeemedAt   *time.Time        `json:"redeemedAt"`
	Expired      bool              `json:"expired"`
}

// Inspect resolves a token to its metadata without authentication, so
// an invitee can see what they were offered before logging in. Unknown
// tokens are a plain not-found; token entropy is the anti-enumeration
// guarantee.
func (h *InviteHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	invite, err := h.invites.GetByToken(token)
	if err != nil {
		writeInternal(h.logger, w, "load invite", err, h.exposeErrors)
		return
	}
	if invite == nil {
		writeError(w, http.StatusNotFound, "invite not found")
		return
	}

	sched, err := h.schedules.GetByID(invite.ScheduleID)
	if err != nil || sched == nil {
		writeInternal(h.logger, w, "load schedule", err, h.exposeErrors)
		return
	}
	owner, err := h.users.GetByID(sched.OwnerUserID)
	if err != nil || owner == nil {
		writeInternal(h.logger, w, "load owner", err, h.exposeErrors)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"invite": inviteMeta{
		Owner:        owner.Summary(),
		Date:         sched.Date,
		CanEdit:      invite.CanEdit,
		InvitedEmail: invite.InvitedEmail,
		ExpiresAt:    invite.ExpiresAt,
		RedeemedAt:   invite.RedeemedAt,
		Expired:      invite.Expired(time.Now()),
	}})
}

// Accept redeems the token for the authenticated caller and reports the
// owner and date so the client can navigate to the day. Re-acceptance
// by the same user is a no-op success; everyone else hits the state
// machine's terminal answers.
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ident, _ := auth.FromContext(r.Context())

	result, err := h.invites.Accept(r.PathValue("token"), ident.UserID, ident.Email, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInviteNotFound):
			writeError(w, http.StatusNotFound, "invite not found")
		case errors.Is(err, store.ErrInviteExpired):
			writeError(w, http.StatusGone, "invite has expired")
		case errors.Is(err, store.ErrInviteRedeemed):
			writeError(w, http.StatusConflict, "invite already redeemed")
		case errors.Is(err, store.ErrInviteEmailMismatch):
			writeError(w, http.StatusForbidden, "this invite is for a different email address")
		default:
			writeInternal(h.logger, w, "accept invite", err, h.exposeErrors)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ownerId": result.OwnerID,
		"date":    result.Date,
		"canEdit": result.CanEdit,
	})
}
