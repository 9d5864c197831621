package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tabine/shiori/internal/access"
	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/model"
	"github.com/tabine/shiori/internal/store"
)

type DayHandler struct {
	resolver     *access.Resolver
	schedules    *store.ScheduleStore
	items        *store.ItemStore
	exposeErrors bool
	logger       *slog.Logger
}

func NewDayHandler(resolver *access.Resolver, schedules *store.ScheduleStore, items *store.ItemStore, exposeErrors bool, logger *slog.Logger) *DayHandler {
	return &DayHandler{
		resolver:     resolver,
		schedules:    schedules,
		items:        items,
		exposeErrors: exposeErrors,
		logger:       logger,
	}
}

func (h *DayHandler) withItems(sched *model.DaySchedule) (*model.DaySchedule, error) {
	items, err := h.items.ListBySchedule(sched.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.ScheduleItem{}
	}
	sched.Items = items
	return sched, nil
}

// Get returns the day schedule for the requested date, targeting the
// caller's own day unless an ownerId or owner slug is supplied. A
// missing schedule and an unknown slug both answer {"schedule": null};
// an existing day the caller may not view answers 403.
func (h *DayHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r.URL.Query().Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	requesterID := auth.UserID(r.Context())
	ownerID, err := h.resolver.ResolveOwner(requesterID, r.URL.Query().Get("ownerId"), r.URL.Query().Get("owner"))
	if err != nil {
		writeInternal(h.logger, w, "resolve owner", err, h.exposeErrors)
		return
	}

	dec, err := h.resolver.ForDay(requesterID, ownerID, date)
	if err != nil {
		writeInternal(h.logger, w, "authorize day read", err, h.exposeErrors)
		return
	}
	if dec.Schedule == nil {
		writeJSON(w, http.StatusOK, map[string]any{"schedule": nil})
		return
	}
	if !dec.Level.CanView() {
		writeError(w, http.StatusForbidden, "you do not have access to this day")
		return
	}

	sched, err := h.withItems(dec.Schedule)
	if err != nil {
		writeInternal(h.logger, w, "load items", err, h.exposeErrors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": sched, "canEdit": dec.Level.CanEdit()})
}

type upsertDayRequest struct {
	Date    string  `json:"date"`
	OwnerID string  `json:"ownerId"`
	Owner   string  `json:"owner"`
	Title   *string `json:"title"`
	Notes   *string `json:"notes"`
}

// Upsert sets the day's title/notes. The owner creates the schedule
// implicitly; a grantee with edit rights may update an existing one but
// never bring a schedule into existence.
func (h *DayHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	requesterID := auth.UserID(r.Context())
	ownerID, err := h.resolver.ResolveOwner(requesterID, req.OwnerID, req.Owner)
	if err != nil {
		writeInternal(h.logger, w, "resolve owner", err, h.exposeErrors)
		return
	}

	dec, err := h.resolver.ForDay(requesterID, ownerID, date)
	if err != nil {
		writeInternal(h.logger, w, "authorize day write", err, h.exposeErrors)
		return
	}
	if dec.Level != access.LevelOwner {
		if dec.Schedule == nil {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		if !dec.Level.CanEdit() {
			writeError(w, http.StatusForbidden, "you do not have edit access to this day")
			return
		}
	}

	sched, err := h.schedules.Upsert(ownerID, date, req.Title, req.Notes)
	if err != nil {
		writeInternal(h.logger, w, "upsert day", err, h.exposeErrors)
		return
	}
	sched, err = h.withItems(sched)
	if err != nil {
		writeInternal(h.logger, w, "load items", err, h.exposeErrors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": sched})
}
