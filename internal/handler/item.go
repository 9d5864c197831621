package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tabine/shiori/internal/access"
	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/model"
	"github.com/tabine/shiori/internal/store"
)

type ItemHandler struct {
	resolver     *access.Resolver
	schedules    *store.ScheduleStore
	items        *store.ItemStore
	exposeErrors bool
	logger       *slog.Logger
}

func NewItemHandler(resolver *access.Resolver, schedules *store.ScheduleStore, items *store.ItemStore, exposeErrors bool, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		resolver:     resolver,
		schedules:    schedules,
		items:        items,
		exposeErrors: exposeErrors,
		logger:       logger,
	}
}

func normalizeKind(kind string) (string, bool) {
	if kind == "" {
		return model.KindGeneral, true
	}
	switch strings.ToUpper(kind) {
	case model.KindGeneral:
		return model.KindGeneral, true
	case model.KindMove:
		return model.KindMove, true
	}
	return "", false
}

type createItemRequest struct {
	Date           string  `json:"date"`
	OwnerID        string  `json:"ownerId"`
	Owner          string  `json:"owner"`
	Title          string  `json:"title"`
	Emoji          *string `json:"emoji"`
	Color          *string `json:"color"`
	StartTime      string  `json:"startTime"`
	EndTime        *string `json:"endTime"`
	Location       *string `json:"location"`
	Kind           string  `json:"kind"`
	DeparturePlace *string `json:"departurePlace"`
	ArrivalPlace   *string `json:"arrivalPlace"`
	Notes          *string `json:"notes"`
}

// Create adds an item to the day. The owner's schedule is created
// implicitly when missing; for anyone else a missing schedule is
// not found, and creation requires edit access.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	date, ok := parseDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	start, ok := combineDateTime(date, req.StartTime)
	if !ok {
		writeError(w, http.StatusBadRequest, "startTime must be HH:mm")
		return
	}
	// End is stored verbatim even when it precedes start; unordered
	// ranges are tolerated here on purpose.
	var end *time.Time
	if req.EndTime != nil && *req.EndTime != "" {
		t, ok := combineDateTime(date, *req.EndTime)
		if !ok {
			writeError(w, http.StatusBadRequest, "endTime must be HH:mm")
			return
		}
		end = &t
	}
	kind, ok := normalizeKind(req.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be general or move")
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
		writeInternal(h.logger, w, "authorize item create", err, h.exposeErrors)
		return
	}

	var scheduleID int64
	switch {
	case dec.Level == access.LevelOwner:
		sched := dec.Schedule
		if sched == nil {
			sched, err = h.schedules.EnsureForDate(ownerID, date)
			if err != nil {
				writeInternal(h.logger, w, "ensure schedule", err, h.exposeErrors)
				return
			}
		}
		scheduleID = sched.ID
	case dec.Schedule == nil:
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	case !dec.Level.CanEdit():
		writeError(w, http.StatusForbidden, "you do not have edit access to this day")
		return
	default:
		scheduleID = dec.Schedule.ID
	}

	item, err := h.items.Create(scheduleID, req.Title, start, store.ItemParams{
		Emoji:          req.Emoji,
		Color:          req.Color,
		Kind:           &kind,
		EndTime:        end,
		Location:       req.Location,
		DeparturePlace: req.DeparturePlace,
		ArrivalPlace:   req.ArrivalPlace,
		Notes:          req.Notes,
	})
	if err != nil {
		writeInternal(h.logger, w, "create item", err, h.exposeErrors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

type updateItemRequest struct {
	Date           *string `json:"date"`
	Title          *string `json:"title"`
	Emoji          *string `json:"emoji"`
	Color          *string `json:"color"`
	StartTime      *string `json:"startTime"`
	EndTime        *string `json:"endTime"`
	Location       *string `json:"location"`
	Kind           *string `json:"kind"`
	DeparturePlace *string `json:"departurePlace"`
	ArrivalPlace   *string `json:"arrivalPlace"`
	Notes          *string `json:"notes"`
}

// authorizeEdit loads the item and re-runs the edit decision against
// its parent schedule's owner and date. Items carry no permission data.
func (h *ItemHandler) authorizeEdit(w http.ResponseWriter, r *http.Request) *model.ScheduleItem {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil
	}
	item, err := h.items.GetByID(id)
	if err != nil {
		writeInternal(h.logger, w, "load item", err, h.exposeErrors)
		return nil
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return nil
	}
	dec, err := h.resolver.ForItem(auth.UserID(r.Context()), item)
	if err != nil {
		writeInternal(h.logger, w, "authorize item edit", err, h.exposeErrors)
		return nil
	}
	if !dec.Level.CanEdit() {
		writeError(w, http.StatusForbidden, "you do not have edit access to this day")
		return nil
	}
	return item
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	item := h.authorizeEdit(w, r)
	if item == nil {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			writeError(w, http.StatusBadRequest, "title must not be empty")
			return
		}
		req.Title = &t
	}

	params := store.ItemParams{
		Title:          req.Title,
		Emoji:          req.Emoji,
		Color:          req.Color,
		Location:       req.Location,
		DeparturePlace: req.DeparturePlace,
		ArrivalPlace:   req.ArrivalPlace,
		Notes:          req.Notes,
	}
	if req.Kind != nil {
		kind, ok := normalizeKind(*req.Kind)
		if !ok {
			writeError(w, http.StatusBadRequest, "kind must be general or move")
			return
		}
		params.Kind = &kind
	}

	// Moving an item in time needs the date alongside the wall clock,
	// since stored instants are built from the pair.
	if req.StartTime != nil {
		if req.Date == nil {
			writeError(w, http.StatusBadRequest, "date is required when changing startTime")
			return
		}
		date, ok := parseDate(*req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		start, ok := combineDateTime(date, *req.StartTime)
		if !ok {
			writeError(w, http.StatusBadRequest, "startTime must be HH:mm")
			return
		}
		params.StartTime = &start
	}
	if req.EndTime != nil {
		if *req.EndTime == "" {
			params.ClearEndTime = true
		} else {
			if req.Date == nil {
				writeError(w, http.StatusBadRequest, "date is required when changing endTime")
				return
			}
			date, ok := parseDate(*req.Date)
			if !ok {
				writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
				return
			}
			end, ok := combineDateTime(date, *req.EndTime)
			if !ok {
				writeError(w, http.StatusBadRequest, "endTime must be HH:mm")
				return
			}
			params.EndTime = &end
		}
	}

	updated, err := h.items.Update(item.ID, params)
	if err != nil {
		writeInternal(h.logger, w, "update item", err, h.exposeErrors)
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": updated})
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item := h.authorizeEdit(w, r)
	if item == nil {
		return
	}
	if err := h.items.Delete(item.ID); err != nil {
		writeInternal(h.logger, w, "delete item", err, h.exposeErrors)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
