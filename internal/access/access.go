// Package access decides what a requester may do with a target day
// schedule. Every owner-or-share-scoped read and write funnels through
// Resolver so the ownership and share rules live in one place.
package access

import (
	"fmt"
	"strconv"

	"github.com/tabine/shiori/internal/model"
	"github.com/tabine/shiori/internal/store"
)

// Level is the explicit lookup result; absence of a share is a value,
// not a nil interpreted by convention.
type Level int

const (
	// LevelNone denies both viewing and editing.
	LevelNone Level = iota
	// LevelView allows reading the schedule only.
	LevelView
	// LevelEdit allows reading and mutating items and metadata.
	LevelEdit
	// LevelOwner is unconditional: the owner never consults shares.
	LevelOwner
)

func (l Level) CanView() bool { return l >= LevelView }
func (l Level) CanEdit() bool { return l >= LevelEdit }

// Decision carries the access level together with the schedule it was
// made about. Schedule is nil when no schedule exists for the target
// (owner, date); in that case Level is LevelOwner for the owner (who
// may implicitly create) and LevelNone for anyone else.
type Decision struct {
	Level    Level
	Schedule *model.DaySchedule
}

type Resolver struct {
	users     *store.UserStore
	schedules *store.ScheduleStore
	shares    *store.ShareStore
}

func NewResolver(users *store.UserStore, schedules *store.ScheduleStore, shares *store.ShareStore) *Resolver {
	return &Resolver{users: users, schedules: schedules, shares: shares}
}

// ResolveOwner turns an owner reference (numeric id string or public
// slug) into a user id. An empty reference means the requester targets
// their own day. An unresolvable slug yields 0, which callers treat as
// "no such owner", the same as no schedule found.
func (r *Resolver) ResolveOwner(requesterID int64, ownerIDParam, slugParam string) (int64, error) {
	if ownerIDParam != "" {
		id, err := strconv.ParseInt(ownerIDParam, 10, 64)
		if err != nil || id <= 0 {
			return 0, nil
		}
		return id, nil
	}
	if slugParam != "" {
		u, err := r.users.GetBySlug(slugParam)
		if err != nil {
			return 0, fmt.Errorf("resolve owner slug: %w", err)
		}
		if u == nil {
			return 0, nil
		}
		return u.ID, nil
	}
	return requesterID, nil
}

// ForDay decides the requester's access to (ownerID, date).
//
// Owner supremacy comes first: when requester and owner match, shares
// are never consulted, so a stray self-share cannot lower access. For
// everyone else access flows solely from the share row, and a missing
// schedule means there is nothing to grant.
func (r *Resolver) ForDay(requesterID, ownerID int64, date string) (Decision, error) {
	if ownerID != 0 && requesterID == ownerID {
		sched, err := r.schedules.GetByOwnerAndDate(ownerID, date)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Level: LevelOwner, Schedule: sched}, nil
	}

	if ownerID == 0 {
		// Unresolvable owner reference: same as no schedule.
		return Decision{Level: LevelNone}, nil
	}

	sched, err := r.schedules.GetByOwnerAndDate(ownerID, date)
	if err != nil {
		return Decision{}, err
	}
	if sched == nil {
		return Decision{Level: LevelNone}, nil
	}

	if requesterID == 0 {
		return Decision{Level: LevelNone, Schedule: sched}, nil
	}

	share, err := r.shares.Get(sched.ID, requesterID)
	if err != nil {
		return Decision{}, err
	}
	if share == nil {
		return Decision{Level: LevelNone, Schedule: sched}, nil
	}
	if share.CanEdit {
		return Decision{Level: LevelEdit, Schedule: sched}, nil
	}
	return Decision{Level: LevelView, Schedule: sched}, nil
}

// ForItem resolves the item's parent schedule and re-runs the day
// decision for its owner and date. Items carry no permission data of
// their own. The returned schedule is never nil when the item exists.
func (r *Resolver) ForItem(requesterID int64, item *model.ScheduleItem) (Decision, error) {
	sched, err := r.schedules.GetByID(item.ScheduleID)
	if err != nil {
		return Decision{}, err
	}
	if sched == nil {
		return Decision{Level: LevelNone}, nil
	}
	return r.ForDay(requesterID, sched.OwnerUserID, sched.Date)
}
