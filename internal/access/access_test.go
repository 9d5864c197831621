package access

import (
	"testing"

	"github.com/tabine/shiori/internal/database"
	"github.com/tabine/shiori/internal/model"
	"github.com/tabine/shiori/internal/store"
)

type resolverTestEnv struct {
	resolver  *Resolver
	users     *store.UserStore
	schedules *store.ScheduleStore
	shares    *store.ShareStore
}

func setupResolverTest(t *testing.T) *resolverTestEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	schedules := store.NewScheduleStore(db)
	shares := store.NewShareStore(db)
	return &resolverTestEnv{
		resolver:  NewResolver(users, schedules, shares),
		users:     users,
		schedules: schedules,
		shares:    shares,
	}
}

func (e *resolverTestEnv) user(t *testing.T, sub string) *model.User {
	t.Helper()
	u, err := e.users.UpsertByGoogleSub(sub, sub+"@example.com", true, "User "+sub, "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *resolverTestEnv) schedule(t *testing.T, ownerID int64, date string) *model.DaySchedule {
	t.Helper()
	d, err := e.schedules.EnsureForDate(ownerID, date)
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return d
}

func TestLevelPredicates(t *testing.T) {
	cases := []struct {
		level   Level
		canView bool
		canEdit bool
	}{
		{LevelNone, false, false},
		{LevelView, true, false},
		{LevelEdit, true, true},
		{LevelOwner, true, true},
	}
	for _, c := range cases {
		if c.level.CanView() != c.canView {
			t.Errorf("level %d CanView = %v, want %v", c.level, c.level.CanView(), c.canView)
		}
		if c.level.CanEdit() != c.canEdit {
			t.Errorf("level %d CanEdit = %v, want %v", c.level, c.level.CanEdit(), c.canEdit)
		}
	}
}

func TestForDayOwner(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	env.schedule(t, owner.ID, "2026-05-01")

	dec, err := env.resolver.ForDay(owner.ID, owner.ID, "2026-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelOwner {
		t.Errorf("level = %d, want owner", dec.Level)
	}
	if dec.Schedule == nil {
		t.Error("expected schedule attached")
	}
}

func TestForDayOwnerIgnoresSelfShare(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	sched := env.schedule(t, owner.ID, "2026-05-01")

	// A stray view-only share for the owner must not lower access.
	if _, err := env.shares.Upsert(sched.ID, owner.ID, false); err != nil {
		t.Fatalf("seed self share: %v", err)
	}

	dec, err := env.resolver.ForDay(owner.ID, owner.ID, "2026-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelOwner {
		t.Errorf("level = %d, want owner despite self share", dec.Level)
	}
}

func TestForDayOwnerMissingSchedule(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")

	dec, err := env.resolver.ForDay(owner.ID, owner.ID, "2099-01-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelOwner {
		t.Errorf("level = %d, want owner even without a schedule", dec.Level)
	}
	if dec.Schedule != nil {
		t.Error("expected nil schedule")
	}
}

func TestForDayNoShare(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	stranger := env.user(t, "stranger")
	env.schedule(t, owner.ID, "2026-05-01")

	dec, err := env.resolver.ForDay(stranger.ID, owner.ID, "2026-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelNone {
		t.Errorf("level = %d, want none", dec.Level)
	}
}

func TestForDayViewShare(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	friend := env.user(t, "friend")
	sched := env.schedule(t, owner.ID, "2026-05-01")

	if _, err := env.shares.Upsert(sched.ID, friend.ID, false); err != nil {
		t.Fatalf("share: %v", err)
	}

	dec, err := env.resolver.ForDay(friend.ID, owner.ID, "2026-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelView {
		t.Errorf("level = %d, want view", dec.Level)
	}
	if dec.Level.CanEdit() {
		t.Error("view share must not allow editing")
	}
}

func TestForDayEditShare(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	friend := env.user(t, "friend")
	sched := env.schedule(t, owner.ID, "2026-05-01")

	if _, err := env.shares.Upsert(sched.ID, friend.ID, true); err != nil {
		t.Fatalf("share: %v", err)
	}

	dec, err := env.resolver.ForDay(friend.ID, owner.ID, "2026-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelEdit {
		t.Errorf("level = %d, want edit", dec.Level)
	}
}

func TestForDayShareDoesNotCrossDates(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	friend := env.user(t, "friend")
	shared := env.schedule(t, owner.ID, "2026-05-01")
	env.schedule(t, owner.ID, "2026-05-02")

	if _, err := env.shares.Upsert(shared.ID, friend.ID, true); err != nil {
		t.Fatalf("share: %v", err)
	}

	dec, err := env.resolver.ForDay(friend.ID, owner.ID, "2026-05-02")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelNone {
		t.Errorf("level = %d, want none for the unshared date", dec.Level)
	}
}

func TestForDayAnonymous(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	env.schedule(t, owner.ID, "2026-05-01")

	dec, err := env.resolver.ForDay(0, owner.ID, "2026-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelNone {
		t.Errorf("level = %d, want none for anonymous requester", dec.Level)
	}
}

func TestForDayMissingScheduleForNonOwner(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	friend := env.user(t, "friend")

	dec, err := env.resolver.ForDay(friend.ID, owner.ID, "2099-01-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelNone || dec.Schedule != nil {
		t.Errorf("decision = %+v, want none with nil schedule", dec)
	}
}

func TestForDayUnresolvableOwner(t *testing.T) {
	env := setupResolverTest(t)
	requester := env.user(t, "requester")

	dec, err := env.resolver.ForDay(requester.ID, 0, "2026-05-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelNone {
		t.Errorf("level = %d, want none for unresolvable owner", dec.Level)
	}
}

func TestResolveOwnerEmptyMeansSelf(t *testing.T) {
	env := setupResolverTest(t)

	id, err := env.resolver.ResolveOwner(7, "", "")
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if id != 7 {
		t.Errorf("id = %d, want requester's own id", id)
	}
}

func TestResolveOwnerByID(t *testing.T) {
	env := setupResolverTest(t)

	id, err := env.resolver.ResolveOwner(7, "42", "")
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestResolveOwnerBadID(t *testing.T) {
	env := setupResolverTest(t)

	for _, bad := range []string{"abc", "-3", "0"} {
		id, err := env.resolver.ResolveOwner(7, bad, "")
		if err != nil {
			t.Fatalf("resolve owner %q: %v", bad, err)
		}
		if id != 0 {
			t.Errorf("id for %q = %d, want 0", bad, id)
		}
	}
}

func TestResolveOwnerBySlug(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	withSlug, err := env.users.EnsureSlug(owner.ID)
	if err != nil {
		t.Fatalf("ensure slug: %v", err)
	}

	id, err := env.resolver.ResolveOwner(7, "", *withSlug.PublicSlug)
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if id != owner.ID {
		t.Errorf("id = %d, want %d", id, owner.ID)
	}
}

func TestResolveOwnerUnknownSlug(t *testing.T) {
	env := setupResolverTest(t)

	id, err := env.resolver.ResolveOwner(7, "", "nosuchslug")
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if id != 0 {
		t.Errorf("id = %d, want 0 for unknown slug", id)
	}
}

func TestForItem(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")
	friend := env.user(t, "friend")
	stranger := env.user(t, "stranger")
	sched := env.schedule(t, owner.ID, "2026-05-01")

	if _, err := env.shares.Upsert(sched.ID, friend.ID, true); err != nil {
		t.Fatalf("share: %v", err)
	}

	item := &model.ScheduleItem{ID: 1, ScheduleID: sched.ID}

	dec, err := env.resolver.ForItem(owner.ID, item)
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if dec.Level != LevelOwner {
		t.Errorf("owner level = %d, want owner", dec.Level)
	}

	dec, err = env.resolver.ForItem(friend.ID, item)
	if err != nil {
		t.Fatalf("resolve friend: %v", err)
	}
	if dec.Level != LevelEdit {
		t.Errorf("friend level = %d, want edit", dec.Level)
	}

	dec, err = env.resolver.ForItem(stranger.ID, item)
	if err != nil {
		t.Fatalf("resolve stranger: %v", err)
	}
	if dec.Level != LevelNone {
		t.Errorf("stranger level = %d, want none", dec.Level)
	}
}

func TestForItemOrphanedSchedule(t *testing.T) {
	env := setupResolverTest(t)
	owner := env.user(t, "owner")

	item := &model.ScheduleItem{ID: 1, ScheduleID: 999}
	dec, err := env.resolver.ForItem(owner.ID, item)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dec.Level != LevelNone {
		t.Errorf("level = %d, want none for missing parent schedule", dec.Level)
	}
}
