package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/badges"
	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/db"
)

func TestRegisterAttendee(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedStaff(store, 1, 3)
	n := newNumbering(store, numberingSettings())

	for _, want := range []int{2, 4, 5} {
		a, err := RegisterAttendee(ctx, n, zap.NewNop(), staffer("", nil))
		require.NoError(t, err)
		require.NotNil(t, a.BadgeNum)
		assert.Equal(t, want, *a.BadgeNum)
		assert.NotEmpty(t, a.ID)
	}

	_, err := RegisterAttendee(ctx, n, zap.NewNop(), staffer("", nil))
	assert.ErrorIs(t, err, badges.ErrRangeExhausted)
	assert.Len(t, badgeNums(t, store, model.StaffBadge), 5)

	t.Run("attendee badges are not numbered", func(t *testing.T) {
		a := staffer("", nil)
		a.BadgeType = model.AttendeeBadge
		registered, err := RegisterAttendee(ctx, n, zap.NewNop(), a)
		require.NoError(t, err)
		assert.Nil(t, registered.BadgeNum)
	})

	t.Run("dealers become attendees with a ribbon", func(t *testing.T) {
		a := staffer("", nil)
		a.BadgeType = model.PseudoDealerBadge
		registered, err := RegisterAttendee(ctx, n, zap.NewNop(), a)
		require.NoError(t, err)
		assert.Equal(t, model.AttendeeBadge, registered.BadgeType)
		assert.True(t, registered.HasRibbon(model.DealerRibbon))
	})
}

func TestDeleteAttendees(t *testing.T) {
	tests := []struct {
		name          string
		ids           []string
		keepNumbering bool
		want          map[string]int
	}{
		{
			name: "closes the gap",
			ids:  []string{"c"},
			want: map[string]int{"a": 1, "b": 2, "d": 3, "e": 4},
		},
		{
			name:          "keeps numbering",
			ids:           []string{"c"},
			keepNumbering: true,
			want:          map[string]int{"a": 1, "b": 2, "d": 4, "e": 5},
		},
		{
			name: "several in one flush",
			ids:  []string{"b", "d"},
			want: map[string]int{"a": 1, "c": 2, "e": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := db.NewMemoryStore()
			seedStaff(store, 1, 2, 3, 4, 5)
			n := newNumbering(store, numberingSettings())

			err := DeleteAttendees(context.Background(), n, zap.NewNop(), tt.ids, tt.keepNumbering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, badgeNums(t, store, model.StaffBadge))
		})
	}

	t.Run("unknown attendee", func(t *testing.T) {
		store := db.NewMemoryStore()
		seedStaff(store, 1, 2)
		n := newNumbering(store, numberingSettings())

		err := DeleteAttendees(context.Background(), n, zap.NewNop(), []string{"a", "nobody"}, false)
		assert.ErrorIs(t, err, db.ErrNotFound)
		assert.Equal(t, map[string]int{"a": 1, "b": 2}, badgeNums(t, store, model.StaffBadge))
	})
}

func TestInvalidatedBadgeClosesGap(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedStaff(store, 1, 2, 3, 4, 5)
	n := newNumbering(store, numberingSettings())

	session := n.NewSession(zap.NewNop())
	a, err := session.Get(ctx, "c")
	require.NoError(t, err)
	a.BadgeStatus = model.RefundedStatus
	require.NoError(t, session.Save(a))
	require.NoError(t, session.Commit(ctx))

	assert.Nil(t, a.BadgeNum)
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "d": 3, "e": 4}, badgeNums(t, store, model.StaffBadge))
}

func TestDeleteAndInsertInOneFlush(t *testing.T) {
	tests := []struct {
		name    string
		deleted string
		desired int
		want    map[string]int
	}{
		{
			name:    "newcomer takes the deleted number",
			deleted: "c",
			desired: 3,
			want:    map[string]int{"a": 1, "b": 2, "x": 3, "d": 4, "e": 5},
		},
		{
			name:    "newcomer takes a number below the deleted one",
			deleted: "c",
			desired: 2,
			want:    map[string]int{"a": 1, "x": 2, "b": 3, "d": 4, "e": 5},
		},
		{
			name:    "newcomer takes the top number",
			deleted: "c",
			desired: 5,
			want:    map[string]int{"a": 1, "b": 2, "d": 3, "e": 4, "x": 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := db.NewMemoryStore()
			seedStaff(store, 1, 2, 3, 4, 5)
			n := newNumbering(store, numberingSettings())

			session := n.NewSession(zap.NewNop())
			gone, err := session.Get(ctx, tt.deleted)
			require.NoError(t, err)
			require.NoError(t, session.Delete(gone))
			session.Add(staffer("x", num(tt.desired)))
			require.NoError(t, session.Commit(ctx))

			assert.Equal(t, tt.want, badgeNums(t, store, model.StaffBadge))
		})
	}
}

func TestRegisterIntoFullRange(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	seedStaff(store, 1, 2, 3, 4, 5)
	n := newNumbering(store, numberingSettings())

	_, err := RegisterAttendee(ctx, n, zap.NewNop(), staffer("x", num(3)))
	assert.ErrorIs(t, err, badges.ErrRangeExhausted)
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}, badgeNums(t, store, model.StaffBadge))

	_, err = store.GetVolunteer(ctx, "x")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestConcurrentRegistrations(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	settings := numberingSettings()
	settings.Ranges[model.StaffBadge] = badges.Range{Low: 1, High: 40}
	n := newNumbering(store, settings)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := staffer("", nil)
			// every third registration asks for the first number, pushing the rest up
			if i%3 == 0 {
				a.BadgeNum = num(1)
			}
			_, err := RegisterAttendee(ctx, n, zap.NewNop(), a)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	nums := sortedNums(badgeNums(t, store, model.StaffBadge))
	require.Len(t, nums, 40)
	for i, got := range nums {
		assert.Equal(t, i+1, got)
	}
}

func TestChangeBadge(t *testing.T) {
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		settings   func(*badges.Settings)
		id         string
		badgeType  model.BadgeType
		badgeNum   *int
		wantMsg    string
		wantReject string
		wantErr    error
		wantStaff  map[string]int
		wantGuest  map[string]int
	}{
		{
			name:      "new type gets the next number",
			id:        "a",
			badgeType: model.GuestBadge,
			wantMsg:   "Badge updated",
			wantStaff: map[string]int{"b": 1, "c": 2},
			wantGuest: map[string]int{"a": 6},
		},
		{
			name:      "taken number moves the holders up",
			id:        "c",
			badgeType: model.StaffBadge,
			badgeNum:  num(1),
			wantMsg:   "Badge updated",
			wantStaff: map[string]int{"c": 1, "a": 2, "b": 3},
		},
		{
			name:      "nothing to change",
			id:        "b",
			badgeType: model.StaffBadge,
			wantMsg:   "Attendee is already Staff with badge 2",
			wantStaff: map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:      "number outside the range",
			id:        "a",
			badgeType: model.StaffBadge,
			badgeNum:  num(50),
			wantErr:   badges.ErrOutOfRange,
			wantStaff: map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:       "no new custom badges after the deadline",
			settings:   func(s *badges.Settings) { s.PrintedBadgeDeadline = past },
			id:         "x",
			badgeType:  model.StaffBadge,
			wantReject: "Custom badges have already been ordered; you can add new staffers by giving them an Attendee badge with a Volunteer Ribbon",
			wantStaff:  map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:       "no renumbering after the deadline",
			settings:   func(s *badges.Settings) { s.PrintedBadgeDeadline = past },
			id:         "c",
			badgeType:  model.StaffBadge,
			badgeNum:   num(1),
			wantReject: "Custom badges have already been ordered, so you cannot shift badge numbers",
			wantStaff:  map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:      "leaving a custom badge after the deadline drops the number",
			settings:  func(s *badges.Settings) { s.PrintedBadgeDeadline = past },
			id:        "a",
			badgeType: model.AttendeeBadge,
			wantMsg:   "Badge updated",
			wantStaff: map[string]int{"b": 2, "c": 3},
		},
		{
			name:       "custom badges need a number at the con",
			settings:   func(s *badges.Settings) { s.AtTheCon = true },
			id:         "a",
			badgeType:  model.GuestBadge,
			wantReject: "You must assign a badge number for pre-assigned badge types",
			wantStaff:  map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:       "number already handed out at the con",
			settings:   func(s *badges.Settings) { s.AtTheCon = true },
			id:         "a",
			badgeType:  model.StaffBadge,
			badgeNum:   num(2),
			wantReject: `That badge number already belongs to "Staffer b"`,
			wantStaff:  map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:      "free number at the con",
			settings:  func(s *badges.Settings) { s.AtTheCon = true },
			id:        "a",
			badgeType: model.StaffBadge,
			badgeNum:  num(4),
			wantMsg:   "Badge updated",
			wantStaff: map[string]int{"a": 4, "b": 2, "c": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := db.NewMemoryStore()
			seedStaff(store, 1, 2, 3)
			x := staffer("x", nil)
			x.BadgeType = model.AttendeeBadge
			store.PutAttendee(x)

			settings := numberingSettings()
			if tt.settings != nil {
				tt.settings(settings)
			}
			n := newNumbering(store, settings)

			msg, err := ChangeBadge(context.Background(), n, zap.NewNop(), tt.id, tt.badgeType, tt.badgeNum)

			switch {
			case tt.wantReject != "":
				var rejection *ChangeRejectedError
				require.True(t, errors.As(err, &rejection), "expected a rejection, got %v", err)
				assert.Equal(t, tt.wantReject, rejection.Reason)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantMsg, msg)
			}

			assert.Equal(t, tt.wantStaff, badgeNums(t, store, model.StaffBadge))
			if tt.wantGuest != nil {
				assert.Equal(t, tt.wantGuest, badgeNums(t, store, model.GuestBadge))
			}
		})
	}
}

func TestChangeBadge_ReleasesLock(t *testing.T) {
	store := db.NewMemoryStore()
	seedStaff(store, 1, 2)
	n := newNumbering(store, numberingSettings())

	_, err := ChangeBadge(context.Background(), n, zap.NewNop(), "a", model.StaffBadge, num(40))
	require.Error(t, err)
	_, err = ChangeBadge(context.Background(), n, zap.NewNop(), "nobody", model.StaffBadge, nil)
	require.ErrorIs(t, err, db.ErrNotFound)

	ctx, release, err := n.Coordinator.Lock().Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, n.Coordinator.Lock().Held(ctx))
	release()
}

func TestNextBadgeNumber(t *testing.T) {
	store := db.NewMemoryStore()
	seedStaff(store, 1, 3)
	n := newNumbering(store, numberingSettings())
	ctx := context.Background()

	next, err := NextBadgeNumber(ctx, n, zap.NewNop(), model.StaffBadge)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	next, err = NextBadgeNumber(ctx, n, zap.NewNop(), model.AttendeeBadge)
	require.NoError(t, err)
	assert.Equal(t, 1000, next)

	_, err = NextBadgeNumber(ctx, n, zap.NewNop(), model.ChildBadge)
	assert.ErrorIs(t, err, badges.ErrInvalidArgument)
}

func TestShiftBadges(t *testing.T) {
	tests := []struct {
		name        string
		seed        []int
		from        int
		disable     bool
		opts        badges.ShiftOptions
		wantShifted bool
		wantErr     error
		want        map[string]int
	}{
		{
			name:        "up opens a gap",
			seed:        []int{1, 2, 3, 4},
			from:        2,
			opts:        badges.ShiftOptions{Up: true},
			wantShifted: true,
			want:        map[string]int{"a": 1, "b": 3, "c": 4, "d": 5},
		},
		{
			name:        "down closes a gap",
			seed:        []int{1, 3, 4},
			from:        3,
			wantShifted: true,
			want:        map[string]int{"a": 1, "b": 2, "c": 3},
		},
		{
			name:        "down with an upper bound",
			seed:        []int{1, 3, 4, 5},
			from:        3,
			opts:        badges.ShiftOptions{Down: true, Until: 4},
			wantShifted: true,
			want:        map[string]int{"a": 1, "b": 2, "c": 3, "d": 5},
		},
		{
			name:    "disabled",
			seed:    []int{1, 2, 3, 4},
			from:    2,
			disable: true,
			opts:    badges.ShiftOptions{Up: true},
			want:    map[string]int{"a": 1, "b": 2, "c": 3, "d": 4},
		},
		{
			name:    "both directions",
			seed:    []int{1, 2, 3, 4},
			from:    2,
			opts:    badges.ShiftOptions{Up: true, Down: true},
			wantErr: badges.ErrInvalidArgument,
			want:    map[string]int{"a": 1, "b": 2, "c": 3, "d": 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := db.NewMemoryStore()
			seedStaff(store, tt.seed...)
			settings := numberingSettings()
			settings.ShiftCustomBadges = !tt.disable
			n := newNumbering(store, settings)

			shifted, err := ShiftBadges(context.Background(), n, zap.NewNop(), model.StaffBadge, tt.from, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantShifted, shifted)
			}
			assert.Equal(t, tt.want, badgeNums(t, store, model.StaffBadge))
		})
	}
}

func TestCheckBadgeConsistency(t *testing.T) {
	store := db.NewMemoryStore()
	seedStaff(store, 1, 2, 4)
	n := newNumbering(store, numberingSettings())

	problems, err := CheckBadgeConsistency(context.Background(), n, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"Staff badge #3 is unassigned"}, problems)
}

// Random registrations, deletions and badge changes must leave every badge type
// numbered 1..n with no duplicates. The ranges are small enough to fill up, and a
// full range must turn requests away without touching the stored numbers.
func TestNumberingStaysUniqueAndDense(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	settings := numberingSettings()
	settings.Ranges = map[model.BadgeType]badges.Range{
		model.StaffBadge:    {Low: 1, High: 8},
		model.GuestBadge:    {Low: 101, High: 108},
		model.AttendeeBadge: {Low: 1000, High: 9999},
	}
	n := newNumbering(store, settings)
	logger := zap.NewNop()
	rng := rand.New(rand.NewSource(7))

	full := func(badgeType model.BadgeType, nums map[string]int) bool {
		r := settings.Ranges[badgeType]
		return len(nums) == r.High-r.Low+1
	}

	var ids []string
	exhausted := 0
	for step := 0; step < 400; step++ {
		staff := badgeNums(t, store, model.StaffBadge)
		guests := badgeNums(t, store, model.GuestBadge)
		before := map[model.BadgeType]map[string]int{model.StaffBadge: staff, model.GuestBadge: guests}

		var err error
		var wantExhausted bool
		switch op := rng.Intn(5); {
		case op <= 1 || len(ids) < 3:
			a := staffer("", nil)
			current := staff
			if rng.Intn(2) == 0 {
				a.BadgeType, current = model.GuestBadge, guests
			}
			if rng.Intn(2) == 0 {
				a.BadgeNum = num(settings.Ranges[a.BadgeType].Low + rng.Intn(len(current)+1))
			}
			wantExhausted = full(a.BadgeType, current)
			var registered *model.Attendee
			registered, err = RegisterAttendee(ctx, n, logger, a)
			if err == nil {
				ids = append(ids, registered.ID)
			}

		case op == 2:
			i := rng.Intn(len(ids))
			err = DeleteAttendees(ctx, n, logger, []string{ids[i]}, false)
			ids = append(ids[:i], ids[i+1:]...)

		case op == 3:
			id := ids[rng.Intn(len(ids))]
			target, targetNums := model.StaffBadge, staff
			if _, isStaff := staff[id]; isStaff {
				target, targetNums = model.GuestBadge, guests
			}
			wantExhausted = full(target, targetNums)
			_, err = ChangeBadge(ctx, n, logger, id, target, nil)

		default:
			id := ids[rng.Intn(len(ids))]
			badgeType, current := model.StaffBadge, staff
			if _, isStaff := staff[id]; !isStaff {
				badgeType, current = model.GuestBadge, guests
			}
			low := settings.Ranges[badgeType].Low
			_, err = ChangeBadge(ctx, n, logger, id, badgeType, num(low+rng.Intn(len(current))))
		}

		if wantExhausted {
			require.ErrorIs(t, err, badges.ErrRangeExhausted, "step %d", step)
			exhausted++
		} else {
			require.NoError(t, err, "step %d", step)
		}

		for _, badgeType := range []model.BadgeType{model.StaffBadge, model.GuestBadge} {
			current := badgeNums(t, store, badgeType)
			if wantExhausted {
				require.Equal(t, before[badgeType], current, "step %d: a refused request moved badges", step)
			}
			nums := sortedNums(current)
			low := settings.Ranges[badgeType].Low
			for i, got := range nums {
				require.Equal(t, low+i, got, "step %d: %s numbers %v", step, badgeType.Label(), nums)
			}
		}
	}

	assert.Positive(t, exhausted, "no range ever filled up")
}
