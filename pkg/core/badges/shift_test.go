package badges

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/model"
)

func newTestShiftEngine(settings *Settings) *ShiftEngine {
	return NewShiftEngine(settings, NewBadgeLock(time.Second, zap.NewNop()), zap.NewNop())
}

func TestShift_Down(t *testing.T) {
	session := staffSession(5)
	session.committed[2].BadgeNum = nil

	engine := newTestShiftEngine(testSettings())
	ok, err := engine.Shift(context.Background(), session, model.StaffBadge, 4, ShiftOptions{Down: true})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "d": 3, "e": 4}, session.committedNums(model.StaffBadge))
	require.Len(t, session.shifts, 1)
	assert.Equal(t, shiftCall{badgeType: model.StaffBadge, low: 4, high: 5, delta: -1}, session.shifts[0])
}

func TestShift_UpWithUntil(t *testing.T) {
	session := staffSession(5)

	engine := newTestShiftEngine(testSettings())
	ok, err := engine.Shift(context.Background(), session, model.StaffBadge, 2, ShiftOptions{Up: true, Until: 3})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, map[string]int{"a": 1, "b": 3, "c": 4, "d": 4, "e": 5}, session.committedNums(model.StaffBadge))
}

func TestShift_NeitherDirectionMeansDown(t *testing.T) {
	session := staffSession(3)

	engine := newTestShiftEngine(testSettings())
	ok, err := engine.Shift(context.Background(), session, model.StaffBadge, 3, ShiftOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, session.shifts[0].delta)
}

func TestShift_BothDirectionsIsInvalid(t *testing.T) {
	session := staffSession(3)

	engine := newTestShiftEngine(testSettings())
	ok, err := engine.Shift(context.Background(), session, model.StaffBadge, 2, ShiftOptions{Up: true, Down: true})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, ok)
	assert.Empty(t, session.shifts)
}

func TestShift_OnlyMovesMatchingType(t *testing.T) {
	session := staffSession(2)
	guest := &model.Attendee{ID: "g", BadgeType: model.GuestBadge, BadgeNum: num(6)}
	session.committed = append(session.committed, guest)

	engine := newTestShiftEngine(testSettings())
	_, err := engine.Shift(context.Background(), session, model.GuestBadge, 7, ShiftOptions{Down: true})
	require.NoError(t, err)

	assert.Equal(t, 6, *guest.BadgeNum)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, session.committedNums(model.StaffBadge))
}

func TestShift_ZeroRowsStillReportsTrue(t *testing.T) {
	engine := newTestShiftEngine(testSettings())
	ok, err := engine.Shift(context.Background(), &fakeSession{}, model.StaffBadge, 1, ShiftOptions{Down: true})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShift_Gating(t *testing.T) {
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		adjust func(*Settings)
	}{
		{name: "custom badge shifting off", adjust: func(s *Settings) { s.ShiftCustomBadges = false }},
		{name: "after printed badge deadline", adjust: func(s *Settings) { s.PrintedBadgeDeadline = past }},
		{name: "at the con", adjust: func(s *Settings) { s.AtTheCon = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			tt.adjust(settings)
			lock := NewBadgeLock(time.Second, zap.NewNop())
			engine := NewShiftEngine(settings, lock, zap.NewNop())

			// Hold the lock elsewhere: a gated shift must return without waiting for it
			_, release, err := lock.Acquire(context.Background())
			require.NoError(t, err)
			defer release()

			for _, dir := range []ShiftOptions{{Down: true}, {Up: true}, {Up: true, Until: 3}} {
				session := staffSession(5)
				ok, err := engine.Shift(context.Background(), session, model.StaffBadge, 2, dir)
				require.NoError(t, err)
				assert.False(t, ok)
				assert.Empty(t, session.shifts)
				assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}, session.committedNums(model.StaffBadge))
			}
		})
	}
}

// Shifting down from n and then up from n-1 puts everyone back
func TestShift_MirroredBoundsRestore(t *testing.T) {
	settings := testSettings()
	settings.Ranges[model.StaffBadge] = Range{Low: 1, High: 10}
	engine := newTestShiftEngine(settings)

	for from := 1; from <= 10; from++ {
		session := &fakeSession{}
		for n := 1; n <= 10; n++ {
			if n == from-1 {
				continue
			}
			session.committed = append(session.committed, staffer(string(rune('a'+n)), num(n)))
		}
		before := session.committedNums(model.StaffBadge)

		_, err := engine.Shift(context.Background(), session, model.StaffBadge, from, ShiftOptions{Down: true})
		require.NoError(t, err)
		_, err = engine.Shift(context.Background(), session, model.StaffBadge, from-1, ShiftOptions{Up: true})
		require.NoError(t, err)

		assert.Equal(t, before, session.committedNums(model.StaffBadge), "from=%d", from)
	}
}

func TestShift_LockTimeout(t *testing.T) {
	lock := NewBadgeLock(20*time.Millisecond, zap.NewNop())
	engine := NewShiftEngine(testSettings(), lock, zap.NewNop())

	_, release, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ok, err := engine.Shift(context.Background(), staffSession(2), model.StaffBadge, 1, ShiftOptions{Down: true})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ok)
}
