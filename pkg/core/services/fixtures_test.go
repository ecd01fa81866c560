package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/badges"
	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/db"
)

func num(n int) *int {
	return &n
}

func numberingSettings() *badges.Settings {
	return &badges.Settings{
		Ranges: map[model.BadgeType]badges.Range{
			model.StaffBadge:    {Low: 1, High: 5},
			model.GuestBadge:    {Low: 6, High: 20},
			model.AttendeeBadge: {Low: 1000, High: 9999},
		},
		Preassigned: map[model.BadgeType]bool{
			model.StaffBadge: true,
			model.GuestBadge: true,
		},
		NumberedBadges:    true,
		ShiftCustomBadges: true,
	}
}

func newNumbering(store *db.MemoryStore, settings *badges.Settings) *Numbering {
	lock := badges.NewBadgeLock(time.Second, zap.NewNop())
	return NewNumbering(store, badges.NewCoordinator(settings, lock, zap.NewNop()))
}

func staffer(id string, badge *int) *model.Attendee {
	return &model.Attendee{
		ID:          id,
		FirstName:   "Staffer",
		LastName:    id,
		BadgeType:   model.StaffBadge,
		BadgeNum:    badge,
		BadgeStatus: model.CompletedStatus,
		Paid:        model.NeedNotPay,
		Staffing:    true,
	}
}

// seedStaff stores one staffer per number, with IDs "a", "b", ...
func seedStaff(store *db.MemoryStore, nums ...int) {
	for i, n := range nums {
		store.PutAttendee(staffer(string(rune('a'+i)), num(n)))
	}
}

// badgeNums maps attendee ID to stored badge number for one badge type
func badgeNums(t *testing.T, store *db.MemoryStore, badgeType model.BadgeType) map[string]int {
	t.Helper()
	attendees, err := store.NumberedAttendees(context.Background())
	require.NoError(t, err)

	nums := make(map[string]int)
	for _, a := range attendees {
		if a.BadgeType == badgeType {
			nums[a.ID] = *a.BadgeNum
		}
	}
	return nums
}

func sortedNums(nums map[string]int) []int {
	result := make([]int, 0, len(nums))
	for _, n := range nums {
		result = append(result, n)
	}
	sort.Ints(result)
	return result
}

var convention = time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return convention.Add(time.Duration(hour) * time.Hour)
}

// volunteerStore holds one department "arcade" with jobs at 10-12, 11-13 and 14-15,
// a restricted job at 16-17 and a two-slot job at 18-19
func volunteerStore() *db.MemoryStore {
	store := db.NewMemoryStore()
	store.PutDepartment(&model.Department{ID: "arcade", Name: "Arcade"})
	store.PutDepartment(&model.Department{ID: "tech", Name: "Tech Ops"})

	jobs := []*model.Job{
		{ID: "morning", DepartmentID: "arcade", Name: "Morning", StartTime: at(10), Duration: 2, Weight: 1, Slots: 3},
		{ID: "overlap", DepartmentID: "arcade", Name: "Overlap", StartTime: at(11), Duration: 2, Weight: 1, Slots: 3},
		{ID: "afternoon", DepartmentID: "arcade", Name: "Afternoon", StartTime: at(14), Duration: 1, Weight: 1.5, Slots: 3},
		{ID: "cash", DepartmentID: "arcade", Name: "Cash", StartTime: at(16), Duration: 1, Weight: 1, Slots: 3,
			RequiredRoles: []model.DeptRole{{ID: "cashier", DepartmentID: "arcade", Name: "Cashier"}}},
		{ID: "pair", DepartmentID: "arcade", Name: "Pair", StartTime: at(18), Duration: 1, Weight: 1, Slots: 2},
		{ID: "cables", DepartmentID: "tech", Name: "Cables", StartTime: at(10), Duration: 1, Weight: 1, Slots: 1},
	}
	for _, j := range jobs {
		store.PutJob(j)
	}
	return store
}

func volunteer(id string, departments ...string) *model.Attendee {
	a := staffer(id, nil)
	a.FirstName = "Vol"
	for _, d := range departments {
		a.Memberships = append(a.Memberships, model.DeptMembership{
			ID:           id + "-" + d,
			AttendeeID:   id,
			DepartmentID: d,
		})
	}
	return a
}
