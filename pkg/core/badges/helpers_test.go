package badges

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/model"
)

func num(n int) *int {
	return &n
}

func testSettings() *Settings {
	return &Settings{
		Ranges: map[model.BadgeType]Range{
			model.StaffBadge:      {Low: 1, High: 5},
			model.GuestBadge:      {Low: 6, High: 20},
			model.ContractorBadge: {Low: 100, High: 199},
			model.AttendeeBadge:   {Low: 1000, High: 9999},
		},
		Preassigned: map[model.BadgeType]bool{
			model.StaffBadge:      true,
			model.GuestBadge:      true,
			model.ContractorBadge: true,
		},
		NumberedBadges:    true,
		ShiftCustomBadges: true,
	}
}

func newTestCoordinator(settings *Settings) *Coordinator {
	return NewCoordinator(settings, NewBadgeLock(time.Second, zap.NewNop()), zap.NewNop())
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

type shiftCall struct {
	badgeType model.BadgeType
	low       int
	high      int
	delta     int
}

// fakeSession keeps committed rows apart from the attendees being edited,
// and moves both on a shift the way a real unit of work does.
type fakeSession struct {
	committed []*model.Attendee
	pending   []*model.Attendee
	shifts    []shiftCall
	readErr   error
}

func (f *fakeSession) BadgeNumbersInRange(ctx context.Context, low, high int) ([]int, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var nums []int
	for _, a := range f.committed {
		if a.BadgeNum != nil && *a.BadgeNum >= low && *a.BadgeNum <= high {
			nums = append(nums, *a.BadgeNum)
		}
	}
	return nums, nil
}

func (f *fakeSession) ShiftBadgeNumbers(ctx context.Context, t model.BadgeType, low, high, delta int) (int64, error) {
	f.shifts = append(f.shifts, shiftCall{badgeType: t, low: low, high: high, delta: delta})

	var moved int64
	seen := make(map[*model.Attendee]bool)
	for _, group := range [][]*model.Attendee{f.committed, f.pending} {
		for _, a := range group {
			if seen[a] {
				continue
			}
			seen[a] = true
			if a.BadgeType != t || a.BadgeNum == nil || *a.BadgeNum < low || *a.BadgeNum > high {
				continue
			}
			shifted := *a.BadgeNum + delta
			a.BadgeNum = &shifted
			moved++
		}
	}
	return moved, nil
}

func (f *fakeSession) BadgeHolder(ctx context.Context, n int, excludeID string) (*model.Attendee, error) {
	for _, group := range [][]*model.Attendee{f.pending, f.committed} {
		for _, a := range group {
			if a.ID != excludeID && a.BadgeNum != nil && *a.BadgeNum == n {
				return a, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeSession) Pending() []*model.Attendee {
	return f.pending
}

// persist copies an edited attendee's badge onto its committed row
func (f *fakeSession) persist(a *model.Attendee) {
	for _, row := range f.committed {
		if row.ID == a.ID {
			row.BadgeType = a.BadgeType
			row.BadgeNum = copyNum(a.BadgeNum)
			return
		}
	}
	row := *a
	row.BadgeNum = copyNum(a.BadgeNum)
	f.committed = append(f.committed, &row)
}

func (f *fakeSession) committedNums(t model.BadgeType) map[string]int {
	nums := make(map[string]int)
	for _, a := range f.committed {
		if a.BadgeType == t && a.BadgeNum != nil {
			nums[a.ID] = *a.BadgeNum
		}
	}
	return nums
}

func staffSession(n int) *fakeSession {
	f := &fakeSession{}
	for i := 1; i <= n; i++ {
		f.committed = append(f.committed, staffer(string(rune('a'+i-1)), num(i)))
	}
	return f
}
