package badges

import (
	"fmt"
	"sort"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// CheckRange returns an error when num is outside the range of badge type t
func (s *Settings) CheckRange(num int, t model.BadgeType) error {
	t = s.RealBadgeType(t)
	r, err := s.RangeFor(t)
	if err != nil {
		return err
	}
	if !r.Contains(num) {
		return fmt.Errorf("%w: %s badge numbers must fall within the range %s", ErrOutOfRange, t.Label(), r)
	}
	return nil
}

// IsBadgeUnchanged reports whether an edit would leave the attendee's badge as it is.
// A blank number means "keep the current one".
func IsBadgeUnchanged(a *model.Attendee, t model.BadgeType, num *int) bool {
	return a.BadgeType == t && (num == nil || sameNum(a.BadgeNum, num))
}

// ConsistencyCheck reports numbering problems among the given attendees:
// numbers outside their type's range, duplicated numbers and gaps.
func (s *Settings) ConsistencyCheck(attendees []*model.Attendee) []string {
	var problems []string

	byType := make(map[model.BadgeType][]int)
	owners := make(map[int][]string)
	for _, a := range attendees {
		if a.BadgeNum == nil || !a.IsValid() {
			continue
		}
		t := s.RealBadgeType(a.BadgeType)
		num := *a.BadgeNum
		if err := s.CheckRange(num, t); err != nil {
			problems = append(problems, fmt.Sprintf("%s has badge #%d which is outside the %s range", a.FullName(), num, t.Label()))
			continue
		}
		byType[t] = append(byType[t], num)
		owners[num] = append(owners[num], a.FullName())
	}

	for _, t := range s.rangeOrder() {
		nums := byType[t]
		if len(nums) == 0 {
			continue
		}
		sort.Ints(nums)

		expected := s.Ranges[t].Low
		for i, n := range nums {
			if i > 0 && n == nums[i-1] {
				continue
			}
			if len(owners[n]) > 1 {
				problems = append(problems, fmt.Sprintf("%s badge #%d is shared by %v", t.Label(), n, owners[n]))
			}
			if n > expected {
				if n-1 == expected {
					problems = append(problems, fmt.Sprintf("%s badge #%d is unassigned", t.Label(), expected))
				} else {
					problems = append(problems, fmt.Sprintf("%s badges #%d - #%d are unassigned", t.Label(), expected, n-1))
				}
			}
			expected = n + 1
		}
	}

	return problems
}
