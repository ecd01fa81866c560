package badges

import (
	"context"
	"fmt"
	"sort"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// NumberReader exposes the committed badge numbers
type NumberReader interface {
	// BadgeNumbersInRange returns every assigned badge number in [low, high]
	BadgeNumbersInRange(ctx context.Context, low, high int) ([]int, error)
}

// RangeAllocator finds the next free number inside a badge type's range
type RangeAllocator struct {
	settings *Settings
}

// NewRangeAllocator creates an allocator over the given settings
func NewRangeAllocator(settings *Settings) *RangeAllocator {
	return &RangeAllocator{settings: settings}
}

// NextAvailable returns the lowest gap in the committed numbers of the type's range,
// or one past the highest committed number when there is no gap.
// It only reads; callers that go on to write must hold the badge lock.
func (a *RangeAllocator) NextAvailable(ctx context.Context, reader NumberReader, t model.BadgeType) (int, error) {
	t = a.settings.RealBadgeType(t)
	r, err := a.settings.RangeFor(t)
	if err != nil {
		return 0, err
	}

	nums, err := reader.BadgeNumbersInRange(ctx, r.Low, r.High)
	if err != nil {
		return 0, fmt.Errorf("failed to read badge numbers for %s: %w", t.Label(), err)
	}

	next := firstFree(nums, r.Low)
	if next > r.High {
		return 0, &RangeExhaustedError{BadgeType: t, Range: r}
	}
	return next, nil
}

// firstFree returns the smallest number >= low missing from nums
func firstFree(nums []int, low int) int {
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)

	next := low
	for _, n := range sorted {
		if n < next {
			continue
		}
		if n > next {
			break
		}
		next = n + 1
	}
	return next
}
