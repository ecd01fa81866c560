package badges

import (
	"fmt"
	"sort"
	"time"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// Range is an inclusive block of badge numbers reserved for one badge type
type Range struct {
	Low  int
	High int
}

// Contains reports whether num lies inside the range
func (r Range) Contains(num int) bool {
	return num >= r.Low && num <= r.High
}

func (r Range) String() string {
	return fmt.Sprintf("%d - %d", r.Low, r.High)
}

// Settings is the numbering configuration for one event
type Settings struct {
	Ranges      map[model.BadgeType]Range
	Preassigned map[model.BadgeType]bool
	// PseudoTypes maps registration-only types to the real type they are numbered as
	PseudoTypes map[model.BadgeType]model.BadgeType

	NumberedBadges       bool
	ShiftCustomBadges    bool
	PrintedBadgeDeadline time.Time
	AtTheCon             bool

	// Now is overridable for tests
	Now func() time.Time
}

func (s *Settings) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RealBadgeType resolves pseudo types to the type that owns their numbers
func (s *Settings) RealBadgeType(t model.BadgeType) model.BadgeType {
	if real, ok := s.PseudoTypes[t]; ok {
		return real
	}
	if t.IsPseudo() {
		return model.AttendeeBadge
	}
	return t
}

// RangeFor returns the number range of a badge type
func (s *Settings) RangeFor(t model.BadgeType) (Range, error) {
	r, ok := s.Ranges[s.RealBadgeType(t)]
	if !ok {
		return Range{}, fmt.Errorf("%w: no badge range configured for %s", ErrInvalidArgument, t.Label())
	}
	return r, nil
}

// IsPreassigned reports whether badges of this type are printed with names and numbers ahead of time
func (s *Settings) IsPreassigned(t model.BadgeType) bool {
	return s.Preassigned[s.RealBadgeType(t)]
}

// AfterPrintedBadgeDeadline reports whether custom badges have been sent to the printer
func (s *Settings) AfterPrintedBadgeDeadline() bool {
	if s.PrintedBadgeDeadline.IsZero() {
		return false
	}
	return s.now().After(s.PrintedBadgeDeadline)
}

// ShiftingEnabled reports whether badge numbers may still be renumbered
func (s *Settings) ShiftingEnabled() bool {
	return s.ShiftCustomBadges && !s.AfterPrintedBadgeDeadline() && !s.AtTheCon
}

// BadgeTypeFor returns the badge type whose range contains num.
// With numbering disabled every number belongs to Attendee.
func (s *Settings) BadgeTypeFor(num int) (model.BadgeType, error) {
	if !s.NumberedBadges {
		return model.AttendeeBadge, nil
	}
	for _, t := range s.rangeOrder() {
		if s.Ranges[t].Contains(num) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%d is not a valid badge number (out of range)", num)
}

// rangeOrder lists the configured types ordered by their low bound
func (s *Settings) rangeOrder() []model.BadgeType {
	types := make([]model.BadgeType, 0, len(s.Ranges))
	for t := range s.Ranges {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		return s.Ranges[types[i]].Low < s.Ranges[types[j]].Low
	})
	return types
}
