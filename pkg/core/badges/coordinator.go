package badges

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// Session is the unit of work the coordinator operates on while a flush is in progress
type Session interface {
	NumberReader
	Renumberer
	// BadgeHolder returns the attendee other than excludeID whose badge number is num,
	// looking at pending changes before committed rows. Returns nil when the number is free.
	BadgeHolder(ctx context.Context, num int, excludeID string) (*model.Attendee, error)
	// Pending returns the attendees being inserted or updated by the current flush
	Pending() []*model.Attendee
}

// Coordinator keeps badge numbers unique and dense as attendees are created, changed and deleted
type Coordinator struct {
	settings  *Settings
	lock      *BadgeLock
	allocator *RangeAllocator
	shifter   *ShiftEngine
	logger    *zap.Logger
}

// NewCoordinator wires the allocator and shift engine around a shared lock
func NewCoordinator(settings *Settings, lock *BadgeLock, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		settings:  settings,
		lock:      lock,
		allocator: NewRangeAllocator(settings),
		shifter:   NewShiftEngine(settings, lock, logger),
		logger:    logger,
	}
}

// Settings returns the numbering configuration
func (c *Coordinator) Settings() *Settings {
	return c.settings
}

// Lock returns the badge lock shared by every numbering operation
func (c *Coordinator) Lock() *BadgeLock {
	return c.lock
}

// NeedsBadgeNum reports whether the attendee should hold a badge number.
// With only a badge type it answers for a hypothetical attendee of that type.
// ok is false when neither an attendee nor a type was given.
func (c *Coordinator) NeedsBadgeNum(a *model.Attendee, t model.BadgeType) (needs bool, ok bool) {
	if a == nil && t == 0 {
		return false, false
	}
	if t == 0 {
		t = a.BadgeType
	}
	t = c.settings.RealBadgeType(t)

	if a == nil {
		return c.settings.IsPreassigned(t), true
	}

	return c.settings.NumberedBadges &&
		(c.settings.IsPreassigned(t) || a.PersonalizedBadge) &&
		(!a.IsUnassigned() || t == model.ContractorBadge) &&
		a.Paid != model.NotPaid &&
		a.IsValid(), true
}

func (c *Coordinator) needs(a *model.Attendee) bool {
	needs, _ := c.NeedsBadgeNum(a, 0)
	return needs
}

// NextAvailable returns the lowest free committed number without looking at pending changes
func (c *Coordinator) NextAvailable(ctx context.Context, reader NumberReader, t model.BadgeType) (int, error) {
	return c.allocator.NextAvailable(ctx, reader, t)
}

// GetNextBadgeNum returns the number the next attendee of type t should receive,
// accounting for numbers handed out earlier in the same flush.
func (c *Coordinator) GetNextBadgeNum(ctx context.Context, s Session, t model.BadgeType) (int, error) {
	t = c.settings.RealBadgeType(t)
	rng, err := c.settings.RangeFor(t)
	if err != nil {
		return 0, err
	}

	next, err := c.allocator.NextAvailable(ctx, s, t)
	if err != nil {
		return 0, err
	}

	for _, p := range s.Pending() {
		if p.BadgeNum != nil && rng.Contains(*p.BadgeNum) && *p.BadgeNum+1 > next {
			next = *p.BadgeNum + 1
		}
	}

	if next > rng.High {
		return 0, &RangeExhaustedError{BadgeType: t, Range: rng}
	}
	return next, nil
}

// ShiftBadges moves a block of badges of type t one step, see ShiftEngine.Shift
func (c *Coordinator) ShiftBadges(ctx context.Context, s Session, t model.BadgeType, from int, opts ShiftOptions) (bool, error) {
	return c.shifter.Shift(ctx, s, t, from, opts)
}

// UpdateBadge renumbers the surrounding badges after an attendee's type or number changed.
//
// The gap left at the old number is closed first. If someone else then holds the
// attendee's desired number, a slot is opened there (see openSlot).
// An attendee left without a number that needs one gets the next free number.
func (c *Coordinator) UpdateBadge(ctx context.Context, s Session, a *model.Attendee, oldType model.BadgeType, oldNum *int) (string, error) {
	ctx, release, err := c.lock.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire badge lock: %w", err)
	}
	defer release()

	if c.settings.ShiftingEnabled() {
		desired := copyNum(a.BadgeNum)
		newType := c.settings.RealBadgeType(a.BadgeType)

		if oldNum != nil && oldType != 0 {
			if _, err := c.shifter.Shift(ctx, s, oldType, *oldNum+1, ShiftOptions{Down: true}); err != nil {
				return "", err
			}
		}

		if desired != nil {
			if err := c.openSlot(ctx, s, a.ID, newType, *desired); err != nil {
				return "", err
			}
		}

		a.BadgeNum = desired
	}

	if a.BadgeNum == nil && c.needs(a) {
		next, err := c.GetNextBadgeNum(ctx, s, a.BadgeType)
		if err != nil {
			return "", err
		}
		a.BadgeNum = &next
	}

	return "Badge updated", nil
}

// openSlot frees num for attendee id. The block from num up to the first free
// number above it moves up one. When the top of the range is taken, the block
// from the first free number below num moves down one instead. Nothing moves
// when the range has no free number at all.
func (c *Coordinator) openSlot(ctx context.Context, s Session, id string, t model.BadgeType, num int) error {
	holder, err := s.BadgeHolder(ctx, num, id)
	if err != nil {
		return fmt.Errorf("failed to look up holder of badge %d: %w", num, err)
	}
	if holder == nil {
		return nil
	}
	if err := c.settings.CheckRange(num, t); err != nil {
		return err
	}
	rng, err := c.settings.RangeFor(t)
	if err != nil {
		return err
	}

	free, found, err := c.firstFree(ctx, s, id, num+1, rng.High, 1)
	if err != nil {
		return err
	}
	if found {
		c.logger.Debug("Badge number taken, moving block up",
			zap.String("attendee_id", id),
			zap.String("holder_id", holder.ID),
			zap.Int("badge_num", num),
			zap.Int("until", free-1))
		_, err := c.shifter.Shift(ctx, s, t, num, ShiftOptions{Up: true, Until: free - 1})
		return err
	}

	free, found, err = c.firstFree(ctx, s, id, num-1, rng.Low, -1)
	if err != nil {
		return err
	}
	if !found {
		return &RangeExhaustedError{BadgeType: t, Range: rng}
	}
	c.logger.Debug("Badge number taken and range full above it, moving block down",
		zap.String("attendee_id", id),
		zap.String("holder_id", holder.ID),
		zap.Int("badge_num", num),
		zap.Int("from", free+1))
	_, err = c.shifter.Shift(ctx, s, t, free+1, ShiftOptions{Down: true, Until: num})
	return err
}

// firstFree walks from start towards stop in steps of dir and returns the first
// number nobody but id holds
func (c *Coordinator) firstFree(ctx context.Context, s Session, id string, start, stop, dir int) (int, bool, error) {
	for n := start; (dir > 0 && n <= stop) || (dir < 0 && n >= stop); n += dir {
		holder, err := s.BadgeHolder(ctx, n, id)
		if err != nil {
			return 0, false, fmt.Errorf("failed to look up holder of badge %d: %w", n, err)
		}
		if holder == nil {
			return n, true, nil
		}
	}
	return 0, false, nil
}

// SetBadgeNumInRange drops a number that falls outside the attendee's range and
// allocates a fresh one if the attendee still needs it. Printed badges are left alone.
func (c *Coordinator) SetBadgeNumInRange(ctx context.Context, s Session, a *model.Attendee) error {
	if a.BadgeNum == nil || a.IsCheckedIn() {
		return nil
	}
	if c.settings.AfterPrintedBadgeDeadline() && c.settings.IsPreassigned(a.BadgeType) {
		return nil
	}

	rng, err := c.settings.RangeFor(a.BadgeType)
	if err != nil {
		return err
	}
	if rng.Contains(*a.BadgeNum) {
		return nil
	}

	c.logger.Info("Badge number outside its range, reassigning",
		zap.String("attendee_id", a.ID),
		zap.String("badge_type", a.BadgeType.Label()),
		zap.Int("badge_num", *a.BadgeNum))

	a.BadgeNum = nil
	if c.needs(a) {
		next, err := c.GetNextBadgeNum(ctx, s, a.BadgeType)
		if err != nil {
			return err
		}
		a.BadgeNum = &next
	}
	return nil
}

// Presave runs for every attendee inserted or updated by a flush, before it is written.
// origType and origNum are the values loaded from the store; both are zero for new attendees.
func (c *Coordinator) Presave(ctx context.Context, s Session, a *model.Attendee, origType model.BadgeType, origNum *int) error {
	ctx, release, err := c.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire badge lock: %w", err)
	}
	defer release()

	if a.BadgeType == model.PseudoDealerBadge {
		a.AddRibbon(model.DealerRibbon)
	}
	a.BadgeType = c.settings.RealBadgeType(a.BadgeType)

	if a.BadgeNum != nil && !c.needs(a) && !a.IsCheckedIn() {
		a.BadgeNum = nil
	}
	if err := c.SetBadgeNumInRange(ctx, s, a); err != nil {
		return err
	}

	if origType != a.BadgeType || !sameNum(origNum, a.BadgeNum) {
		// A brand new attendee without a number has nothing to renumber around
		if origType == 0 && a.BadgeNum == nil {
			return c.assignIfNeeded(ctx, s, a)
		}
		if _, err := c.UpdateBadge(ctx, s, a, origType, origNum); err != nil {
			return err
		}
		return nil
	}

	return c.assignIfNeeded(ctx, s, a)
}

func (c *Coordinator) assignIfNeeded(ctx context.Context, s Session, a *model.Attendee) error {
	if a.BadgeNum != nil || !c.needs(a) {
		return nil
	}
	next, err := c.GetNextBadgeNum(ctx, s, a.BadgeType)
	if err != nil {
		return err
	}
	a.BadgeNum = &next
	c.logger.Debug("Assigned badge number",
		zap.String("attendee_id", a.ID),
		zap.String("badge_type", a.BadgeType.Label()),
		zap.Int("badge_num", next))
	return nil
}

// Predelete closes the gap an attendee's number leaves behind.
// A number already taken over earlier in the same flush leaves no gap.
func (c *Coordinator) Predelete(ctx context.Context, s Session, a *model.Attendee) error {
	if a.BadgeNum == nil || a.SkipBadgeShiftOnDelete {
		return nil
	}

	ctx, release, err := c.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire badge lock: %w", err)
	}
	defer release()

	holder, err := s.BadgeHolder(ctx, *a.BadgeNum, a.ID)
	if err != nil {
		return fmt.Errorf("failed to look up holder of badge %d: %w", *a.BadgeNum, err)
	}
	if holder != nil {
		c.logger.Debug("Deleted badge number already reused, not shifting",
			zap.String("attendee_id", a.ID),
			zap.String("holder_id", holder.ID),
			zap.Int("badge_num", *a.BadgeNum))
		return nil
	}

	_, err = c.shifter.Shift(ctx, s, a.BadgeType, *a.BadgeNum+1, ShiftOptions{Down: true})
	return err
}

func sameNum(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyNum(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
