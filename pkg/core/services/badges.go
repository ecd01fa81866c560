package services

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/badges"
	"github.com/magfest/ubersystem/pkg/core/model"
)

// ChangeRejectedError is a badge change refused for a reason the registration desk can act on
type ChangeRejectedError struct {
	Reason string
}

func (e *ChangeRejectedError) Error() string {
	return e.Reason
}

func rejected(format string, args ...interface{}) error {
	return &ChangeRejectedError{Reason: fmt.Sprintf(format, args...)}
}

// RegisterAttendee stores a new attendee, assigning a badge number if their badge type needs one
func RegisterAttendee(ctx context.Context, n *Numbering, logger *zap.Logger, a *model.Attendee) (*model.Attendee, error) {
	session := n.NewSession(logger)
	session.Add(a)

	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to register attendee: %w", err)
	}

	fields := []zap.Field{
		zap.String("attendee_id", a.ID),
		zap.String("badge_type", a.BadgeType.Label()),
	}
	if a.BadgeNum != nil {
		fields = append(fields, zap.Int("badge_num", *a.BadgeNum))
	}
	logger.Info("Registered attendee", fields...)
	return a, nil
}

// ChangeBadge gives an attendee a new badge type and optionally a specific number.
// A nil number asks for the next free one. Returns a message for the registration desk,
// or a *ChangeRejectedError when the change is not allowed right now.
func ChangeBadge(ctx context.Context, n *Numbering, logger *zap.Logger, attendeeID string, badgeType model.BadgeType, badgeNum *int) (string, error) {
	settings := n.Settings()

	if badgeNum != nil {
		if err := settings.CheckRange(*badgeNum, badgeType); err != nil {
			return "", err
		}
	}

	// Held until the commit so the checks below see the numbers the commit writes
	ctx, release, err := n.Coordinator.Lock().Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire badge lock: %w", err)
	}
	defer release()

	session := n.NewSession(logger)
	defer session.Rollback()

	if err := session.LockBadgeNumbers(ctx); err != nil {
		return "", err
	}

	a, err := session.Get(ctx, attendeeID)
	if err != nil {
		return "", err
	}

	if badges.IsBadgeUnchanged(a, badgeType, badgeNum) {
		return fmt.Sprintf("Attendee is already %s with badge %s", a.BadgeType.Label(), numLabel(a.BadgeNum)), nil
	}

	oldType := a.BadgeType
	if settings.AfterPrintedBadgeDeadline() {
		newPreassigned, oldPreassigned := settings.IsPreassigned(badgeType), settings.IsPreassigned(oldType)
		switch {
		case newPreassigned && !oldPreassigned:
			return "", rejected("Custom badges have already been ordered; you can add new staffers by giving them an Attendee badge with a Volunteer Ribbon")
		case !newPreassigned && oldPreassigned:
			badgeNum = nil
		case newPreassigned && badgeNum != nil && (a.BadgeNum == nil || *a.BadgeNum != *badgeNum):
			return "", rejected("Custom badges have already been ordered, so you cannot shift badge numbers")
		}
	}

	if settings.AtTheCon {
		if badgeNum == nil && settings.IsPreassigned(badgeType) {
			return "", rejected("You must assign a badge number for pre-assigned badge types")
		}
		if badgeNum != nil {
			holder, err := session.BadgeHolder(ctx, *badgeNum, a.ID)
			if err != nil {
				return "", fmt.Errorf("failed to look up badge %d: %w", *badgeNum, err)
			}
			if holder != nil {
				return "", rejected("That badge number already belongs to %q", holder.FullName())
			}
		}
	}

	a.BadgeType = badgeType
	a.BadgeNum = badgeNum
	if err := session.Save(a); err != nil {
		return "", err
	}
	if err := session.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to change badge: %w", err)
	}

	logger.Info("Changed badge",
		zap.String("attendee_id", a.ID),
		zap.String("old_type", oldType.Label()),
		zap.String("new_type", a.BadgeType.Label()),
		zap.String("badge_num", numLabel(a.BadgeNum)))
	return "Badge updated", nil
}

// DeleteAttendees removes attendees in one flush. Unless keepNumbering is set, each
// removed number is closed up by moving the badges above it down.
func DeleteAttendees(ctx context.Context, n *Numbering, logger *zap.Logger, ids []string, keepNumbering bool) error {
	session := n.NewSession(logger)
	defer session.Rollback()

	for _, id := range ids {
		a, err := session.Get(ctx, id)
		if err != nil {
			return err
		}
		a.SkipBadgeShiftOnDelete = keepNumbering
		if err := session.Delete(a); err != nil {
			return err
		}
	}

	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete attendees: %w", err)
	}

	logger.Info("Deleted attendees", zap.Int("count", len(ids)), zap.Bool("keep_numbering", keepNumbering))
	return nil
}

// NextBadgeNumber returns the number the next attendee of the given type would receive
func NextBadgeNumber(ctx context.Context, n *Numbering, logger *zap.Logger, t model.BadgeType) (int, error) {
	session := n.NewSession(logger)
	defer session.Rollback()

	next, err := n.Coordinator.GetNextBadgeNum(ctx, session, t)
	if err != nil {
		return 0, err
	}
	logger.Debug("Next badge number", zap.String("badge_type", t.Label()), zap.Int("badge_num", next))
	return next, nil
}

// ShiftBadges moves a block of badge numbers one step and commits the result.
// Returns false when renumbering is currently disabled.
func ShiftBadges(ctx context.Context, n *Numbering, logger *zap.Logger, t model.BadgeType, from int, opts badges.ShiftOptions) (bool, error) {
	ctx, release, err := n.Coordinator.Lock().Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire badge lock: %w", err)
	}
	defer release()

	session := n.NewSession(logger)
	defer session.Rollback()

	if err := session.LockBadgeNumbers(ctx); err != nil {
		return false, err
	}

	shifted, err := n.Coordinator.ShiftBadges(ctx, session, t, from, opts)
	if err != nil || !shifted {
		return shifted, err
	}

	if err := session.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to shift badges: %w", err)
	}
	return true, nil
}

// CheckBadgeConsistency reports out-of-range, duplicated and missing badge numbers
func CheckBadgeConsistency(ctx context.Context, n *Numbering, logger *zap.Logger) ([]string, error) {
	attendees, err := n.Store.NumberedAttendees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch numbered attendees: %w", err)
	}

	problems := n.Settings().ConsistencyCheck(attendees)
	logger.Debug("Checked badge numbers", zap.Int("attendees", len(attendees)), zap.Int("problems", len(problems)))
	return problems, nil
}

func numLabel(n *int) string {
	if n == nil {
		return "(none)"
	}
	return strconv.Itoa(*n)
}
