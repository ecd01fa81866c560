package badges

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// Renumberer applies bulk badge number changes inside the current transaction
type Renumberer interface {
	// ShiftBadgeNumbers adds delta to the number of every badge of type t numbered
	// in [low, high] and returns the number of attendees moved
	ShiftBadgeNumbers(ctx context.Context, t model.BadgeType, low, high, delta int) (int64, error)
}

// ShiftOptions selects the direction and extent of a shift.
// Setting both Up and Down is an error; setting neither shifts down.
type ShiftOptions struct {
	Up   bool
	Down bool
	// Until is the last number moved. Zero means the top of the type's range.
	Until int
}

func (o ShiftOptions) delta() (int, error) {
	if o.Up && o.Down {
		return 0, fmt.Errorf("%w: a badge shift is either up or down, not both", ErrInvalidArgument)
	}
	if o.Up {
		return 1, nil
	}
	return -1, nil
}

// ShiftEngine renumbers contiguous blocks of badges to open or close gaps
type ShiftEngine struct {
	settings *Settings
	lock     *BadgeLock
	logger   *zap.Logger
}

// NewShiftEngine creates a shift engine
func NewShiftEngine(settings *Settings, lock *BadgeLock, logger *zap.Logger) *ShiftEngine {
	return &ShiftEngine{settings: settings, lock: lock, logger: logger}
}

// Shift moves every badge of type t numbered from..until one step up or down.
// It returns false without touching anything when renumbering is disabled,
// and true otherwise, even if no badge was in the block.
func (e *ShiftEngine) Shift(ctx context.Context, r Renumberer, t model.BadgeType, from int, opts ShiftOptions) (bool, error) {
	delta, err := opts.delta()
	if err != nil {
		return false, err
	}

	if !e.settings.ShiftingEnabled() {
		e.logger.Debug("Badge shifting disabled, skipping",
			zap.String("badge_type", t.Label()),
			zap.Int("from", from))
		return false, nil
	}

	t = e.settings.RealBadgeType(t)
	rng, err := e.settings.RangeFor(t)
	if err != nil {
		return false, err
	}

	until := opts.Until
	if until == 0 || until > rng.High {
		until = rng.High
	}

	ctx, release, err := e.lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire badge lock: %w", err)
	}
	defer release()

	if from > until {
		return true, nil
	}

	moved, err := r.ShiftBadgeNumbers(ctx, t, from, until, delta)
	if err != nil {
		return false, fmt.Errorf("failed to shift %s badges: %w", t.Label(), err)
	}

	e.logger.Debug("Shifted badges",
		zap.String("badge_type", t.Label()),
		zap.Int("from", from),
		zap.Int("until", until),
		zap.Int("delta", delta),
		zap.Int64("moved", moved))

	return true, nil
}
