package badges

import (
	"errors"
	"fmt"

	"github.com/magfest/ubersystem/pkg/core/model"
)

var (
	// ErrRangeExhausted is matched by every *RangeExhaustedError
	ErrRangeExhausted  = errors.New("no more badge numbers available in this range")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLockTimeout     = errors.New("timed out waiting for the badge lock")
	ErrOutOfRange      = errors.New("badge number out of range")
)

// RangeExhaustedError is returned when a badge type has no free numbers left
type RangeExhaustedError struct {
	BadgeType model.BadgeType
	Range     Range
}

func (e *RangeExhaustedError) Error() string {
	return fmt.Sprintf("no more %s badge numbers available in this range (%s)", e.BadgeType.Label(), e.Range)
}

func (e *RangeExhaustedError) Is(target error) bool {
	return target == ErrRangeExhausted
}
