package engine

import (
	"errors"
	"fmt"
)

// Rejections. When an engine operation returns one of these the profile is
// left exactly as it was.
var (
	ErrUnknownAchievement   = errors.New("unknown achievement")
	ErrAlreadyStarted       = errors.New("achievement already in progress")
	ErrAlreadyCompleted     = errors.New("achievement already completed")
	ErrNotInProgress        = errors.New("achievement is not in progress")
	ErrUnknownTask          = errors.New("unknown task")
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	ErrUnknownPeriod        = errors.New("unknown task period")
	ErrAlreadySynced        = errors.New("health data already synced for this date")
	ErrStaleHealthDate      = errors.New("health date is not after the last synced date")
	ErrPeriodNotOver        = errors.New("task period has not ended yet")
	ErrNotReady             = errors.New("achievement is not ready to complete")
)

// CapacityError is returned when too many achievements are in progress.
type CapacityError struct {
	Limit int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("too many achievements in progress (limit %d)", e.Limit)
}

// ErrTooManyActive matches any CapacityError via errors.Is.
var ErrTooManyActive = errors.New("too many achievements in progress")

func (e CapacityError) Is(target error) bool {
	return target == ErrTooManyActive
}

// IsRejection reports whether err is one of the engine's no-op rejections
// rather than an infrastructure failure.
func IsRejection(err error) bool {
	for _, e := range []error{
		ErrUnknownAchievement, ErrAlreadyStarted, ErrAlreadyCompleted, ErrNotInProgress,
		ErrUnknownTask, ErrTaskAlreadyCompleted, ErrUnknownPeriod, ErrAlreadySynced, ErrStaleHealthDate,
		ErrPeriodNotOver, ErrNotReady, ErrTooManyActive,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
