package volunteers

import "errors"

var (
	ErrNotTrusted           = errors.New("not trusted")
	ErrJobFull              = errors.New("job full")
	ErrScheduleConflict     = errors.New("schedule conflict")
	ErrJobSlotsBelowSignups = errors.New("job slots below signups")
	ErrNotStaffing          = errors.New("not staffing")
	ErrNotMember            = errors.New("not a department member")
	ErrNotApproved          = errors.New("not approved for setup or teardown")
	ErrWorkingLimit         = errors.New("working limit exceeded")
)

// EligibilityError explains why an attendee cannot take a job.
// Message is written for the registration desk; Err is one of the sentinels above.
type EligibilityError struct {
	Criterion string
	Err       error
	Message   string
}

func (e *EligibilityError) Error() string {
	return e.Message
}

func (e *EligibilityError) Unwrap() error {
	return e.Err
}
