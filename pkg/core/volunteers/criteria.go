package volunteers

import (
	"fmt"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// Criterion is one rule deciding whether an attendee may work a job.
// Any failing criterion vetoes the signup.
type Criterion interface {
	// Name returns a human-readable identifier for this criterion
	Name() string

	// Check returns nil when the rule allows the signup
	Check(job *model.Job, a *model.Attendee) *EligibilityError
}

// TrustedCriterion restricts jobs with required roles to attendees holding one of them
// in the job's department.
type TrustedCriterion struct{}

func (TrustedCriterion) Name() string {
	return "Trusted"
}

func (c TrustedCriterion) Check(job *model.Job, a *model.Attendee) *EligibilityError {
	if !job.Restricted() || HoldsRequiredRole(job, a) {
		return nil
	}
	return &EligibilityError{
		Criterion: c.Name(),
		Err:       ErrNotTrusted,
		Message:   "You cannot assign an untrusted attendee to a restricted shift",
	}
}

// HoldsRequiredRole reports whether the attendee has at least one of the job's
// required roles through their membership in the job's department
func HoldsRequiredRole(job *model.Job, a *model.Attendee) bool {
	m := a.Membership(job.DepartmentID)
	if m == nil {
		return false
	}
	for _, required := range job.RequiredRoles {
		for _, held := range m.Roles {
			if held.ID == required.ID {
				return true
			}
		}
	}
	return false
}

// CapacityCriterion rejects signups once every slot is taken
type CapacityCriterion struct{}

func (CapacityCriterion) Name() string {
	return "Capacity"
}

func (c CapacityCriterion) Check(job *model.Job, a *model.Attendee) *EligibilityError {
	if !job.IsFull() {
		return nil
	}
	return &EligibilityError{
		Criterion: c.Name(),
		Err:       ErrJobFull,
		Message:   "All slots for this job have already been filled",
	}
}

// OverlapCriterion rejects jobs that clash with the attendee's existing shifts
type OverlapCriterion struct{}

func (OverlapCriterion) Name() string {
	return "Overlap"
}

func (c OverlapCriterion) Check(job *model.Job, a *model.Attendee) *EligibilityError {
	other := Conflict(job, a)
	if other == nil {
		return nil
	}
	return &EligibilityError{
		Criterion: c.Name(),
		Err:       ErrScheduleConflict,
		Message:   fmt.Sprintf("%s is already signed up for a shift during that time (%s)", a.FullName(), other.Name),
	}
}

// StaffingCriterion only lets volunteers sign up
type StaffingCriterion struct{}

func (StaffingCriterion) Name() string {
	return "Staffing"
}

func (c StaffingCriterion) Check(job *model.Job, a *model.Attendee) *EligibilityError {
	if a.Staffing {
		return nil
	}
	return &EligibilityError{
		Criterion: c.Name(),
		Err:       ErrNotStaffing,
		Message:   fmt.Sprintf("%s is not signed up to volunteer", a.FullName()),
	}
}

// MembershipCriterion limits signups to members of the job's department
type MembershipCriterion struct{}

func (MembershipCriterion) Name() string {
	return "Membership"
}

func (c MembershipCriterion) Check(job *model.Job, a *model.Attendee) *EligibilityError {
	if job.IsPublic() || a.IsMemberOf(job.DepartmentID) {
		return nil
	}
	return &EligibilityError{
		Criterion: c.Name(),
		Err:       ErrNotMember,
		Message:   fmt.Sprintf("%s is not a member of this job's department", a.FullName()),
	}
}

// SetupTeardownCriterion requires approval for setup and teardown work,
// unless the department waives it
type SetupTeardownCriterion struct{}

func (SetupTeardownCriterion) Name() string {
	return "SetupTeardown"
}

func (c SetupTeardownCriterion) Check(job *model.Job, a *model.Attendee) *EligibilityError {
	var approved bool
	switch {
	case job.IsSetup():
		approved = a.CanWorkSetup || (job.Department != nil && job.Department.IsSetupApprovalExempt)
	case job.IsTeardown():
		approved = a.CanWorkTeardown || (job.Department != nil && job.Department.IsTeardownApprovalExempt)
	default:
		return nil
	}
	if approved {
		return nil
	}
	return &EligibilityError{
		Criterion: c.Name(),
		Err:       ErrNotApproved,
		Message:   fmt.Sprintf("%s has not been approved to work %s shifts", a.FullName(), job.Type.Label()),
	}
}

// WorkingLimitCriterion enforces the tightest consecutive hours limit among back to back shifts
type WorkingLimitCriterion struct{}

func (WorkingLimitCriterion) Name() string {
	return "WorkingLimit"
}

func (c WorkingLimitCriterion) Check(job *model.Job, a *model.Attendee) *EligibilityError {
	run, limit := consecutiveRun(job, a)
	if limit == 0 || run <= limit {
		return nil
	}
	return &EligibilityError{
		Criterion: c.Name(),
		Err:       ErrWorkingLimit,
		Message: fmt.Sprintf("%s would work %d hours in a row, more than the limit of %d",
			a.FullName(), run, limit),
	}
}
