package db

import (
	"context"
	"errors"

	"github.com/magfest/ubersystem/pkg/core/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNoOpenSlots is returned by InsertShiftIfOpen when the job is already full
	ErrNoOpenSlots = errors.New("job has no open slots")
	// ErrSlotsBelowSignups is returned by SetJobSlots when more volunteers are signed up than the new slot count
	ErrSlotsBelowSignups = errors.New("slots below current signups")
)

// AttendeeStore defines the interface for attendee database operations.
// Both the in-memory MemoryStore and postgres.DB implement this interface.
type AttendeeStore interface {
	BeginTx(ctx context.Context) (AttendeeTx, error)
	// NumberedAttendees returns every attendee holding a badge number, outside any transaction
	NumberedAttendees(ctx context.Context) ([]*model.Attendee, error)
}

// AttendeeTx is a transaction over attendee rows
type AttendeeTx interface {
	GetAttendee(ctx context.Context, id string) (*model.Attendee, error)
	BadgeNumbersInRange(ctx context.Context, low, high int) ([]int, error)
	ShiftBadgeNumbers(ctx context.Context, t model.BadgeType, low, high, delta int) (int64, error)
	AttendeesWithBadgeNum(ctx context.Context, num int) ([]*model.Attendee, error)
	InsertAttendee(ctx context.Context, a *model.Attendee) error
	UpdateAttendee(ctx context.Context, a *model.Attendee) error
	DeleteAttendee(ctx context.Context, id string) error
	Commit() error
	Rollback() error
}

// BadgeLocker is implemented by transactions that can lock badge numbering
// against other processes sharing the same database
type BadgeLocker interface {
	LockBadgeNumbers(ctx context.Context) error
}

// JobFilter narrows ListJobs. The zero value matches every job.
type JobFilter struct {
	DepartmentIDs []string
	// Public also matches jobs open to all volunteers, whatever their department
	Public bool
}

// Matches reports whether the job passes the filter
func (f JobFilter) Matches(j *model.Job) bool {
	if len(f.DepartmentIDs) == 0 && !f.Public {
		return true
	}
	if f.Public && j.IsPublic() {
		return true
	}
	for _, id := range f.DepartmentIDs {
		if j.DepartmentID == id {
			return true
		}
	}
	return false
}

// VolunteerStore defines the interface for job and shift database operations
type VolunteerStore interface {
	ListDepartments(ctx context.Context) ([]*model.Department, error)
	// GetJob returns the job with its department, required roles and shifts
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*model.Job, error)
	InsertJobs(ctx context.Context, jobs []*model.Job) error
	SetJobSlots(ctx context.Context, jobID string, slots int) error

	// GetVolunteer returns the attendee with memberships, roles and shifts (each with its job)
	GetVolunteer(ctx context.Context, id string) (*model.Attendee, error)
	// ListStaffers returns every staffing attendee who belongs to the department
	ListStaffers(ctx context.Context, departmentID string) ([]*model.Attendee, error)

	// InsertShiftIfOpen creates the shift unless the job's slots are all taken
	InsertShiftIfOpen(ctx context.Context, shift *model.Shift) error
	DeleteShift(ctx context.Context, id string) error
}
