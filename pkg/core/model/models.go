package model

import (
	"slices"
	"strings"
	"time"
)

// Attendee is a registered person who may hold a numbered badge and work volunteer shifts
type Attendee struct {
	ID        string
	FirstName string
	LastName  string
	Email     string

	BadgeType         BadgeType
	BadgeNum          *int
	BadgeStatus       BadgeStatus
	Paid              PaidStatus
	CheckedIn         *time.Time
	Placeholder       bool
	PersonalizedBadge bool
	Ribbons           []Ribbon

	Staffing        bool
	CanWorkSetup    bool
	CanWorkTeardown bool
	NonshiftMinutes int

	Memberships []DeptMembership
	Shifts      []Shift

	// SkipBadgeShiftOnDelete is set by bulk deletions that renumber afterwards in one pass
	SkipBadgeShiftOnDelete bool
}

// Department owns jobs and the memberships of the staffers who work them
type Department struct {
	ID                       string
	Name                     string
	IsShiftless              bool
	IsSetupApprovalExempt    bool
	IsTeardownApprovalExempt bool
	// MaxConsecutiveHours of zero means no limit
	MaxConsecutiveHours int
}

// DeptRole is an ad-hoc role defined by a department, e.g. "Trusted" or "Cash handler"
type DeptRole struct {
	ID           string
	DepartmentID string
	Name         string
}

// DeptMembership links an attendee to a department
type DeptMembership struct {
	ID               string
	AttendeeID       string
	DepartmentID     string
	Department       *Department
	IsDeptHead       bool
	IsPOC            bool
	IsChecklistAdmin bool
	Roles            []DeptRole
}

// Job is a block of volunteer work with a fixed number of slots
type Job struct {
	ID           string
	DepartmentID string
	Department   *Department
	Name         string
	Description  string
	Type         JobType
	StartTime    time.Time
	// Duration in whole hours
	Duration      int
	Weight        float64
	Slots         int
	Extra15       bool
	Visibility    JobVisibility
	RequiredRoles []DeptRole
	Shifts        []Shift
}

// Shift records an attendee's signup for a job
type Shift struct {
	ID         string
	JobID      string
	AttendeeID string
	Job        *Job
	Attendee   *Attendee
	Worked     WorkedStatus
	Rating     Rating
	Comment    string
}

// FullName returns "First Last"
func (a *Attendee) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// IsUnassigned reports whether the badge has not yet been claimed by a named person
func (a *Attendee) IsUnassigned() bool {
	return strings.TrimSpace(a.FirstName) == ""
}

// IsValid reports whether the attendee's badge status counts towards numbering
func (a *Attendee) IsValid() bool {
	return a.BadgeStatus.IsValid()
}

// IsCheckedIn reports whether the attendee has collected their badge
func (a *Attendee) IsCheckedIn() bool {
	return a.CheckedIn != nil
}

// HasRibbon reports whether the attendee carries the given ribbon
func (a *Attendee) HasRibbon(r Ribbon) bool {
	return HasFlag(a.Ribbons, r)
}

// AddRibbon adds a ribbon unless it is already present
func (a *Attendee) AddRibbon(r Ribbon) {
	if !a.HasRibbon(r) {
		a.Ribbons = append(a.Ribbons, r)
	}
}

// Membership returns the attendee's membership in a department, if any
func (a *Attendee) Membership(departmentID string) *DeptMembership {
	for i := range a.Memberships {
		if a.Memberships[i].DepartmentID == departmentID {
			return &a.Memberships[i]
		}
	}
	return nil
}

// IsMemberOf reports whether the attendee belongs to the department
func (a *Attendee) IsMemberOf(departmentID string) bool {
	return a.Membership(departmentID) != nil
}

// HasRole reports whether the attendee holds the given role in any department
func (a *Attendee) HasRole(roleID string) bool {
	for _, m := range a.Memberships {
		for _, r := range m.Roles {
			if r.ID == roleID {
				return true
			}
		}
	}
	return false
}

// IsDeptHead reports whether the attendee heads any department
func (a *Attendee) IsDeptHead() bool {
	for _, m := range a.Memberships {
		if m.IsDeptHead {
			return true
		}
	}
	return false
}

// HasShiftFor reports whether the attendee is already signed up for the job
func (a *Attendee) HasShiftFor(jobID string) bool {
	for _, s := range a.Shifts {
		if s.JobID == jobID {
			return true
		}
	}
	return false
}

// HasFlag reports whether a multi-choice value contains the given option
func HasFlag[T comparable](values []T, flag T) bool {
	return slices.Contains(values, flag)
}

// Restricted reports whether only attendees holding a required role may work the job
func (j *Job) Restricted() bool {
	return len(j.RequiredRoles) > 0
}

// IsPublic reports whether volunteers outside the job's department may sign up
func (j *Job) IsPublic() bool {
	return j.Visibility > MembersOnlyVisibility
}

// EndTime returns the moment the job's last hour finishes
func (j *Job) EndTime() time.Time {
	return j.StartTime.Add(time.Duration(j.Duration) * time.Hour)
}

// Hours returns the start of every hour the job covers
func (j *Job) Hours() []time.Time {
	hours := make([]time.Time, 0, j.Duration)
	for i := 0; i < j.Duration; i++ {
		hours = append(hours, j.StartTime.Add(time.Duration(i)*time.Hour))
	}
	return hours
}

// RealDuration is the job length in hours including the optional 15 minute buffer
func (j *Job) RealDuration() float64 {
	d := float64(j.Duration)
	if j.Extra15 {
		d += 0.25
	}
	return d
}

// WeightedHours is the credit a volunteer receives for working the job
func (j *Job) WeightedHours() float64 {
	return j.Weight * j.RealDuration()
}

// TotalHours is the credit available across every slot of the job
func (j *Job) TotalHours() float64 {
	return j.WeightedHours() * float64(j.Slots)
}

// SlotsTaken returns the number of signups
func (j *Job) SlotsTaken() int {
	return len(j.Shifts)
}

// SlotsUntaken returns how many more volunteers can sign up
func (j *Job) SlotsUntaken() int {
	if n := j.Slots - len(j.Shifts); n > 0 {
		return n
	}
	return 0
}

// IsFull reports whether every slot has been taken
func (j *Job) IsFull() bool {
	return len(j.Shifts) >= j.Slots
}

// IsSetup reports whether the job happens before the event opens
func (j *Job) IsSetup() bool {
	return j.Type == SetupJob
}

// IsTeardown reports whether the job happens after the event closes
func (j *Job) IsTeardown() bool {
	return j.Type == TeardownJob
}
