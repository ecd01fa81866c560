package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magfest/ubersystem/pkg/core/model"
)

var attendeeFields = []string{
	"id", "first_name", "last_name", "email",
	"badge_type", "badge_num", "badge_status", "paid", "checked_in",
	"placeholder", "personalized_badge", "ribbons",
	"staffing", "can_work_setup", "can_work_teardown", "nonshift_minutes",
}

var departmentFields = []string{
	"id", "name", "is_shiftless", "is_setup_approval_exempt", "is_teardown_approval_exempt", "max_consecutive_hours",
}

var membershipFields = []string{
	"id", "attendee_id", "department_id", "is_dept_head", "is_poc", "is_checklist_admin",
}

var jobFields = []string{
	"id", "department_id", "name", "description", "job_type", "start_time", "duration", "weight", "slots", "extra15",
	"visibility",
}

var shiftFields = []string{
	"id", "job_id", "attendee_id", "worked", "rating", "comment",
}

func columns(fields []string) string {
	return strings.Join(fields, ", ")
}

func placeholders(fields []string) string {
	named := make([]string, len(fields))
	for i, f := range fields {
		named[i] = ":" + f
	}
	return strings.Join(named, ", ")
}

type attendeeRow struct {
	ID                string            `db:"id"`
	FirstName         string            `db:"first_name"`
	LastName          string            `db:"last_name"`
	Email             string            `db:"email"`
	BadgeType         model.BadgeType   `db:"badge_type"`
	BadgeNum          *int              `db:"badge_num"`
	BadgeStatus       model.BadgeStatus `db:"badge_status"`
	Paid              model.PaidStatus  `db:"paid"`
	CheckedIn         *time.Time        `db:"checked_in"`
	Placeholder       bool              `db:"placeholder"`
	PersonalizedBadge bool              `db:"personalized_badge"`
	Ribbons           string            `db:"ribbons"`
	Staffing          bool              `db:"staffing"`
	CanWorkSetup      bool              `db:"can_work_setup"`
	CanWorkTeardown   bool              `db:"can_work_teardown"`
	NonshiftMinutes   int               `db:"nonshift_minutes"`
}

func newAttendeeRow(a *model.Attendee) attendeeRow {
	return attendeeRow{
		ID:                a.ID,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		Email:             a.Email,
		BadgeType:         a.BadgeType,
		BadgeNum:          a.BadgeNum,
		BadgeStatus:       a.BadgeStatus,
		Paid:              a.Paid,
		CheckedIn:         a.CheckedIn,
		Placeholder:       a.Placeholder,
		PersonalizedBadge: a.PersonalizedBadge,
		Ribbons:           encodeRibbons(a.Ribbons),
		Staffing:          a.Staffing,
		CanWorkSetup:      a.CanWorkSetup,
		CanWorkTeardown:   a.CanWorkTeardown,
		NonshiftMinutes:   a.NonshiftMinutes,
	}
}

func (r attendeeRow) toModel() (*model.Attendee, error) {
	ribbons, err := decodeRibbons(r.Ribbons)
	if err != nil {
		return nil, fmt.Errorf("attendee %s: %w", r.ID, err)
	}
	return &model.Attendee{
		ID:                r.ID,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Email:             r.Email,
		BadgeType:         r.BadgeType,
		BadgeNum:          r.BadgeNum,
		BadgeStatus:       r.BadgeStatus,
		Paid:              r.Paid,
		CheckedIn:         r.CheckedIn,
		Placeholder:       r.Placeholder,
		PersonalizedBadge: r.PersonalizedBadge,
		Ribbons:           ribbons,
		Staffing:          r.Staffing,
		CanWorkSetup:      r.CanWorkSetup,
		CanWorkTeardown:   r.CanWorkTeardown,
		NonshiftMinutes:   r.NonshiftMinutes,
	}, nil
}

func attendeesFromRows(rows []attendeeRow) ([]*model.Attendee, error) {
	result := make([]*model.Attendee, 0, len(rows))
	for _, r := range rows {
		a, err := r.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

// Ribbons are stored as a comma separated list of ribbon ids, e.g. "1,3"
func encodeRibbons(ribbons []model.Ribbon) string {
	ids := make([]string, len(ribbons))
	for i, r := range ribbons {
		ids[i] = strconv.Itoa(int(r))
	}
	return strings.Join(ids, ",")
}

func decodeRibbons(s string) ([]model.Ribbon, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ribbons := make([]model.Ribbon, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid ribbon %q: %w", p, err)
		}
		ribbons = append(ribbons, model.Ribbon(id))
	}
	return ribbons, nil
}

type departmentRow struct {
	ID                       string `db:"id"`
	Name                     string `db:"name"`
	IsShiftless              bool   `db:"is_shiftless"`
	IsSetupApprovalExempt    bool   `db:"is_setup_approval_exempt"`
	IsTeardownApprovalExempt bool   `db:"is_teardown_approval_exempt"`
	MaxConsecutiveHours      int    `db:"max_consecutive_hours"`
}

func (r departmentRow) toModel() *model.Department {
	return &model.Department{
		ID:                       r.ID,
		Name:                     r.Name,
		IsShiftless:              r.IsShiftless,
		IsSetupApprovalExempt:    r.IsSetupApprovalExempt,
		IsTeardownApprovalExempt: r.IsTeardownApprovalExempt,
		MaxConsecutiveHours:      r.MaxConsecutiveHours,
	}
}

type membershipRow struct {
	ID               string `db:"id"`
	AttendeeID       string `db:"attendee_id"`
	DepartmentID     string `db:"department_id"`
	IsDeptHead       bool   `db:"is_dept_head"`
	IsPOC            bool   `db:"is_poc"`
	IsChecklistAdmin bool   `db:"is_checklist_admin"`
}

// roleRow is a department role together with the job or membership it is linked to
type roleRow struct {
	OwnerID      string `db:"owner_id"`
	ID           string `db:"id"`
	DepartmentID string `db:"department_id"`
	Name         string `db:"name"`
}

func (r roleRow) toModel() model.DeptRole {
	return model.DeptRole{ID: r.ID, DepartmentID: r.DepartmentID, Name: r.Name}
}

type jobRow struct {
	ID           string        `db:"id"`
	DepartmentID string        `db:"department_id"`
	Name         string        `db:"name"`
	Description  string        `db:"description"`
	Type         model.JobType `db:"job_type"`
	StartTime    time.Time     `db:"start_time"`
	Duration     int           `db:"duration"`
	Weight       float64       `db:"weight"`
	Slots        int           `db:"slots"`
	Extra15      bool          `db:"extra15"`
	Visibility   int           `db:"visibility"`
}

func newJobRow(j *model.Job) jobRow {
	return jobRow{
		ID:           j.ID,
		DepartmentID: j.DepartmentID,
		Name:         j.Name,
		Description:  j.Description,
		Type:         j.Type,
		StartTime:    j.StartTime.UTC(),
		Duration:     j.Duration,
		Weight:       j.Weight,
		Slots:        j.Slots,
		Extra15:      j.Extra15,
		Visibility:   int(j.Visibility),
	}
}

func (r jobRow) toModel() *model.Job {
	return &model.Job{
		ID:           r.ID,
		DepartmentID: r.DepartmentID,
		Name:         r.Name,
		Description:  r.Description,
		Type:         r.Type,
		StartTime:    r.StartTime,
		Duration:     r.Duration,
		Weight:       r.Weight,
		Slots:        r.Slots,
		Extra15:      r.Extra15,
		Visibility:   model.JobVisibility(r.Visibility),
	}
}

type shiftRow struct {
	ID         string             `db:"id"`
	JobID      string             `db:"job_id"`
	AttendeeID string             `db:"attendee_id"`
	Worked     model.WorkedStatus `db:"worked"`
	Rating     model.Rating       `db:"rating"`
	Comment    string             `db:"comment"`
}

func newShiftRow(s *model.Shift) shiftRow {
	return shiftRow{
		ID:         s.ID,
		JobID:      s.JobID,
		AttendeeID: s.AttendeeID,
		Worked:     s.Worked,
		Rating:     s.Rating,
		Comment:    s.Comment,
	}
}

func (r shiftRow) toModel() model.Shift {
	return model.Shift{
		ID:         r.ID,
		JobID:      r.JobID,
		AttendeeID: r.AttendeeID,
		Worked:     r.Worked,
		Rating:     r.Rating,
		Comment:    r.Comment,
	}
}
