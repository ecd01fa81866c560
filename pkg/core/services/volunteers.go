package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/core/volunteers"
	"github.com/magfest/ubersystem/pkg/db"
)

// errJobFilled is reported when the last slot was taken between the eligibility check and the insert
var errJobFilled = &volunteers.EligibilityError{
	Criterion: volunteers.CapacityCriterion{}.Name(),
	Err:       volunteers.ErrJobFull,
	Message:   "All slots for this job have already been filled",
}

// AssignShift puts a volunteer on a job on behalf of a department head or admin
func AssignShift(ctx context.Context, store db.VolunteerStore, engine *volunteers.Engine, logger *zap.Logger, attendeeID, jobID string) (*model.Shift, error) {
	return createShift(ctx, store, logger, attendeeID, jobID, engine.CanAssign)
}

// SignUp lets a volunteer take a shift themselves, which is held to the stricter self-signup rules
func SignUp(ctx context.Context, store db.VolunteerStore, engine *volunteers.Engine, logger *zap.Logger, attendeeID, jobID string) (*model.Shift, error) {
	return createShift(ctx, store, logger, attendeeID, jobID, engine.CanSignUp)
}

func createShift(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, attendeeID, jobID string, check func(*model.Job, *model.Attendee) error) (*model.Shift, error) {
	logger.Debug("Creating shift", zap.String("attendee_id", attendeeID), zap.String("job_id", jobID))

	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job: %w", err)
	}

	volunteer, err := store.GetVolunteer(ctx, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteer: %w", err)
	}

	if err := check(job, volunteer); err != nil {
		logger.Info("Shift refused",
			zap.String("attendee_id", attendeeID),
			zap.String("job_id", jobID),
			zap.String("reason", err.Error()))
		return nil, err
	}

	shift := &model.Shift{
		ID:         uuid.New().String(),
		JobID:      job.ID,
		AttendeeID: volunteer.ID,
	}

	// The store re-counts the slots under a row lock, so a concurrent signup
	// for the last slot surfaces here rather than overfilling the job
	if err := store.InsertShiftIfOpen(ctx, shift); err != nil {
		if errors.Is(err, db.ErrNoOpenSlots) {
			return nil, errJobFilled
		}
		return nil, fmt.Errorf("failed to insert shift: %w", err)
	}

	shift.Job = job
	shift.Attendee = volunteer

	logger.Info("Shift created",
		zap.String("shift_id", shift.ID),
		zap.String("attendee", volunteer.FullName()),
		zap.String("job", job.Name),
		zap.Time("start", job.StartTime))
	return shift, nil
}

// Unassign removes a volunteer from a shift
func Unassign(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, shiftID string) error {
	if err := store.DeleteShift(ctx, shiftID); err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	logger.Info("Shift removed", zap.String("shift_id", shiftID))
	return nil
}

// UpdateJobSlots changes how many volunteers a job takes.
// It cannot drop below the number already signed up.
func UpdateJobSlots(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, jobID string, slots int) error {
	if slots < 1 {
		return fmt.Errorf("a job needs at least one slot, got %d", slots)
	}

	err := store.SetJobSlots(ctx, jobID, slots)
	if errors.Is(err, db.ErrSlotsBelowSignups) {
		return &volunteers.EligibilityError{
			Criterion: "Slots",
			Err:       volunteers.ErrJobSlotsBelowSignups,
			Message:   "You cannot reduce the number of slots to below the number of staffers currently signed up for this job",
		}
	}
	if err != nil {
		return fmt.Errorf("failed to update job slots: %w", err)
	}

	logger.Info("Job slots updated", zap.String("job_id", jobID), zap.Int("slots", slots))
	return nil
}

// CapableVolunteers lists the staffers of the job's department who are allowed to work it
func CapableVolunteers(ctx context.Context, store db.VolunteerStore, engine *volunteers.Engine, logger *zap.Logger, jobID string) ([]*model.Attendee, error) {
	job, candidates, err := jobWithStaffers(ctx, store, jobID)
	if err != nil {
		return nil, err
	}

	capable := engine.CapableVolunteers(job, candidates)
	logger.Debug("Found capable volunteers",
		zap.String("job_id", jobID),
		zap.Int("candidates", len(candidates)),
		zap.Int("capable", len(capable)))
	return capable, nil
}

// AvailableVolunteers lists the capable volunteers with no conflicting shift
func AvailableVolunteers(ctx context.Context, store db.VolunteerStore, engine *volunteers.Engine, logger *zap.Logger, jobID string) ([]*model.Attendee, error) {
	job, candidates, err := jobWithStaffers(ctx, store, jobID)
	if err != nil {
		return nil, err
	}

	available := engine.AvailableVolunteers(job, candidates)
	logger.Debug("Found available volunteers",
		zap.String("job_id", jobID),
		zap.Int("candidates", len(candidates)),
		zap.Int("available", len(available)))
	return available, nil
}

func jobWithStaffers(ctx context.Context, store db.VolunteerStore, jobID string) (*model.Job, []*model.Attendee, error) {
	job, err := store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch job: %w", err)
	}
	staffers, err := store.ListStaffers(ctx, job.DepartmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch staffers: %w", err)
	}
	return job, staffers, nil
}

// PossibleJobs lists the jobs the volunteer could sign up for now: those in their
// departments plus the ones open to all volunteers
func PossibleJobs(ctx context.Context, store db.VolunteerStore, engine *volunteers.Engine, logger *zap.Logger, attendeeID string) ([]*model.Job, error) {
	volunteer, err := store.GetVolunteer(ctx, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteer: %w", err)
	}

	filter := db.JobFilter{Public: true}
	for _, m := range volunteer.Memberships {
		filter.DepartmentIDs = append(filter.DepartmentIDs, m.DepartmentID)
	}
	if len(filter.DepartmentIDs) == 0 {
		logger.Debug("Volunteer belongs to no departments, listing public jobs only", zap.String("attendee_id", attendeeID))
	}

	jobs, err := store.ListJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jobs: %w", err)
	}

	possible := engine.PossibleJobs(volunteer, jobs)
	logger.Debug("Found possible jobs",
		zap.String("attendee_id", attendeeID),
		zap.Int("jobs", len(jobs)),
		zap.Int("possible", len(possible)))
	return possible, nil
}

// DepartmentHours is a volunteer's credited time in one department
type DepartmentHours struct {
	DepartmentID string
	Name         string
	Weighted     float64
	Worked       float64
}

// HoursReport is the hour summary shown on a volunteer's record
type HoursReport struct {
	Volunteer    *model.Attendee
	Summary      volunteers.HoursSummary
	ByDepartment []DepartmentHours
}

// VolunteerHours totals a volunteer's shift hours, overall and per department
func VolunteerHours(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, attendeeID string) (*HoursReport, error) {
	volunteer, err := store.GetVolunteer(ctx, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteer: %w", err)
	}

	report := &HoursReport{
		Volunteer: volunteer,
		Summary:   volunteers.Summarize(volunteer),
	}
	for _, m := range volunteer.Memberships {
		name := m.DepartmentID
		if m.Department != nil {
			name = m.Department.Name
		}
		report.ByDepartment = append(report.ByDepartment, DepartmentHours{
			DepartmentID: m.DepartmentID,
			Name:         name,
			Weighted:     volunteers.WeightedHoursIn(volunteer, m.DepartmentID),
			Worked:       volunteers.WorkedHoursIn(volunteer, m.DepartmentID),
		})
	}

	logger.Debug("Computed volunteer hours",
		zap.String("attendee_id", attendeeID),
		zap.Float64("weighted", report.Summary.WeightedHours),
		zap.Float64("worked", report.Summary.WorkedHours))
	return report, nil
}

// DefineJobs expands a recurring job template and stores the resulting jobs
func DefineJobs(ctx context.Context, store db.VolunteerStore, logger *zap.Logger, tmpl volunteers.JobTemplate) ([]*model.Job, error) {
	logger.Debug("Defining jobs from template",
		zap.String("name", tmpl.Name),
		zap.String("department_id", tmpl.DepartmentID),
		zap.String("rrule", tmpl.RRule))

	departments, err := store.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}

	var department *model.Department
	for _, d := range departments {
		if d.ID == tmpl.DepartmentID {
			department = d
			break
		}
	}
	if department == nil {
		return nil, fmt.Errorf("department %s: %w", tmpl.DepartmentID, db.ErrNotFound)
	}

	for _, role := range tmpl.RequiredRoles {
		if role.DepartmentID != department.ID {
			return nil, fmt.Errorf("required role %q belongs to another department", role.Name)
		}
	}

	jobs, err := volunteers.ExpandTemplate(tmpl)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		logger.Warn("Job template produced no jobs", zap.String("name", tmpl.Name))
		return nil, nil
	}

	if err := store.InsertJobs(ctx, jobs); err != nil {
		return nil, fmt.Errorf("failed to insert jobs: %w", err)
	}
	for _, j := range jobs {
		j.Department = department
	}

	logger.Info("Defined jobs",
		zap.String("name", tmpl.Name),
		zap.String("department", department.Name),
		zap.Int("count", len(jobs)))
	return jobs, nil
}
