package volunteers

import (
	"time"

	"github.com/magfest/ubersystem/pkg/core/model"
)

var day = time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func newJob(id, dept string, startHour, duration int) *model.Job {
	return &model.Job{
		ID:           id,
		Name:         "Job " + id,
		DepartmentID: dept,
		Department:   &model.Department{ID: dept, Name: dept},
		StartTime:    at(startHour),
		Duration:     duration,
		Weight:       1,
		Slots:        3,
	}
}

func newVolunteer(id string, depts ...string) *model.Attendee {
	a := &model.Attendee{
		ID:          id,
		FirstName:   "Vol",
		LastName:    id,
		BadgeType:   model.StaffBadge,
		BadgeStatus: model.CompletedStatus,
		Paid:        model.NeedNotPay,
		Staffing:    true,
	}
	for _, d := range depts {
		a.Memberships = append(a.Memberships, model.DeptMembership{
			DepartmentID: d,
			Department:   &model.Department{ID: d, Name: d},
		})
	}
	return a
}

func working(a *model.Attendee, jobs ...*model.Job) *model.Attendee {
	for _, j := range jobs {
		a.Shifts = append(a.Shifts, model.Shift{ID: "s-" + j.ID, JobID: j.ID, AttendeeID: a.ID, Job: j})
	}
	return a
}

func withRole(a *model.Attendee, dept, roleID string) *model.Attendee {
	for i := range a.Memberships {
		if a.Memberships[i].DepartmentID == dept {
			a.Memberships[i].Roles = append(a.Memberships[i].Roles, model.DeptRole{ID: roleID, DepartmentID: dept})
		}
	}
	return a
}

func filled(job *model.Job, n int) *model.Job {
	for i := 0; i < n; i++ {
		job.Shifts = append(job.Shifts, model.Shift{ID: job.ID + string(rune('a'+i)), JobID: job.ID})
	}
	return job
}
