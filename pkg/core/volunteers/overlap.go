package volunteers

import (
	"time"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// hourMap indexes the jobs an attendee works by the start of each hour they cover
type hourMap map[int64]*model.Job

func hourKey(t time.Time) int64 {
	return t.Unix()
}

func attendeeHourMap(a *model.Attendee) hourMap {
	hours := make(hourMap)
	for _, s := range a.Shifts {
		if s.Job == nil {
			continue
		}
		for _, h := range s.Job.Hours() {
			hours[hourKey(h)] = s.Job
		}
	}
	return hours
}

// Conflict returns the job that stops the attendee from also working job, if any.
//
// Jobs clash when they share an hour. A job flagged extra15 runs into the following
// hour, so it also clashes with a job in another department starting right after it.
func Conflict(job *model.Job, a *model.Attendee) *model.Job {
	hours := attendeeHourMap(a)

	for _, h := range job.Hours() {
		if other, ok := hours[hourKey(h)]; ok {
			return other
		}
	}

	before := job.StartTime.Add(-time.Hour)
	if prev, ok := hours[hourKey(before)]; ok && prev.Extra15 && prev.DepartmentID != job.DepartmentID {
		return prev
	}

	if job.Extra15 {
		if next, ok := hours[hourKey(job.EndTime())]; ok && next.DepartmentID != job.DepartmentID {
			return next
		}
	}

	return nil
}

// NoOverlap reports whether the attendee is free to work job
func NoOverlap(job *model.Job, a *model.Attendee) bool {
	return Conflict(job, a) == nil
}

// WorkingLimitOK reports whether adding job keeps the attendee within the limit on
// consecutive hours. The run counts every shift touching job back to back, whatever
// its department, and the tightest limit among the departments in the run applies.
// A run with no limited department always passes.
func WorkingLimitOK(job *model.Job, a *model.Attendee) bool {
	run, limit := consecutiveRun(job, a)
	return limit == 0 || run <= limit
}

// consecutiveRun returns the hours the attendee would work in a row with job and the
// smallest non-zero MaxConsecutiveHours among the jobs in that run, zero if none has one
func consecutiveRun(job *model.Job, a *model.Attendee) (run int, limit int) {
	tighten := func(j *model.Job) {
		if j.Department == nil || j.Department.MaxConsecutiveHours <= 0 {
			return
		}
		if limit == 0 || j.Department.MaxConsecutiveHours < limit {
			limit = j.Department.MaxConsecutiveHours
		}
	}

	hours := attendeeHourMap(a)
	run = job.Duration
	tighten(job)

	for h := job.StartTime.Add(-time.Hour); ; h = h.Add(-time.Hour) {
		prev, ok := hours[hourKey(h)]
		if !ok {
			break
		}
		run++
		tighten(prev)
	}
	for h := job.EndTime(); ; h = h.Add(time.Hour) {
		next, ok := hours[hourKey(h)]
		if !ok {
			break
		}
		run++
		tighten(next)
	}

	return run, limit
}
