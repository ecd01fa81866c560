package volunteers

import (
	"sort"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// Engine decides which volunteers can work which jobs
type Engine struct {
	assignCriteria []Criterion
	signupCriteria []Criterion
}

// NewEngine creates an engine with the standard rules.
// Admin assignment checks trust, capacity and overlap in that order; volunteer
// self-signup additionally checks staffing, membership, setup/teardown approval
// and the consecutive hours limit.
func NewEngine() *Engine {
	return &Engine{
		assignCriteria: []Criterion{
			TrustedCriterion{},
			CapacityCriterion{},
			OverlapCriterion{},
		},
		signupCriteria: []Criterion{
			StaffingCriterion{},
			MembershipCriterion{},
			SetupTeardownCriterion{},
			TrustedCriterion{},
			CapacityCriterion{},
			OverlapCriterion{},
			WorkingLimitCriterion{},
		},
	}
}

func firstFailure(criteria []Criterion, job *model.Job, a *model.Attendee) error {
	for _, c := range criteria {
		if failure := c.Check(job, a); failure != nil {
			return failure
		}
	}
	return nil
}

// CanAssign returns the first reason an admin may not put the attendee on the job
func (e *Engine) CanAssign(job *model.Job, a *model.Attendee) error {
	return firstFailure(e.assignCriteria, job, a)
}

// CanSignUp returns the first reason the attendee may not sign themselves up for the job
func (e *Engine) CanSignUp(job *model.Job, a *model.Attendee) error {
	return firstFailure(e.signupCriteria, job, a)
}

// CapableVolunteers returns the staffers from candidates who belong to the job's
// department and, for restricted jobs, hold one of its required roles
func (e *Engine) CapableVolunteers(job *model.Job, candidates []*model.Attendee) []*model.Attendee {
	var capable []*model.Attendee
	for _, a := range candidates {
		if !a.Staffing || !a.IsMemberOf(job.DepartmentID) {
			continue
		}
		if job.Restricted() && !HoldsRequiredRole(job, a) {
			continue
		}
		capable = append(capable, a)
	}
	sortByName(capable)
	return capable
}

// AvailableVolunteers returns the capable volunteers who are free when the job runs
func (e *Engine) AvailableVolunteers(job *model.Job, candidates []*model.Attendee) []*model.Attendee {
	var available []*model.Attendee
	for _, a := range e.CapableVolunteers(job, candidates) {
		if NoOverlap(job, a) {
			available = append(available, a)
		}
	}
	return available
}

// PossibleJobs returns the jobs the attendee could sign up for right now
func (e *Engine) PossibleJobs(a *model.Attendee, jobs []*model.Job) []*model.Job {
	var possible []*model.Job
	for _, job := range jobs {
		if e.CanSignUp(job, a) == nil {
			possible = append(possible, job)
		}
	}
	sort.SliceStable(possible, func(i, j int) bool {
		return possible[i].StartTime.Before(possible[j].StartTime)
	})
	return possible
}

func sortByName(attendees []*model.Attendee) {
	sort.SliceStable(attendees, func(i, j int) bool {
		if attendees[i].LastName != attendees[j].LastName {
			return attendees[i].LastName < attendees[j].LastName
		}
		return attendees[i].FirstName < attendees[j].FirstName
	})
}
