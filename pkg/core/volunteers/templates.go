package volunteers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// JobTemplate describes a recurring job, e.g. an info desk shift every two hours
type JobTemplate struct {
	Name          string
	Description   string
	DepartmentID  string
	Type          model.JobType
	RRule         string
	Start         time.Time
	End           time.Time
	Duration      int
	Slots         int
	Weight        float64
	Extra15       bool
	Visibility    model.JobVisibility
	RequiredRoles []model.DeptRole
}

// ExpandTemplate creates one job per occurrence of the template's recurrence rule
// between Start and End inclusive
func ExpandTemplate(tmpl JobTemplate) ([]*model.Job, error) {
	if tmpl.Duration <= 0 {
		return nil, fmt.Errorf("job template %q must last at least one hour", tmpl.Name)
	}
	if tmpl.End.Before(tmpl.Start) {
		return nil, fmt.Errorf("job template %q ends before it starts", tmpl.Name)
	}

	rule, err := rrule.StrToRRule(tmpl.RRule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rrule for job template %q: %w", tmpl.Name, err)
	}
	rule.DTStart(tmpl.Start)

	occurrences := rule.Between(tmpl.Start, tmpl.End, true)
	jobs := make([]*model.Job, 0, len(occurrences))
	for _, start := range occurrences {
		weight := tmpl.Weight
		if weight == 0 {
			weight = 1
		}
		jobs = append(jobs, &model.Job{
			ID:            uuid.New().String(),
			DepartmentID:  tmpl.DepartmentID,
			Name:          tmpl.Name,
			Description:   tmpl.Description,
			Type:          tmpl.Type,
			StartTime:     start,
			Duration:      tmpl.Duration,
			Weight:        weight,
			Slots:         tmpl.Slots,
			Extra15:       tmpl.Extra15,
			Visibility:    tmpl.Visibility,
			RequiredRoles: append([]model.DeptRole(nil), tmpl.RequiredRoles...),
		})
	}
	return jobs, nil
}
