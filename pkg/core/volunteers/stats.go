package volunteers

import "github.com/magfest/ubersystem/pkg/core/model"

// HoursSummary collects the hour statistics shown on a volunteer's record
type HoursSummary struct {
	WeightedHours         float64
	UnweightedHours       float64
	WorkedHours           float64
	UnweightedWorkedHours float64
	NonshiftHours         float64
	TakesShifts           bool
}

// Summarize computes every hour statistic for the attendee
func Summarize(a *model.Attendee) HoursSummary {
	return HoursSummary{
		WeightedHours:         WeightedHours(a),
		UnweightedHours:       UnweightedHours(a),
		WorkedHours:           WorkedHours(a),
		UnweightedWorkedHours: UnweightedWorkedHours(a),
		NonshiftHours:         nonshiftHours(a),
		TakesShifts:           TakesShifts(a),
	}
}

func nonshiftHours(a *model.Attendee) float64 {
	return float64(a.NonshiftMinutes) / 60
}

func sumShifts(a *model.Attendee, include func(model.Shift) bool, hours func(*model.Job) float64) float64 {
	var total float64
	for _, s := range a.Shifts {
		if s.Job == nil || !include(s) {
			continue
		}
		total += hours(s.Job)
	}
	return total
}

func allShifts(model.Shift) bool { return true }

func workedShifts(s model.Shift) bool { return s.Worked == model.ShiftWorked }

func weighted(j *model.Job) float64 { return j.WeightedHours() }

func unweighted(j *model.Job) float64 { return j.RealDuration() }

// WeightedHours is the weighted credit for every shift plus credited non-shift time
func WeightedHours(a *model.Attendee) float64 {
	return sumShifts(a, allShifts, weighted) + nonshiftHours(a)
}

// UnweightedHours is the raw length of every shift plus credited non-shift time
func UnweightedHours(a *model.Attendee) float64 {
	return sumShifts(a, allShifts, unweighted) + nonshiftHours(a)
}

// WorkedHours is the weighted credit for shifts marked worked plus credited non-shift time
func WorkedHours(a *model.Attendee) float64 {
	return sumShifts(a, workedShifts, weighted) + nonshiftHours(a)
}

// UnweightedWorkedHours is the raw length of shifts marked worked plus credited non-shift time
func UnweightedWorkedHours(a *model.Attendee) float64 {
	return sumShifts(a, workedShifts, unweighted) + nonshiftHours(a)
}

// WeightedHoursIn is the weighted credit for shifts in one department
func WeightedHoursIn(a *model.Attendee, departmentID string) float64 {
	return sumShifts(a, func(s model.Shift) bool { return s.Job.DepartmentID == departmentID }, weighted)
}

// WorkedHoursIn is the weighted credit for worked shifts in one department
func WorkedHoursIn(a *model.Attendee, departmentID string) float64 {
	return sumShifts(a, func(s model.Shift) bool {
		return s.Job.DepartmentID == departmentID && s.Worked == model.ShiftWorked
	}, weighted)
}

// TakesShifts reports whether the attendee is expected to work shifts:
// a volunteer without a Contractor badge in at least one department that schedules shifts
func TakesShifts(a *model.Attendee) bool {
	if !a.Staffing || a.BadgeType == model.ContractorBadge {
		return false
	}
	for _, m := range a.Memberships {
		if m.Department == nil || !m.Department.IsShiftless {
			return true
		}
	}
	return false
}
