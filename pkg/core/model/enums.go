package model

import (
	"fmt"
	"strings"
)

// BadgeType identifies which kind of badge an attendee holds.
// Real types own a numeric range; pseudo types resolve to a real type before numbering.
type BadgeType int

const (
	AttendeeBadge BadgeType = iota + 1
	StaffBadge
	ContractorBadge
	SupporterBadge
	GuestBadge
	ChildBadge
	OneDayBadge
	PseudoDealerBadge
	PseudoGroupBadge
)

var badgeTypeLabels = map[BadgeType]string{
	AttendeeBadge:     "Attendee",
	StaffBadge:        "Staff",
	ContractorBadge:   "Contractor",
	SupporterBadge:    "Supporter",
	GuestBadge:        "Guest",
	ChildBadge:        "Child",
	OneDayBadge:       "One Day",
	PseudoDealerBadge: "Dealer",
	PseudoGroupBadge:  "Group Leader",
}

var badgeTypeKeys = map[string]BadgeType{
	"attendee":      AttendeeBadge,
	"staff":         StaffBadge,
	"contractor":    ContractorBadge,
	"supporter":     SupporterBadge,
	"guest":         GuestBadge,
	"child":         ChildBadge,
	"one_day":       OneDayBadge,
	"pseudo_dealer": PseudoDealerBadge,
	"pseudo_group":  PseudoGroupBadge,
}

// AllBadgeTypes returns every badge type in declaration order
func AllBadgeTypes() []BadgeType {
	return []BadgeType{
		AttendeeBadge, StaffBadge, ContractorBadge, SupporterBadge, GuestBadge,
		ChildBadge, OneDayBadge, PseudoDealerBadge, PseudoGroupBadge,
	}
}

// Label returns the human-readable name of the badge type
func (t BadgeType) Label() string {
	if label, ok := badgeTypeLabels[t]; ok {
		return label
	}
	return fmt.Sprintf("BadgeType(%d)", int(t))
}

func (t BadgeType) String() string {
	return t.Label()
}

// Key returns the configuration key of the badge type (e.g. "one_day")
func (t BadgeType) Key() string {
	for key, bt := range badgeTypeKeys {
		if bt == t {
			return key
		}
	}
	return ""
}

// IsPseudo reports whether the type only exists to drive registration flows
func (t BadgeType) IsPseudo() bool {
	return t == PseudoDealerBadge || t == PseudoGroupBadge
}

// ParseBadgeType converts a configuration key or label into a BadgeType
func ParseBadgeType(s string) (BadgeType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if bt, ok := badgeTypeKeys[key]; ok {
		return bt, nil
	}
	if bt, ok := badgeTypeKeys[strings.ReplaceAll(key, " ", "_")]; ok {
		return bt, nil
	}
	for bt, label := range badgeTypeLabels {
		if strings.EqualFold(label, s) {
			return bt, nil
		}
	}
	return 0, fmt.Errorf("unknown badge type %q", s)
}

// BadgeStatus is the lifecycle state of an attendee's registration
type BadgeStatus int

const (
	NewStatus BadgeStatus = iota + 1
	CompletedStatus
	WatchedStatus
	PendingStatus
	ImportedStatus
	InvalidStatus
	InvalidGroupStatus
	UnapprovedDealerStatus
	RefundedStatus
	DeferredStatus
	NotAttendingStatus
)

var badgeStatusLabels = map[BadgeStatus]string{
	NewStatus:              "New",
	CompletedStatus:        "Complete",
	WatchedStatus:          "On Hold",
	PendingStatus:          "Pending",
	ImportedStatus:         "Imported",
	InvalidStatus:          "Invalid",
	InvalidGroupStatus:     "Invalid Group",
	UnapprovedDealerStatus: "Unapproved Dealer",
	RefundedStatus:         "Refunded",
	DeferredStatus:         "Deferred",
	NotAttendingStatus:     "Not Attending",
}

// Label returns the human-readable name of the status
func (s BadgeStatus) Label() string {
	if label, ok := badgeStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("BadgeStatus(%d)", int(s))
}

func (s BadgeStatus) String() string {
	return s.Label()
}

// IsValid reports whether attendees in this status count towards numbering.
// Pending and Imported registrations are not yet real; the invalid family never will be.
func (s BadgeStatus) IsValid() bool {
	switch s {
	case NewStatus, CompletedStatus, WatchedStatus:
		return true
	}
	return false
}

// ParseBadgeStatus converts a label into a BadgeStatus
func ParseBadgeStatus(s string) (BadgeStatus, error) {
	for status, label := range badgeStatusLabels {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown badge status %q", s)
}

// PaidStatus records how an attendee's badge was paid for
type PaidStatus int

const (
	NotPaid PaidStatus = iota + 1
	HasPaid
	NeedNotPay
	PaidByGroup
	PaidRefunded
)

var paidStatusLabels = map[PaidStatus]string{
	NotPaid:      "Not Paid",
	HasPaid:      "Paid",
	NeedNotPay:   "Doesn't Need to Pay",
	PaidByGroup:  "Paid by Group",
	PaidRefunded: "Paid and Refunded",
}

// Label returns the human-readable name of the paid status
func (p PaidStatus) Label() string {
	if label, ok := paidStatusLabels[p]; ok {
		return label
	}
	return fmt.Sprintf("PaidStatus(%d)", int(p))
}

func (p PaidStatus) String() string {
	return p.Label()
}

var paidStatusKeys = map[string]PaidStatus{
	"not_paid":      NotPaid,
	"paid":          HasPaid,
	"need_not_pay":  NeedNotPay,
	"paid_by_group": PaidByGroup,
	"refunded":      PaidRefunded,
}

// ParsePaidStatus accepts a key such as "need_not_pay" or a label such as "Paid by Group"
func ParsePaidStatus(s string) (PaidStatus, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	if p, ok := paidStatusKeys[key]; ok {
		return p, nil
	}
	for p, label := range paidStatusLabels {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown paid status %q", s)
}

// WorkedStatus records whether a volunteer showed up for a shift
type WorkedStatus int

const (
	ShiftUnmarked WorkedStatus = iota
	ShiftWorked
	ShiftUnworked
	ShiftExcused
)

var workedStatusLabels = map[WorkedStatus]string{
	ShiftUnmarked: "SELECT A STATUS",
	ShiftWorked:   "This shift was worked",
	ShiftUnworked: "Staffer didn't show up or help",
	ShiftExcused:  "Staffer was excused",
}

// Label returns the human-readable name of the worked status
func (w WorkedStatus) Label() string {
	if label, ok := workedStatusLabels[w]; ok {
		return label
	}
	return fmt.Sprintf("WorkedStatus(%d)", int(w))
}

// Rating is a department head's assessment of a worked shift
type Rating int

const (
	Unrated Rating = iota
	RatedBad
	RatedGood
	RatedGreat
)

var ratingLabels = map[Rating]string{
	Unrated:    "Shift Unrated",
	RatedBad:   "Staffer performed poorly",
	RatedGood:  "Staffer performed well",
	RatedGreat: "Staffer went above and beyond",
}

// Label returns the human-readable name of the rating
func (r Rating) Label() string {
	if label, ok := ratingLabels[r]; ok {
		return label
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// JobType distinguishes event-time jobs from setup and teardown work
type JobType int

const (
	RegularJob JobType = iota
	SetupJob
	TeardownJob
)

var jobTypeLabels = map[JobType]string{
	RegularJob:  "Regular",
	SetupJob:    "Setup",
	TeardownJob: "Teardown",
}

// Label returns the human-readable name of the job type
func (j JobType) Label() string {
	if label, ok := jobTypeLabels[j]; ok {
		return label
	}
	return fmt.Sprintf("JobType(%d)", int(j))
}

// ParseJobType converts a label into a JobType
func ParseJobType(s string) (JobType, error) {
	if strings.TrimSpace(s) == "" {
		return RegularJob, nil
	}
	for jt, label := range jobTypeLabels {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return jt, nil
		}
	}
	return 0, fmt.Errorf("unknown job type %q", s)
}

// JobVisibility controls who may see and sign up for a job
type JobVisibility int

const (
	MembersOnlyVisibility   JobVisibility = 0
	AllVolunteersVisibility JobVisibility = 2
)

var jobVisibilityLabels = map[JobVisibility]string{
	MembersOnlyVisibility:   "Members of this department",
	AllVolunteersVisibility: "All volunteers",
}

// Label returns the human-readable name of the visibility
func (v JobVisibility) Label() string {
	if label, ok := jobVisibilityLabels[v]; ok {
		return label
	}
	return fmt.Sprintf("JobVisibility(%d)", int(v))
}

// ParseJobVisibility accepts "members", "public" or a full label. Empty means members only.
func ParseJobVisibility(s string) (JobVisibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "members":
		return MembersOnlyVisibility, nil
	case "public", "all":
		return AllVolunteersVisibility, nil
	}
	for v, label := range jobVisibilityLabels {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown job visibility %q", s)
}

// Ribbon is one of the extra labels printed under a badge.
// An attendee may carry several at once.
type Ribbon int

const (
	VolunteerRibbon Ribbon = iota + 1
	DeptHeadRibbon
	DealerRibbon
	PanelistRibbon
	BandRibbon
)

var ribbonLabels = map[Ribbon]string{
	VolunteerRibbon: "Volunteer",
	DeptHeadRibbon:  "Department Head",
	DealerRibbon:    "Shopkeep",
	PanelistRibbon:  "Panelist",
	BandRibbon:      "Band",
}

// Label returns the human-readable name of the ribbon
func (r Ribbon) Label() string {
	if label, ok := ribbonLabels[r]; ok {
		return label
	}
	return fmt.Sprintf("Ribbon(%d)", int(r))
}

// RibbonLabels renders a ribbon set as a comma separated list
func RibbonLabels(ribbons []Ribbon) string {
	labels := make([]string, 0, len(ribbons))
	for _, r := range ribbons {
		labels = append(labels, r.Label())
	}
	return strings.Join(labels, ", ")
}
