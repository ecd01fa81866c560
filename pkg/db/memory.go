package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// MemoryStore keeps attendees, departments, jobs and shifts in memory.
// Transactions see committed rows as of each read plus their own changes,
// and a commit is rejected if it would leave two attendees with the same badge number.
type MemoryStore struct {
	mu          sync.RWMutex
	attendees   map[string]*model.Attendee
	departments map[string]*model.Department
	jobs        map[string]*model.Job
	shifts      map[string]*model.Shift
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attendees:   make(map[string]*model.Attendee),
		departments: make(map[string]*model.Department),
		jobs:        make(map[string]*model.Job),
		shifts:      make(map[string]*model.Shift),
	}
}

// PutAttendee stores an attendee directly, outside any transaction
func (m *MemoryStore) PutAttendee(a *model.Attendee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendees[a.ID] = cloneAttendee(a)
}

// PutDepartment stores a department
func (m *MemoryStore) PutDepartment(d *model.Department) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *d
	m.departments[d.ID] = &copied
}

// PutJob stores a job without its shifts
func (m *MemoryStore) PutJob(j *model.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = cloneJob(j)
}

// PutShift stores a shift regardless of the job's slots
func (m *MemoryStore) PutShift(s *model.Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *s
	copied.Job, copied.Attendee = nil, nil
	m.shifts[s.ID] = &copied
}

// ShiftCount returns the number of stored shifts for a job
func (m *MemoryStore) ShiftCount(jobID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shiftsFor(func(s *model.Shift) bool { return s.JobID == jobID }))
}

// BeginTx starts a transaction
func (m *MemoryStore) BeginTx(ctx context.Context) (AttendeeTx, error) {
	return &memoryTx{store: m, overlay: make(map[string]*model.Attendee)}, nil
}

// NumberedAttendees returns every committed attendee holding a badge number
func (m *MemoryStore) NumberedAttendees(ctx context.Context) ([]*model.Attendee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Attendee
	for _, a := range m.attendees {
		if a.BadgeNum != nil {
			result = append(result, cloneAttendee(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return *result[i].BadgeNum < *result[j].BadgeNum })
	return result, nil
}

type memoryTx struct {
	store   *MemoryStore
	overlay map[string]*model.Attendee
	done    bool
}

func (tx *memoryTx) rows() []*model.Attendee {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	rows := make([]*model.Attendee, 0, len(tx.store.attendees)+len(tx.overlay))
	for id, a := range tx.store.attendees {
		if _, changed := tx.overlay[id]; !changed {
			rows = append(rows, a)
		}
	}
	for _, a := range tx.overlay {
		if a != nil {
			rows = append(rows, a)
		}
	}
	return rows
}

func (tx *memoryTx) row(id string) (*model.Attendee, bool) {
	if a, changed := tx.overlay[id]; changed {
		return a, a != nil
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	a, ok := tx.store.attendees[id]
	return a, ok
}

func (tx *memoryTx) GetAttendee(ctx context.Context, id string) (*model.Attendee, error) {
	a, ok := tx.row(id)
	if !ok {
		return nil, fmt.Errorf("attendee %s: %w", id, ErrNotFound)
	}
	return cloneAttendee(a), nil
}

func (tx *memoryTx) BadgeNumbersInRange(ctx context.Context, low, high int) ([]int, error) {
	var nums []int
	for _, a := range tx.rows() {
		if a.BadgeNum != nil && *a.BadgeNum >= low && *a.BadgeNum <= high {
			nums = append(nums, *a.BadgeNum)
		}
	}
	sort.Ints(nums)
	return nums, nil
}

func (tx *memoryTx) ShiftBadgeNumbers(ctx context.Context, t model.BadgeType, low, high, delta int) (int64, error) {
	var moved int64
	for _, a := range tx.rows() {
		if a.BadgeType != t || a.BadgeNum == nil || *a.BadgeNum < low || *a.BadgeNum > high {
			continue
		}
		shifted := cloneAttendee(a)
		n := *a.BadgeNum + delta
		shifted.BadgeNum = &n
		tx.overlay[a.ID] = shifted
		moved++
	}
	return moved, nil
}

func (tx *memoryTx) AttendeesWithBadgeNum(ctx context.Context, num int) ([]*model.Attendee, error) {
	var result []*model.Attendee
	for _, a := range tx.rows() {
		if a.BadgeNum != nil && *a.BadgeNum == num {
			result = append(result, cloneAttendee(a))
		}
	}
	return result, nil
}

func (tx *memoryTx) InsertAttendee(ctx context.Context, a *model.Attendee) error {
	if _, exists := tx.row(a.ID); exists {
		return fmt.Errorf("attendee %s already exists", a.ID)
	}
	tx.overlay[a.ID] = cloneAttendee(a)
	return nil
}

func (tx *memoryTx) UpdateAttendee(ctx context.Context, a *model.Attendee) error {
	if _, exists := tx.row(a.ID); !exists {
		return fmt.Errorf("attendee %s: %w", a.ID, ErrNotFound)
	}
	tx.overlay[a.ID] = cloneAttendee(a)
	return nil
}

func (tx *memoryTx) DeleteAttendee(ctx context.Context, id string) error {
	if _, exists := tx.row(id); !exists {
		return fmt.Errorf("attendee %s: %w", id, ErrNotFound)
	}
	tx.overlay[id] = nil
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already finished")
	}
	tx.done = true

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	merged := make(map[string]*model.Attendee, len(tx.store.attendees))
	for id, a := range tx.store.attendees {
		merged[id] = a
	}
	for id, a := range tx.overlay {
		if a == nil {
			delete(merged, id)
			continue
		}
		merged[id] = a
	}

	holders := make(map[int]string)
	for id, a := range merged {
		if a.BadgeNum == nil {
			continue
		}
		if other, dup := holders[*a.BadgeNum]; dup {
			return fmt.Errorf("duplicate badge number %d held by %s and %s", *a.BadgeNum, other, id)
		}
		holders[*a.BadgeNum] = id
	}

	tx.store.attendees = merged
	return nil
}

func (tx *memoryTx) Rollback() error {
	tx.done = true
	tx.overlay = nil
	return nil
}

func (m *MemoryStore) ListDepartments(ctx context.Context) ([]*model.Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Department, 0, len(m.departments))
	for _, d := range m.departments {
		copied := *d
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return m.hydrateJob(j), nil
}

func (m *MemoryStore) ListJobs(ctx context.Context, filter JobFilter) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Job
	for _, j := range m.jobs {
		if !filter.Matches(j) {
			continue
		}
		result = append(result, m.hydrateJob(j))
	}
	sort.Slice(result, func(i, k int) bool {
		if !result[i].StartTime.Equal(result[k].StartTime) {
			return result[i].StartTime.Before(result[k].StartTime)
		}
		return result[i].Name < result[k].Name
	})
	return result, nil
}

func (m *MemoryStore) InsertJobs(ctx context.Context, jobs []*model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range jobs {
		if _, exists := m.jobs[j.ID]; exists {
			return fmt.Errorf("job %s already exists", j.ID)
		}
	}
	for _, j := range jobs {
		m.jobs[j.ID] = cloneJob(j)
	}
	return nil
}

func (m *MemoryStore) SetJobSlots(ctx context.Context, jobID string, slots int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if taken := len(m.shiftsFor(func(s *model.Shift) bool { return s.JobID == jobID })); slots < taken {
		return ErrSlotsBelowSignups
	}
	j.Slots = slots
	return nil
}

func (m *MemoryStore) GetVolunteer(ctx context.Context, id string) (*model.Attendee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.attendees[id]
	if !ok {
		return nil, fmt.Errorf("attendee %s: %w", id, ErrNotFound)
	}
	return m.hydrateVolunteer(a), nil
}

func (m *MemoryStore) ListStaffers(ctx context.Context, departmentID string) ([]*model.Attendee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*model.Attendee
	for _, a := range m.attendees {
		if a.Staffing && a.IsMemberOf(departmentID) {
			result = append(result, m.hydrateVolunteer(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName() < result[j].FullName() })
	return result, nil
}

func (m *MemoryStore) InsertShiftIfOpen(ctx context.Context, shift *model.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[shift.JobID]
	if !ok {
		return fmt.Errorf("job %s: %w", shift.JobID, ErrNotFound)
	}
	if _, ok := m.attendees[shift.AttendeeID]; !ok {
		return fmt.Errorf("attendee %s: %w", shift.AttendeeID, ErrNotFound)
	}
	if len(m.shiftsFor(func(s *model.Shift) bool { return s.JobID == j.ID })) >= j.Slots {
		return ErrNoOpenSlots
	}

	copied := *shift
	copied.Job, copied.Attendee = nil, nil
	m.shifts[shift.ID] = &copied
	return nil
}

func (m *MemoryStore) DeleteShift(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.shifts[id]; !ok {
		return fmt.Errorf("shift %s: %w", id, ErrNotFound)
	}
	delete(m.shifts, id)
	return nil
}

// shiftsFor must be called with the lock held
func (m *MemoryStore) shiftsFor(match func(*model.Shift) bool) []model.Shift {
	var result []model.Shift
	for _, s := range m.shifts {
		if match(s) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// hydrateJob must be called with the lock held
func (m *MemoryStore) hydrateJob(j *model.Job) *model.Job {
	job := cloneJob(j)
	if d, ok := m.departments[job.DepartmentID]; ok {
		copied := *d
		job.Department = &copied
	}
	job.Shifts = m.shiftsFor(func(s *model.Shift) bool { return s.JobID == job.ID })
	return job
}

// hydrateVolunteer must be called with the lock held
func (m *MemoryStore) hydrateVolunteer(a *model.Attendee) *model.Attendee {
	volunteer := cloneAttendee(a)
	for i := range volunteer.Memberships {
		if d, ok := m.departments[volunteer.Memberships[i].DepartmentID]; ok {
			copied := *d
			volunteer.Memberships[i].Department = &copied
		}
	}
	volunteer.Shifts = m.shiftsFor(func(s *model.Shift) bool { return s.AttendeeID == a.ID })
	for i := range volunteer.Shifts {
		if j, ok := m.jobs[volunteer.Shifts[i].JobID]; ok {
			job := cloneJob(j)
			if d, ok := m.departments[job.DepartmentID]; ok {
				copied := *d
				job.Department = &copied
			}
			volunteer.Shifts[i].Job = job
		}
	}
	return volunteer
}

func cloneAttendee(a *model.Attendee) *model.Attendee {
	copied := *a
	copied.BadgeNum = copyNum(a.BadgeNum)
	if a.CheckedIn != nil {
		t := *a.CheckedIn
		copied.CheckedIn = &t
	}
	copied.Ribbons = append([]model.Ribbon(nil), a.Ribbons...)
	copied.Memberships = make([]model.DeptMembership, len(a.Memberships))
	for i, m := range a.Memberships {
		m.Roles = append([]model.DeptRole(nil), m.Roles...)
		copied.Memberships[i] = m
	}
	copied.Shifts = append([]model.Shift(nil), a.Shifts...)
	return &copied
}

func cloneJob(j *model.Job) *model.Job {
	copied := *j
	copied.RequiredRoles = append([]model.DeptRole(nil), j.RequiredRoles...)
	copied.Shifts = nil
	return &copied
}
