package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/db"
)

var _ db.VolunteerStore = (*DB)(nil)

// ListDepartments returns every department ordered by name
func (d *DB) ListDepartments(ctx context.Context) ([]*model.Department, error) {
	var rows []departmentRow
	err := d.conn.SelectContext(ctx, &rows, `SELECT `+columns(departmentFields)+` FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}

	departments := make([]*model.Department, 0, len(rows))
	for _, r := range rows {
		departments = append(departments, r.toModel())
	}
	return departments, nil
}

func (d *DB) departmentsByID(ctx context.Context) (map[string]*model.Department, error) {
	departments, err := d.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Department, len(departments))
	for _, dept := range departments {
		byID[dept.ID] = dept
	}
	return byID, nil
}

// GetJob returns the job with its department, required roles and shifts
func (d *DB) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var row jobRow
	err := d.conn.GetContext(ctx, &row, `SELECT `+columns(jobFields)+` FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	jobs, err := d.hydrateJobs(ctx, []jobRow{row})
	if err != nil {
		return nil, err
	}
	return jobs[0], nil
}

// ListJobs returns the jobs matching filter, every job for the zero filter
func (d *DB) ListJobs(ctx context.Context, filter db.JobFilter) ([]*model.Job, error) {
	query := `SELECT ` + columns(jobFields) + ` FROM jobs`
	var args []interface{}

	var conds []string
	if len(filter.DepartmentIDs) > 0 {
		conds = append(conds, `department_id IN (?)`)
		args = append(args, filter.DepartmentIDs)
	}
	if filter.Public {
		conds = append(conds, `visibility > ?`)
		args = append(args, int(model.MembersOnlyVisibility))
	}
	if len(conds) > 0 {
		var err error
		query, args, err = sqlx.In(query+` WHERE `+strings.Join(conds, ` OR `), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to build jobs query: %w", err)
		}
		query = d.conn.Rebind(query)
	}

	var rows []jobRow
	if err := d.conn.SelectContext(ctx, &rows, query+` ORDER BY start_time, name`, args...); err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	return d.hydrateJobs(ctx, rows)
}

func (d *DB) hydrateJobs(ctx context.Context, rows []jobRow) ([]*model.Job, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	departments, err := d.departmentsByID(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	roles, err := d.rolesFor(ctx, `
		SELECT jr.job_id AS owner_id, r.id, r.department_id, r.name
		FROM job_required_roles jr
		JOIN dept_roles r ON r.id = jr.role_id
		WHERE jr.job_id IN (?)
		ORDER BY r.name
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query required roles: %w", err)
	}

	query, args, err := sqlx.In(`SELECT `+columns(shiftFields)+` FROM shifts WHERE job_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build shifts query: %w", err)
	}
	var shiftRows []shiftRow
	if err := d.conn.SelectContext(ctx, &shiftRows, d.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	shifts := make(map[string][]model.Shift)
	for _, s := range shiftRows {
		shifts[s.JobID] = append(shifts[s.JobID], s.toModel())
	}

	jobs := make([]*model.Job, 0, len(rows))
	for _, r := range rows {
		job := r.toModel()
		job.Department = departments[job.DepartmentID]
		job.RequiredRoles = roles[job.ID]
		job.Shifts = shifts[job.ID]
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// rolesFor runs an IN query returning roleRows and groups them by owner
func (d *DB) rolesFor(ctx context.Context, query string, ownerIDs []string) (map[string][]model.DeptRole, error) {
	query, args, err := sqlx.In(query, ownerIDs)
	if err != nil {
		return nil, err
	}
	var rows []roleRow
	if err := d.conn.SelectContext(ctx, &rows, d.conn.Rebind(query), args...); err != nil {
		return nil, err
	}
	roles := make(map[string][]model.DeptRole)
	for _, r := range rows {
		roles[r.OwnerID] = append(roles[r.OwnerID], r.toModel())
	}
	return roles, nil
}

// InsertJobs stores jobs and their required roles in one transaction
func (d *DB) InsertJobs(ctx context.Context, jobs []*model.Job) error {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, job := range jobs {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO jobs (`+columns(jobFields)+`)
			VALUES (`+placeholders(jobFields)+`)
		`, newJobRow(job))
		if err != nil {
			return fmt.Errorf("failed to insert job %s: %w", job.Name, err)
		}
		for _, role := range job.RequiredRoles {
			_, err := tx.ExecContext(ctx, `INSERT INTO job_required_roles (job_id, role_id) VALUES ($1, $2)`, job.ID, role.ID)
			if err != nil {
				return fmt.Errorf("failed to insert required role for job %s: %w", job.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit jobs: %w", err)
	}
	return nil
}

// lockJob locks the job row and returns its slot count and current signups
func lockJob(ctx context.Context, tx *sqlx.Tx, jobID string) (slots, taken int, err error) {
	err = tx.GetContext(ctx, &slots, `SELECT slots FROM jobs WHERE id = $1 FOR UPDATE`, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("job %s: %w", jobID, db.ErrNotFound)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to lock job: %w", err)
	}
	if err := tx.GetContext(ctx, &taken, `SELECT COUNT(*) FROM shifts WHERE job_id = $1`, jobID); err != nil {
		return 0, 0, fmt.Errorf("failed to count shifts: %w", err)
	}
	return slots, taken, nil
}

// SetJobSlots changes the number of slots unless more volunteers are already signed up
func (d *DB) SetJobSlots(ctx context.Context, jobID string, slots int) error {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, taken, err := lockJob(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if slots < taken {
		return db.ErrSlotsBelowSignups
	}

	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET slots = $2 WHERE id = $1`, jobID, slots); err != nil {
		return fmt.Errorf("failed to update job slots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job slots: %w", err)
	}
	return nil
}

// InsertShiftIfOpen creates the shift while holding the job row lock, so concurrent
// signups cannot overfill the job
func (d *DB) InsertShiftIfOpen(ctx context.Context, shift *model.Shift) error {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	slots, taken, err := lockJob(ctx, tx, shift.JobID)
	if err != nil {
		return err
	}
	if taken >= slots {
		return db.ErrNoOpenSlots
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO shifts (`+columns(shiftFields)+`)
		VALUES (`+placeholders(shiftFields)+`)
	`, newShiftRow(shift))
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit shift: %w", err)
	}
	return nil
}

// DeleteShift removes a signup
func (d *DB) DeleteShift(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	return requireRow(result, "shift", id)
}

// GetVolunteer returns the attendee with memberships, roles and shifts (each with its job)
func (d *DB) GetVolunteer(ctx context.Context, id string) (*model.Attendee, error) {
	var row attendeeRow
	err := d.conn.GetContext(ctx, &row, `SELECT `+columns(attendeeFields)+` FROM attendees WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attendee %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}

	volunteers, err := d.hydrateVolunteers(ctx, []attendeeRow{row})
	if err != nil {
		return nil, err
	}
	return volunteers[0], nil
}

// ListStaffers returns every staffing attendee who belongs to the department
func (d *DB) ListStaffers(ctx context.Context, departmentID string) ([]*model.Attendee, error) {
	var rows []attendeeRow
	err := d.conn.SelectContext(ctx, &rows, `
		SELECT `+columns(prefixed("a", attendeeFields))+`
		FROM attendees a
		JOIN dept_memberships m ON m.attendee_id = a.id
		WHERE a.staffing AND m.department_id = $1
		ORDER BY a.first_name, a.last_name
	`, departmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staffers: %w", err)
	}
	return d.hydrateVolunteers(ctx, rows)
}

func prefixed(table string, fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = table + "." + f
	}
	return out
}

func (d *DB) hydrateVolunteers(ctx context.Context, rows []attendeeRow) ([]*model.Attendee, error) {
	volunteers, err := attendeesFromRows(rows)
	if err != nil {
		return nil, err
	}
	if len(volunteers) == 0 {
		return volunteers, nil
	}

	departments, err := d.departmentsByID(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(volunteers))
	for i, a := range volunteers {
		ids[i] = a.ID
	}

	query, args, err := sqlx.In(`SELECT `+columns(membershipFields)+` FROM dept_memberships WHERE attendee_id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build memberships query: %w", err)
	}
	var membershipRows []membershipRow
	if err := d.conn.SelectContext(ctx, &membershipRows, d.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}

	roles := map[string][]model.DeptRole{}
	if len(membershipRows) > 0 {
		membershipIDs := make([]string, len(membershipRows))
		for i, m := range membershipRows {
			membershipIDs[i] = m.ID
		}
		roles, err = d.rolesFor(ctx, `
			SELECT mr.membership_id AS owner_id, r.id, r.department_id, r.name
			FROM dept_membership_roles mr
			JOIN dept_roles r ON r.id = mr.role_id
			WHERE mr.membership_id IN (?)
			ORDER BY r.name
		`, membershipIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to query membership roles: %w", err)
		}
	}

	memberships := make(map[string][]model.DeptMembership)
	for _, m := range membershipRows {
		memberships[m.AttendeeID] = append(memberships[m.AttendeeID], model.DeptMembership{
			ID:               m.ID,
			AttendeeID:       m.AttendeeID,
			DepartmentID:     m.DepartmentID,
			Department:       departments[m.DepartmentID],
			IsDeptHead:       m.IsDeptHead,
			IsPOC:            m.IsPOC,
			IsChecklistAdmin: m.IsChecklistAdmin,
			Roles:            roles[m.ID],
		})
	}

	shifts, err := d.shiftsWithJobs(ctx, ids, departments)
	if err != nil {
		return nil, err
	}

	for _, a := range volunteers {
		a.Memberships = memberships[a.ID]
		a.Shifts = shifts[a.ID]
	}
	return volunteers, nil
}

// shiftsWithJobs loads the attendees' shifts keyed by attendee, each carrying its job
func (d *DB) shiftsWithJobs(ctx context.Context, attendeeIDs []string, departments map[string]*model.Department) (map[string][]model.Shift, error) {
	query, args, err := sqlx.In(`SELECT `+columns(shiftFields)+` FROM shifts WHERE attendee_id IN (?) ORDER BY id`, attendeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build shifts query: %w", err)
	}
	var shiftRows []shiftRow
	if err := d.conn.SelectContext(ctx, &shiftRows, d.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	if len(shiftRows) == 0 {
		return map[string][]model.Shift{}, nil
	}

	seen := make(map[string]bool)
	var jobIDs []string
	for _, s := range shiftRows {
		if !seen[s.JobID] {
			seen[s.JobID] = true
			jobIDs = append(jobIDs, s.JobID)
		}
	}

	query, args, err = sqlx.In(`SELECT `+columns(jobFields)+` FROM jobs WHERE id IN (?)`, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build jobs query: %w", err)
	}
	var jobRows []jobRow
	if err := d.conn.SelectContext(ctx, &jobRows, d.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query shift jobs: %w", err)
	}
	jobs := make(map[string]*model.Job, len(jobRows))
	for _, r := range jobRows {
		job := r.toModel()
		job.Department = departments[job.DepartmentID]
		jobs[job.ID] = job
	}

	shifts := make(map[string][]model.Shift)
	for _, r := range shiftRows {
		s := r.toModel()
		s.Job = jobs[s.JobID]
		shifts[s.AttendeeID] = append(shifts[s.AttendeeID], s)
	}
	return shifts, nil
}
