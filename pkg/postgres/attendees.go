package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/db"
)

var _ db.AttendeeStore = (*DB)(nil)

// badgeLockKey identifies the advisory lock serialising badge renumbering across processes
const badgeLockKey = 0x0b4d6e

// BeginTx starts a transaction over the attendees table
func (d *DB) BeginTx(ctx context.Context) (db.AttendeeTx, error) {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &attendeeTx{tx: tx}, nil
}

// NumberedAttendees returns every attendee holding a badge number, ordered by number
func (d *DB) NumberedAttendees(ctx context.Context) ([]*model.Attendee, error) {
	var rows []attendeeRow
	err := d.conn.SelectContext(ctx, &rows, `
		SELECT `+columns(attendeeFields)+`
		FROM attendees
		WHERE badge_num IS NOT NULL
		ORDER BY badge_num
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query numbered attendees: %w", err)
	}
	return attendeesFromRows(rows)
}

type attendeeTx struct {
	tx *sqlx.Tx
}

// LockBadgeNumbers takes a transaction scoped advisory lock, released on commit or rollback
func (t *attendeeTx) LockBadgeNumbers(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, badgeLockKey); err != nil {
		return fmt.Errorf("failed to lock badge numbers: %w", err)
	}
	return nil
}

func (t *attendeeTx) GetAttendee(ctx context.Context, id string) (*model.Attendee, error) {
	var row attendeeRow
	err := t.tx.GetContext(ctx, &row, `SELECT `+columns(attendeeFields)+` FROM attendees WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attendee %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}
	return row.toModel()
}

func (t *attendeeTx) BadgeNumbersInRange(ctx context.Context, low, high int) ([]int, error) {
	var nums []int
	err := t.tx.SelectContext(ctx, &nums, `
		SELECT badge_num FROM attendees
		WHERE badge_num BETWEEN $1 AND $2
		ORDER BY badge_num
	`, low, high)
	if err != nil {
		return nil, fmt.Errorf("failed to query badge numbers: %w", err)
	}
	return nums, nil
}

func (t *attendeeTx) ShiftBadgeNumbers(ctx context.Context, badgeType model.BadgeType, low, high, delta int) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE attendees SET badge_num = badge_num + $4
		WHERE badge_type = $1 AND badge_num BETWEEN $2 AND $3
	`, badgeType, low, high, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to shift badge numbers: %w", err)
	}
	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count shifted badges: %w", err)
	}
	return moved, nil
}

func (t *attendeeTx) AttendeesWithBadgeNum(ctx context.Context, num int) ([]*model.Attendee, error) {
	var rows []attendeeRow
	err := t.tx.SelectContext(ctx, &rows, `SELECT `+columns(attendeeFields)+` FROM attendees WHERE badge_num = $1`, num)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendees by badge number: %w", err)
	}
	return attendeesFromRows(rows)
}

func (t *attendeeTx) InsertAttendee(ctx context.Context, a *model.Attendee) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO attendees (`+columns(attendeeFields)+`)
		VALUES (`+placeholders(attendeeFields)+`)
	`, newAttendeeRow(a))
	if err != nil {
		return fmt.Errorf("failed to insert attendee: %w", err)
	}
	return nil
}

func (t *attendeeTx) UpdateAttendee(ctx context.Context, a *model.Attendee) error {
	result, err := t.tx.NamedExecContext(ctx, `
		UPDATE attendees SET
			first_name = :first_name,
			last_name = :last_name,
			email = :email,
			badge_type = :badge_type,
			badge_num = :badge_num,
			badge_status = :badge_status,
			paid = :paid,
			checked_in = :checked_in,
			placeholder = :placeholder,
			personalized_badge = :personalized_badge,
			ribbons = :ribbons,
			staffing = :staffing,
			can_work_setup = :can_work_setup,
			can_work_teardown = :can_work_teardown,
			nonshift_minutes = :nonshift_minutes
		WHERE id = :id
	`, newAttendeeRow(a))
	if err != nil {
		return fmt.Errorf("failed to update attendee: %w", err)
	}
	return requireRow(result, "attendee", a.ID)
}

func (t *attendeeTx) DeleteAttendee(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM attendees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendee: %w", err)
	}
	return requireRow(result, "attendee", id)
}

func (t *attendeeTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (t *attendeeTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, db.ErrNotFound)
	}
	return nil
}
