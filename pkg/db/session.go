package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/model"
)

var ErrNotTracked = errors.New("attendee is not tracked by this session")

type entryState int

const (
	stateClean entryState = iota
	stateNew
	stateDirty
	stateDeleted
)

type entry struct {
	attendee *model.Attendee
	state    entryState
	orig     Original
}

// Session is a unit of work over attendees. Changes are collected in memory and
// written by Commit inside one transaction, with the registry's guards held and
// its hooks applied.
type Session struct {
	store    AttendeeStore
	registry *Registry
	logger   *zap.Logger

	tx      AttendeeTx
	entries map[string]*entry
	order   []string
}

// NewSession creates a session. A nil registry means no guards or hooks.
func NewSession(store AttendeeStore, registry *Registry, logger *zap.Logger) *Session {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Session{
		store:    store,
		registry: registry,
		logger:   logger,
		entries:  make(map[string]*entry),
	}
}

func (s *Session) transaction(ctx context.Context) (AttendeeTx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

func (s *Session) track(a *model.Attendee, state entryState, orig Original) {
	if _, ok := s.entries[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.entries[a.ID] = &entry{attendee: a, state: state, orig: orig}
}

// Get loads an attendee and starts tracking it. Repeated calls return the same pointer.
func (s *Session) Get(ctx context.Context, id string) (*model.Attendee, error) {
	if e, ok := s.entries[id]; ok && e.state != stateDeleted {
		return e.attendee, nil
	}

	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, err
	}

	a, err := tx.GetAttendee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendee %s: %w", id, err)
	}

	s.track(a, stateClean, Original{BadgeType: a.BadgeType, BadgeNum: copyNum(a.BadgeNum)})
	return a, nil
}

// Add schedules a new attendee for insertion, assigning an ID if it has none
func (s *Session) Add(a *model.Attendee) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	s.track(a, stateNew, Original{})
}

// Save marks a loaded attendee as modified
func (s *Session) Save(a *model.Attendee) error {
	e, ok := s.entries[a.ID]
	if !ok || e.attendee != a {
		return fmt.Errorf("%w: %s", ErrNotTracked, a.ID)
	}
	if e.state == stateClean {
		e.state = stateDirty
	}
	return nil
}

// Delete schedules an attendee for removal
func (s *Session) Delete(a *model.Attendee) error {
	e, ok := s.entries[a.ID]
	if !ok || e.attendee != a {
		return fmt.Errorf("%w: %s", ErrNotTracked, a.ID)
	}
	if e.state == stateNew {
		delete(s.entries, a.ID)
		s.removeFromOrder(a.ID)
		return nil
	}
	e.state = stateDeleted
	return nil
}

func (s *Session) removeFromOrder(id string) {
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Original returns the badge fields of a tracked attendee as loaded
func (s *Session) Original(a *model.Attendee) (Original, bool) {
	e, ok := s.entries[a.ID]
	if !ok {
		return Original{}, false
	}
	return e.orig, true
}

// Pending returns the attendees the next flush will insert or update
func (s *Session) Pending() []*model.Attendee {
	var pending []*model.Attendee
	for _, id := range s.order {
		e := s.entries[id]
		if e.state == stateNew || e.state == stateDirty {
			pending = append(pending, e.attendee)
		}
	}
	return pending
}

// BadgeNumbersInRange returns the numbers committed in [low, high] as seen by this transaction
func (s *Session) BadgeNumbersInRange(ctx context.Context, low, high int) ([]int, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, err
	}
	return tx.BadgeNumbersInRange(ctx, low, high)
}

// ShiftBadgeNumbers moves stored badges and keeps tracked attendees in step,
// so in-memory numbers match the rows the update touched.
func (s *Session) ShiftBadgeNumbers(ctx context.Context, t model.BadgeType, low, high, delta int) (int64, error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return 0, err
	}

	moved, err := tx.ShiftBadgeNumbers(ctx, t, low, high, delta)
	if err != nil {
		return 0, err
	}

	inRange := func(bt model.BadgeType, n *int) bool {
		return bt == t && n != nil && *n >= low && *n <= high
	}
	for _, id := range s.order {
		e := s.entries[id]
		if inRange(e.attendee.BadgeType, e.attendee.BadgeNum) {
			shifted := *e.attendee.BadgeNum + delta
			e.attendee.BadgeNum = &shifted
		}
		if inRange(e.orig.BadgeType, e.orig.BadgeNum) {
			shifted := *e.orig.BadgeNum + delta
			e.orig.BadgeNum = &shifted
		}
	}

	return moved, nil
}

// BadgeHolder returns the attendee other than excludeID that holds num.
// Tracked attendees are judged by their in-memory number, everyone else by the stored one.
// Attendees marked for deletion hold nothing.
func (s *Session) BadgeHolder(ctx context.Context, num int, excludeID string) (*model.Attendee, error) {
	for _, id := range s.order {
		e := s.entries[id]
		if e.state == stateDeleted {
			continue
		}
		a := e.attendee
		if a.ID != excludeID && a.BadgeNum != nil && *a.BadgeNum == num {
			return a, nil
		}
	}

	tx, err := s.transaction(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := tx.AttendeesWithBadgeNum(ctx, num)
	if err != nil {
		return nil, err
	}
	for _, a := range stored {
		if a.ID == excludeID {
			continue
		}
		if _, tracked := s.entries[a.ID]; tracked {
			continue
		}
		return a, nil
	}
	return nil, nil
}

// LockBadgeNumbers takes the store's cross-process badge lock until the transaction ends.
// Stores without one need nothing beyond the in-process badge lock.
func (s *Session) LockBadgeNumbers(ctx context.Context) error {
	tx, err := s.transaction(ctx)
	if err != nil {
		return err
	}
	if locker, ok := tx.(BadgeLocker); ok {
		return locker.LockBadgeNumbers(ctx)
	}
	return nil
}

// Commit runs the flush: guards, presave hooks, predelete hooks, writes, commit.
// Any failure rolls the transaction back and discards tracked changes.
func (s *Session) Commit(ctx context.Context) (err error) {
	tx, err := s.transaction(ctx)
	if err != nil {
		return err
	}

	ctx, release, err := s.registry.acquire(ctx)
	if err != nil {
		s.rollbackAfterFailure()
		return err
	}
	defer func() {
		if err != nil {
			s.rollbackAfterFailure()
		}
		release()
	}()

	if locker, ok := tx.(BadgeLocker); ok && len(s.registry.hooks) > 0 {
		if err := locker.LockBadgeNumbers(ctx); err != nil {
			return fmt.Errorf("failed to lock badge numbers: %w", err)
		}
	}

	if err := s.runHooks(ctx); err != nil {
		return err
	}

	if err := s.persist(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.tx = nil

	s.logger.Debug("Session committed", zap.Int("entries", len(s.order)))
	s.reset()
	return nil
}

func (s *Session) runHooks(ctx context.Context) error {
	hooks := s.registry.Hooks()

	// Updates go before inserts so numbers an update gives up are free for new attendees
	for _, state := range []entryState{stateDirty, stateNew} {
		for _, id := range append([]string(nil), s.order...) {
			e := s.entries[id]
			if e.state != state {
				continue
			}
			for _, h := range hooks {
				if h.Presave == nil {
					continue
				}
				if err := h.Presave(ctx, s, e.attendee, e.orig); err != nil {
					return fmt.Errorf("%s failed for attendee %s: %w", h.Name, e.attendee.ID, err)
				}
			}
		}
	}

	for _, id := range append([]string(nil), s.order...) {
		e := s.entries[id]
		if e.state != stateDeleted {
			continue
		}
		for _, h := range hooks {
			if h.Predelete == nil {
				continue
			}
			if err := h.Predelete(ctx, s, e.attendee); err != nil {
				return fmt.Errorf("%s failed for attendee %s: %w", h.Name, e.attendee.ID, err)
			}
		}
	}

	return nil
}

func (s *Session) persist(ctx context.Context, tx AttendeeTx) error {
	for _, id := range s.order {
		e := s.entries[id]
		var err error
		switch e.state {
		case stateNew:
			err = tx.InsertAttendee(ctx, e.attendee)
		case stateDirty:
			err = tx.UpdateAttendee(ctx, e.attendee)
		case stateDeleted:
			err = tx.DeleteAttendee(ctx, id)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to write attendee %s: %w", id, err)
		}
	}
	return nil
}

func (s *Session) rollbackAfterFailure() {
	if err := s.Rollback(); err != nil {
		s.logger.Error("Failed to roll back session", zap.Error(err))
	}
}

// Rollback abandons the transaction and forgets every tracked change
func (s *Session) Rollback() error {
	defer func() {
		s.entries = make(map[string]*entry)
		s.order = nil
	}()
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	return tx.Rollback()
}

// reset keeps committed attendees tracked as clean
func (s *Session) reset() {
	order := s.order[:0]
	for _, id := range s.order {
		e := s.entries[id]
		if e.state == stateDeleted {
			delete(s.entries, id)
			continue
		}
		e.state = stateClean
		e.orig = Original{BadgeType: e.attendee.BadgeType, BadgeNum: copyNum(e.attendee.BadgeNum)}
		order = append(order, id)
	}
	s.order = order
}

func copyNum(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
