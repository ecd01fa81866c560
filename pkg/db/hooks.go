package db

import (
	"context"
	"fmt"

	"github.com/magfest/ubersystem/pkg/core/model"
)

// Original holds the badge fields as they were loaded from the store.
// Both are zero for attendees created in the current session.
type Original struct {
	BadgeType model.BadgeType
	BadgeNum  *int
}

// Hook is a named step run against attendees during a flush
type Hook struct {
	Name string
	// Presave runs for every inserted or updated attendee before it is written
	Presave func(ctx context.Context, s *Session, a *model.Attendee, orig Original) error
	// Predelete runs for every deleted attendee after all presave hooks
	Predelete func(ctx context.Context, s *Session, a *model.Attendee) error
}

// Guard brackets a whole flush. It runs before any hook; the release it returns
// runs after the commit or rollback, on every path.
type Guard struct {
	Name    string
	Acquire func(ctx context.Context) (context.Context, func(), error)
}

// Registry is the ordered list of guards and hooks applied to every session flush.
// Build it once at startup.
type Registry struct {
	guards []Guard
	hooks  []Hook
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// AddGuard appends a guard. Guards are acquired in registration order and released in reverse.
func (r *Registry) AddGuard(g Guard) *Registry {
	r.guards = append(r.guards, g)
	return r
}

// AddHook appends a hook. Hooks run in registration order.
func (r *Registry) AddHook(h Hook) *Registry {
	r.hooks = append(r.hooks, h)
	return r
}

// Hooks returns the registered hooks in order
func (r *Registry) Hooks() []Hook {
	return r.hooks
}

func (r *Registry) acquire(ctx context.Context) (context.Context, func(), error) {
	releases := make([]func(), 0, len(r.guards))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, g := range r.guards {
		var (
			release func()
			err     error
		)
		ctx, release, err = g.Acquire(ctx)
		if err != nil {
			releaseAll()
			return ctx, func() {}, fmt.Errorf("failed to acquire %s: %w", g.Name, err)
		}
		releases = append(releases, release)
	}

	return ctx, releaseAll, nil
}
