package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/magfest/ubersystem/pkg/core/badges"
	"github.com/magfest/ubersystem/pkg/core/model"
	"github.com/magfest/ubersystem/pkg/db"
)

// Numbering bundles the store and the badge coordinator with the flush registry
// that keeps badge numbers consistent on every commit
type Numbering struct {
	Store       db.AttendeeStore
	Coordinator *badges.Coordinator
	Registry    *db.Registry
}

// NewNumbering registers the badge lock as a flush guard and the coordinator's
// presave and predelete steps as a flush hook
func NewNumbering(store db.AttendeeStore, coordinator *badges.Coordinator) *Numbering {
	registry := db.NewRegistry().
		AddGuard(db.Guard{
			Name: "badge lock",
			Acquire: func(ctx context.Context) (context.Context, func(), error) {
				ctx, release, err := coordinator.Lock().Acquire(ctx)
				if err != nil {
					return ctx, func() {}, err
				}
				return ctx, release, nil
			},
		}).
		AddHook(db.Hook{
			Name: "badge numbering",
			Presave: func(ctx context.Context, s *db.Session, a *model.Attendee, orig db.Original) error {
				return coordinator.Presave(ctx, s, a, orig.BadgeType, orig.BadgeNum)
			},
			Predelete: func(ctx context.Context, s *db.Session, a *model.Attendee) error {
				return coordinator.Predelete(ctx, s, a)
			},
		})

	return &Numbering{
		Store:       store,
		Coordinator: coordinator,
		Registry:    registry,
	}
}

// NewSession opens a unit of work whose commits run the badge hooks
func (n *Numbering) NewSession(logger *zap.Logger) *db.Session {
	return db.NewSession(n.Store, n.Registry, logger)
}

// Settings returns the numbering configuration
func (n *Numbering) Settings() *badges.Settings {
	return n.Coordinator.Settings()
}
