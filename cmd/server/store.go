package main

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking/memstore"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/config"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/database"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/handler"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/repository"
)

// openStore wires the persistence backend selected by APP_STORE.  db is
// nil for the in-memory store.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (booking.Deps, handler.ResourceLister, *sqlx.DB, func(), error) {
	if cfg.Store == config.StoreMemory {
		s := memstore.New()
		seedDemoCatalog(s)
		log.Warn("using in-memory store; reservations are lost on restart")
		return booking.Deps{Catalog: s, Customers: s, Store: s}, s, nil, func() {}, nil
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return booking.Deps{}, nil, nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return booking.Deps{}, nil, nil, nil, err
		}
		log.Info("schema migrated")
	}
	resources := repository.NewResourceRepo(db)
	deps := booking.Deps{
		Catalog:   resources,
		Customers: repository.NewCustomerRepo(db),
		Store:     repository.NewReservationRepo(db),
	}
	return deps, resources, db, func() { _ = db.Close() }, nil
}

// seedDemoCatalog fills the in-memory store with a small catalog.
func seedDemoCatalog(s *memstore.Store) {
	promo := func(v int64) *int64 { return &v }
	s.AddResource(model.Resource{Name: "Drill-152", PricePerDayCents: 5000, PromoPricePerDayCents: promo(4000), DepositCents: 20000, Active: true})
	s.AddResource(model.Resource{Name: "Concrete Mixer 160L", PricePerDayCents: 7000, PromoPricePerDayCents: promo(6000), DepositCents: 50000, Active: true})
	s.AddResource(model.Resource{Name: "Circular Saw", PricePerDayCents: 3500, DepositCents: 15000, Active: true})
	s.AddResource(model.Resource{Name: "Lawn Scarifier", PricePerDayCents: 6000, PromoPricePerDayCents: promo(5000), DepositCents: 30000, Active: true})
	s.AddService(model.Service{Name: "Delivery", UnitPriceCents: 5000, Active: true})
	s.AddService(model.Service{Name: "Blade set", UnitPriceCents: 2500, Active: true})
}
