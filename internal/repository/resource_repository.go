package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// ResourceRepo reads the equipment and service catalog.  Catalog edits are
// owned by the administration tooling, so the repo only exposes lookups.
type ResourceRepo struct {
	db *sqlx.DB
}

// NewResourceRepo returns a new ResourceRepo bound to the given database.
func NewResourceRepo(db *sqlx.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// resourceRecord mirrors the resources table.
type resourceRecord struct {
	ID                    uint64        `db:"id"`
	Name                  string        `db:"name"`
	PricePerDayCents      int64         `db:"price_per_day_cents"`
	PromoPricePerDayCents sql.NullInt64 `db:"promo_price_per_day_cents"`
	DepositCents          int64         `db:"deposit_cents"`
	IsActive              bool          `db:"is_active"`
}

func (r resourceRecord) toModel() model.Resource {
	res := model.Resource{
		ID:               r.ID,
		Name:             r.Name,
		PricePerDayCents: r.PricePerDayCents,
		DepositCents:     r.DepositCents,
		Active:           r.IsActive,
	}
	if r.PromoPricePerDayCents.Valid {
		p := r.PromoPricePerDayCents.Int64
		res.PromoPricePerDayCents = &p
	}
	return res
}

type serviceRecord struct {
	ID             uint64 `db:"id"`
	Name           string `db:"name"`
	UnitPriceCents int64  `db:"unit_price_cents"`
	IsActive       bool   `db:"is_active"`
}

// ResourcesByID returns the resources with the given IDs keyed by ID.
// Unknown IDs are absent from the map.
func (r *ResourceRepo) ResourcesByID(ctx context.Context, ids []uint64) (map[uint64]model.Resource, error) {
	out := make(map[uint64]model.Resource, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, name, price_per_day_cents, promo_price_per_day_cents, deposit_cents, is_active
		FROM resources
		WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build resource query: %w", err)
	}
	var rows []resourceRecord
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select resources: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.toModel()
	}
	return out, nil
}

// ServicesByID returns the additional services with the given IDs.
func (r *ResourceRepo) ServicesByID(ctx context.Context, ids []uint64) (map[uint64]model.Service, error) {
	out := make(map[uint64]model.Service, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, name, unit_price_cents, is_active
		FROM services
		WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build service query: %w", err)
	}
	var rows []serviceRecord
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = model.Service{
			ID:             row.ID,
			Name:           row.Name,
			UnitPriceCents: row.UnitPriceCents,
			Active:         row.IsActive,
		}
	}
	return out, nil
}

// ListActive returns every bookable resource ordered by name.
func (r *ResourceRepo) ListActive(ctx context.Context) ([]model.Resource, error) {
	var rows []resourceRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, price_per_day_cents, promo_price_per_day_cents, deposit_cents, is_active
		FROM resources
		WHERE is_active = 1
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select active resources: %w", err)
	}
	out := make([]model.Resource, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
