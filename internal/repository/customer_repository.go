package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/model"
)

// CustomerRepo resolves customers by their e-mail address.
type CustomerRepo struct {
	db *sqlx.DB
}

// NewCustomerRepo returns a new CustomerRepo bound to the given database.
func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// UpsertByEmail inserts the customer or refreshes the name and phone of the
// existing row with the same e-mail, returning its ID either way.
// LAST_INSERT_ID(id) makes MySQL report the existing ID on the update path.
func (r *CustomerRepo) UpsertByEmail(ctx context.Context, c model.CustomerInfo) (uint64, error) {
	c = c.Normalized()
	const q = `
		INSERT INTO customers (email, name, phone) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id), name = VALUES(name), phone = VALUES(phone)`
	res, err := r.db.ExecContext(ctx, q, c.Email, c.Name, c.Phone)
	if err != nil {
		return 0, fmt.Errorf("upsert customer %s: %w", c.Email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("customer id: %w", err)
	}
	return uint64(id), nil
}
