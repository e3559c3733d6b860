package storage

import (
	"context"

	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

type CustomerRepository struct {
	pool *db.Pool
}

func NewCustomerRepository(pool *db.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// List returns customers ordered by most recently created. search matches
// name or email, case-insensitive.
func (r *CustomerRepository) List(ctx context.Context, search string, limit int) ([]model.Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	query := customerColumns + `
		ORDER BY created_at DESC
		LIMIT $1`
	args := []any{limit}
	if search != "" {
		query = customerColumns + `
		WHERE first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2
		ORDER BY created_at DESC
		LIMIT $1`
		args = append(args, "%"+search+"%")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepository) ByID(ctx context.Context, id string) (model.Customer, bool, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, customerColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Customer{}, false, nil
	}
	if err != nil {
		return model.Customer{}, false, err
	}
	return c, true, nil
}

func (r *CustomerRepository) UpdateNote(ctx context.Context, id, note string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET note = $2, updated_at = now() WHERE id = $1
	`, id, note)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
