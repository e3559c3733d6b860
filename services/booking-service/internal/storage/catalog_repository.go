package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/pramenzivota/rezervace/libs/db"
	"github.com/pramenzivota/rezervace/services/booking-service/internal/model"
)

// CatalogRepository manages the bookable catalog: categories, services,
// employees, working hours and qualifications. Admin-only writes.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]model.ServiceCategory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), COALESCE(color, ''), sort_order
		FROM service_categories
		ORDER BY sort_order, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ServiceCategory
	for rows.Next() {
		var c model.ServiceCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, c model.ServiceCategory) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO service_categories (id, name, description, color, sort_order)
		VALUES ($1, $2, $3, $4, $5)
	`, id, c.Name, c.Description, c.Color, c.SortOrder)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) UpdateCategory(ctx context.Context, c model.ServiceCategory) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE service_categories
		SET name = $2, description = $3, color = $4, sort_order = $5, updated_at = now()
		WHERE id = $1
	`, c.ID, c.Name, c.Description, c.Color, c.SortOrder)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CatalogRepository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM service_categories WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListServices returns services, optionally filtered to active ones. The
// public API always filters; the admin API never does.
func (r *CatalogRepository) ListServices(ctx context.Context, activeOnly bool) ([]model.Service, error) {
	query := serviceColumns + ` ORDER BY name`
	if activeOnly {
		query = serviceColumns + ` WHERE active ORDER BY name`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) ServiceByID(ctx context.Context, id string) (model.Service, bool, error) {
	svc, err := scanService(r.pool.QueryRow(ctx, serviceColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Service{}, false, nil
	}
	if err != nil {
		return model.Service{}, false, err
	}
	return svc, true, nil
}

func (r *CatalogRepository) CreateService(ctx context.Context, svc model.Service) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, category_id, name, description, duration_minutes, price_cents, currency, color, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, svc.CategoryID, svc.Name, svc.Description, svc.DurationMinutes,
		svc.PriceCents, svc.Currency, svc.Color, svc.Active)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) UpdateService(ctx context.Context, svc model.Service) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services
		SET category_id = $2, name = $3, description = $4, duration_minutes = $5,
			price_cents = $6, currency = $7, color = $8, active = $9, updated_at = now()
		WHERE id = $1
	`, svc.ID, svc.CategoryID, svc.Name, svc.Description, svc.DurationMinutes,
		svc.PriceCents, svc.Currency, svc.Color, svc.Active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeactivateService soft-deletes. Appointments keep their price snapshot, so
// nothing is ever removed from history.
func (r *CatalogRepository) DeactivateService(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CatalogRepository) ListEmployees(ctx context.Context, activeOnly bool) ([]model.Employee, error) {
	query := employeeColumns + ` ORDER BY last_name, first_name`
	if activeOnly {
		query = employeeColumns + ` WHERE active ORDER BY last_name, first_name`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) EmployeeByID(ctx context.Context, id string) (model.Employee, bool, error) {
	emp, err := scanEmployee(r.pool.QueryRow(ctx, employeeColumns+` WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Employee{}, false, nil
	}
	if err != nil {
		return model.Employee{}, false, err
	}
	return emp, true, nil
}

func (r *CatalogRepository) CreateEmployee(ctx context.Context, emp model.Employee) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO employees (id, first_name, last_name, email, phone, notes, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Notes, emp.Active)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *CatalogRepository) UpdateEmployee(ctx context.Context, emp model.Employee) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE employees
		SET first_name = $2, last_name = $3, email = $4, phone = $5, notes = $6,
			active = $7, updated_at = now()
		WHERE id = $1
	`, emp.ID, emp.FirstName, emp.LastName, emp.Email, emp.Phone, emp.Notes, emp.Active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CatalogRepository) DeactivateEmployee(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE employees SET active = false, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *CatalogRepository) WorkingHoursFor(ctx context.Context, employeeID string) ([]model.WorkingHours, error) {
	return queryWorkingHours(ctx, r.pool, employeeID)
}

// ReplaceWorkingHours swaps the employee's whole weekly template in one
// transaction so a half-applied template is never visible.
func (r *CatalogRepository) ReplaceWorkingHours(ctx context.Context, employeeID string, hours []model.WorkingHours) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM working_hours WHERE employee_id = $1`, employeeID); err != nil {
		return err
	}
	for _, wh := range hours {
		if wh.EndMinute <= wh.StartMinute {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO working_hours (employee_id, weekday, start_minute, end_minute)
			VALUES ($1, $2, $3, $4)
		`, employeeID, int(wh.Weekday), wh.StartMinute, wh.EndMinute); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *CatalogRepository) QualifiedServiceIDs(ctx context.Context, employeeID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT service_id FROM employee_services WHERE employee_id = $1
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CatalogRepository) ReplaceQualifications(ctx context.Context, employeeID string, serviceIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM employee_services WHERE employee_id = $1`, employeeID); err != nil {
		return err
	}
	for _, serviceID := range serviceIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO employee_services (employee_id, service_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, employeeID, serviceID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
