package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/storage"
)

// Load retrieves the full snapshot for a schedule period.
// Returns storage.ErrCollectionNotFound if the period was never saved.
func (s *Storage) Load(ctx context.Context, period string) ([]*models.Employee, error) {
	if period == "" {
		return nil, storage.ErrEmptyPeriod
	}

	// Период регистрируется в roster_periods при каждом Save, поэтому
	// пустой снимок и "никогда не сохранялся" различимы
	var savedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM roster_periods WHERE period = ?`, period,
	).Scan(&savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to check period: %w", err)
	}

	query := `
		SELECT id, name, role, employment_type, weekly_hours, notes,
		       version, created_at, updated_at
		FROM employees
		WHERE period = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, period)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	return s.scanEmployees(rows, period)
}

// Save replaces the stored snapshot for a schedule period.
// Снимок заменяется целиком в одной транзакции: удаленные в памяти
// сотрудники исчезают и из durable-копии.
func (s *Storage) Save(ctx context.Context, period string, snapshot []*models.Employee) error {
	if period == "" {
		return storage.ErrEmptyPeriod
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO roster_periods (period, saved_at) VALUES (?, ?)
		ON CONFLICT(period) DO UPDATE SET saved_at = excluded.saved_at
	`, period, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to register period: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM employees WHERE period = ?`, period,
	); err != nil {
		return fmt.Errorf("failed to clear period: %w", err)
	}

	query := `
		INSERT INTO employees (
			period, id, name, role, employment_type,
			weekly_hours, notes, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, emp := range snapshot {
		_, err := tx.ExecContext(ctx, query,
			period,
			emp.ID,
			emp.Name,
			emp.Role,
			emp.EmploymentType,
			emp.WeeklyHours,
			emp.Notes,
			emp.Version,
			emp.CreatedAt.UnixNano(),
			emp.UpdatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert employee %s: %w", emp.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// Collections lists all persisted schedule periods in lexical order.
func (s *Storage) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT period FROM roster_periods ORDER BY period`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = cerr
		}
	}()

	periods := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		periods = append(periods, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate periods: %w", err)
	}

	return periods, nil
}

// scanEmployees is a helper function to scan multiple employees from rows
func (s *Storage) scanEmployees(rows *sql.Rows, period string) ([]*models.Employee, error) {
	employees := []*models.Employee{}

	for rows.Next() {
		emp := &models.Employee{Period: period}
		var createdAt, updatedAt int64

		err := rows.Scan(
			&emp.ID,
			&emp.Name,
			&emp.Role,
			&emp.EmploymentType,
			&emp.WeeklyHours,
			&emp.Notes,
			&emp.Version,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}

		emp.CreatedAt = nanoToTime(createdAt)
		emp.UpdatedAt = nanoToTime(updatedAt)
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}

// nanoToTime восстанавливает time.Time из наносекунд Unix.
// Наносекунды, а не секунды: Persistence Bridge сравнивает UpdatedAt
// на точное равенство при сверке снимков.
func nanoToTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
