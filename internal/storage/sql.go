package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/xaenox/sentia/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLStorage implements Storage on database/sql. The queries are shared by
// PostgreSQL and SQLite; only the schema and the driver error codes differ.
type SQLStorage struct {
	db       *sql.DB
	classify func(error) error
	now      func() time.Time
}

func newSQLStorage(db *sql.DB, classify func(error) error) *SQLStorage {
	return &SQLStorage{db: db, classify: classify, now: time.Now}
}

func (s *SQLStorage) initializeSchema(file string) error {
	// Read migrations file
	migrationSQL, err := migrations.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	// Execute migrations
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// wrap maps driver constraint errors onto ErrConflict / ErrNotFound.
func (s *SQLStorage) wrap(what string, err error) error {
	if kind := s.classify(err); kind != nil {
		return fmt.Errorf("%s: %w", what, kind)
	}
	return fmt.Errorf("error %s: %w", what, err)
}

const employeeColumns = `document_id, document_type, full_name, gender, company, position, birth_date, age, email, hobby`

func (s *SQLStorage) GetEmployee(ctx context.Context, documentID string) (*models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE document_id = $1`

	var (
		e                                       models.Employee
		gender, company, position, email, hobby sql.NullString
		birthDate                               sql.NullTime
		age                                     sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(
		&e.DocumentID,
		&e.DocumentType,
		&e.FullName,
		&gender,
		&company,
		&position,
		&birthDate,
		&age,
		&email,
		&hobby,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", documentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying employee: %w", err)
	}

	e.Gender = stringPtr(gender)
	e.Company = stringPtr(company)
	e.Position = stringPtr(position)
	e.Email = stringPtr(email)
	e.Hobby = stringPtr(hobby)
	if birthDate.Valid {
		t := birthDate.Time
		e.BirthDate = &t
	}
	if age.Valid {
		a := int(age.Int64)
		e.Age = &a
	}
	return &e, nil
}

func (s *SQLStorage) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		employee.DocumentID,
		employee.DocumentType,
		employee.FullName,
		nullable(employee.Gender),
		nullable(employee.Company),
		nullable(employee.Position),
		nullable(employee.BirthDate),
		nullable(employee.Age),
		nullable(employee.Email),
		nullable(employee.Hobby),
	)
	if err != nil {
		return s.wrap("creating employee "+employee.DocumentID, err)
	}
	return nil
}

func (s *SQLStorage) UpdateEmployee(ctx context.Context, employee *models.Employee) error {
	query := `
		UPDATE employees
		SET document_type = $1, full_name = $2, gender = $3, company = $4, position = $5,
		    birth_date = $6, age = $7, email = $8, hobby = $9
		WHERE document_id = $10`

	result, err := s.db.ExecContext(ctx, query,
		employee.DocumentType,
		employee.FullName,
		nullable(employee.Gender),
		nullable(employee.Company),
		nullable(employee.Position),
		nullable(employee.BirthDate),
		nullable(employee.Age),
		nullable(employee.Email),
		nullable(employee.Hobby),
		employee.DocumentID,
	)
	if err != nil {
		return s.wrap("updating employee "+employee.DocumentID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("employee %s: %w", employee.DocumentID, ErrNotFound)
	}
	return nil
}

const reportColumns = `id, employee_id, energy_level, average_sleep_hours, feeling, photo, description, registered_at`

func (s *SQLStorage) CreateReport(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (employee_id, energy_level, average_sleep_hours, feeling, photo, description, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	registeredAt := s.now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		report.EmployeeID,
		nullable(report.EnergyLevel),
		nullable(report.AverageSleepHours),
		nullable(report.Feeling),
		nullable(report.Photo),
		nullable(report.Description),
		registeredAt,
	).Scan(&report.ID)
	if err != nil {
		return s.wrap("creating report for employee "+report.EmployeeID, err)
	}
	report.RegisteredAt = registeredAt
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r                           models.Report
		energy                      sql.NullInt64
		sleep                       sql.NullFloat64
		feeling, photo, description sql.NullString
	)
	err := row.Scan(
		&r.ID,
		&r.EmployeeID,
		&energy,
		&sleep,
		&feeling,
		&photo,
		&description,
		&r.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}
	if energy.Valid {
		e := int(energy.Int64)
		r.EnergyLevel = &e
	}
	if sleep.Valid {
		h := sleep.Float64
		r.AverageSleepHours = &h
	}
	r.Feeling = stringPtr(feeling)
	r.Photo = stringPtr(photo)
	r.Description = stringPtr(description)
	return &r, nil
}

func (s *SQLStorage) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1`

	r, err := scanReport(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying report: %w", err)
	}
	return r, nil
}

func (s *SQLStorage) ListReports(ctx context.Context, employeeID string) ([]*models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE employee_id = $1
		ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("error querying reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

func (s *SQLStorage) SaveResult(ctx context.Context, result *models.Result) error {
	query := `
		INSERT INTO results (report_id, primary_emotion, secondary_emotion, summary, model)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		result.ReportID,
		result.PrimaryEmotion,
		result.SecondaryEmotion,
		result.Summary,
		result.Model,
	).Scan(&result.ID)
	if err != nil {
		return s.wrap(fmt.Sprintf("saving result for report %d", result.ReportID), err)
	}
	return nil
}

func (s *SQLStorage) GetResultByReport(ctx context.Context, reportID int64) (*models.Result, error) {
	query := `
		SELECT id, report_id, primary_emotion, secondary_emotion, summary, model
		FROM results
		WHERE report_id = $1`

	var r models.Result
	err := s.db.QueryRowContext(ctx, query, reportID).Scan(
		&r.ID,
		&r.ReportID,
		&r.PrimaryEmotion,
		&r.SecondaryEmotion,
		&r.Summary,
		&r.Model,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result for report %d: %w", reportID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying result: %w", err)
	}
	return &r, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// nullable turns a nil pointer into SQL NULL and dereferences the rest.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
