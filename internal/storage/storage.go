package storage

import (
	"context"
	"errors"

	"github.com/xaenox/sentia/internal/models"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrConflict = errors.New("storage: already exists")
)

// Storage persists employees, their reports and the classification result
// of each report.
type Storage interface {
	EmployeeStorage
	ReportStorage
	ResultStorage
	Close() error
}

type EmployeeStorage interface {
	GetEmployee(ctx context.Context, documentID string) (*models.Employee, error)
	CreateEmployee(ctx context.Context, employee *models.Employee) error
	UpdateEmployee(ctx context.Context, employee *models.Employee) error
}

type ReportStorage interface {
	// CreateReport assigns report.ID and report.RegisteredAt.
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	ListReports(ctx context.Context, employeeID string) ([]*models.Report, error)
}

type ResultStorage interface {
	// SaveResult assigns result.ID. A report accepts a single result;
	// a second one fails with ErrConflict.
	SaveResult(ctx context.Context, result *models.Result) error
	GetResultByReport(ctx context.Context, reportID int64) (*models.Result, error)
}
