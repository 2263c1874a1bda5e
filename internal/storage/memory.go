package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xaenox/sentia/internal/models"
)

type MemoryStorage struct {
	mu         sync.RWMutex
	employees  map[string]models.Employee
	reports    map[int64]models.Report
	results    map[int64]models.Result // keyed by report id
	lastReport int64
	lastResult int64
	now        func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		employees: make(map[string]models.Employee),
		reports:   make(map[int64]models.Report),
		results:   make(map[int64]models.Result),
		now:       time.Now,
	}
}

// Employee methods
func (s *MemoryStorage) GetEmployee(ctx context.Context, documentID string) (*models.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.employees[documentID]
	if !exists {
		return nil, fmt.Errorf("employee %s: %w", documentID, ErrNotFound)
	}
	return &e, nil
}

func (s *MemoryStorage) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employees[employee.DocumentID]; exists {
		return fmt.Errorf("employee %s: %w", employee.DocumentID, ErrConflict)
	}
	s.employees[employee.DocumentID] = *employee
	return nil
}

func (s *MemoryStorage) UpdateEmployee(ctx context.Context, employee *models.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employees[employee.DocumentID]; !exists {
		return fmt.Errorf("employee %s: %w", employee.DocumentID, ErrNotFound)
	}
	s.employees[employee.DocumentID] = *employee
	return nil
}

// Report methods
func (s *MemoryStorage) CreateReport(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employees[report.EmployeeID]; !exists {
		return fmt.Errorf("employee %s: %w", report.EmployeeID, ErrNotFound)
	}
	s.lastReport++
	report.ID = s.lastReport
	report.RegisteredAt = s.now().UTC()
	s.reports[report.ID] = *report
	return nil
}

func (s *MemoryStorage) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.reports[id]
	if !exists {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (s *MemoryStorage) ListReports(ctx context.Context, employeeID string) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := []*models.Report{}
	for _, r := range s.reports {
		if r.EmployeeID == employeeID {
			r := r
			reports = append(reports, &r)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ID > reports[j].ID
	})
	return reports, nil
}

// Result methods
func (s *MemoryStorage) SaveResult(ctx context.Context, result *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[result.ReportID]; !exists {
		return fmt.Errorf("report %d: %w", result.ReportID, ErrNotFound)
	}
	if _, exists := s.results[result.ReportID]; exists {
		return fmt.Errorf("result for report %d: %w", result.ReportID, ErrConflict)
	}
	s.lastResult++
	result.ID = s.lastResult
	s.results[result.ReportID] = *result
	return nil
}

func (s *MemoryStorage) GetResultByReport(ctx context.Context, reportID int64) (*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.results[reportID]
	if !exists {
		return nil, fmt.Errorf("result for report %d: %w", reportID, ErrNotFound)
	}
	return &r, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
