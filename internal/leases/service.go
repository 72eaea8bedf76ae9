package leases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Kayler1303/ACS-sub001/internal/residents"
)

// ErrInvalidInput flags a rejected intake payload.
var ErrInvalidInput = errors.New("invalid input")

// Service contains intake logic for leases and their residents.
type Service struct {
	Repo      Repo
	Residents residents.Repo
}

// CreateLease records a new lease term.
func (s *Service) CreateLease(ctx context.Context, name, address, unitNumber string, startDate time.Time, endDate *time.Time) (Lease, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Lease{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if startDate.IsZero() {
		return Lease{}, fmt.Errorf("%w: leaseStartDate is required", ErrInvalidInput)
	}
	if endDate != nil && !endDate.After(startDate) {
		return Lease{}, fmt.Errorf("%w: leaseEndDate must be after leaseStartDate", ErrInvalidInput)
	}

	now := time.Now().UTC()
	lease := Lease{
		ID:             uuid.NewString(),
		Name:           name,
		Address:        strings.TrimSpace(address),
		UnitNumber:     strings.TrimSpace(unitNumber),
		LeaseStartDate: startDate,
		LeaseEndDate:   endDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Repo.Create(ctx, lease); err != nil {
		return Lease{}, err
	}
	return lease, nil
}

// AddResident attaches a resident to a lease. The declared income is the
// rent-roll figure later reconciled against verified income; nil means no
// income is on record and reconciliation will skip the resident.
func (s *Service) AddResident(ctx context.Context, leaseID, name string, declaredIncome *float64) (residents.Resident, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return residents.Resident{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if declaredIncome != nil && *declaredIncome < 0 {
		return residents.Resident{}, fmt.Errorf("%w: annualizedIncome must not be negative", ErrInvalidInput)
	}
	if _, err := s.Repo.GetByID(ctx, leaseID); err != nil {
		return residents.Resident{}, err
	}

	now := time.Now().UTC()
	res := residents.Resident{
		ID:                       uuid.NewString(),
		LeaseID:                  leaseID,
		Name:                     name,
		DeclaredAnnualizedIncome: declaredIncome,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.Residents.Create(ctx, res); err != nil {
		return residents.Resident{}, err
	}
	return res, nil
}

// GetWithResidents loads a lease and its residents.
func (s *Service) GetWithResidents(ctx context.Context, leaseID string) (Lease, []residents.Resident, error) {
	lease, err := s.Repo.GetByID(ctx, leaseID)
	if err != nil {
		return Lease{}, nil, err
	}
	members, err := s.Residents.ListByLease(ctx, leaseID)
	if err != nil {
		return Lease{}, nil, err
	}
	return lease, members, nil
}
