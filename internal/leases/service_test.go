package leases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/residents"
)

func setupService(t *testing.T) (*Service, *MemoryRepo, *residents.MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	resRepo := residents.NewMemoryRepo()
	return &Service{Repo: repo, Residents: resRepo}, repo, resRepo
}

func TestCreateLeaseTrimsFields(t *testing.T) {
	svc, repo, _ := setupService(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lease, err := svc.CreateLease(context.Background(), "  April 2025 Renewal  ", " 12 Elm St ", " 4B ", start, nil)
	if err != nil {
		t.Fatalf("CreateLease: %v", err)
	}
	if lease.ID == "" {
		t.Fatalf("expected generated id")
	}
	if lease.Name != "April 2025 Renewal" || lease.Address != "12 Elm St" || lease.UnitNumber != "4B" {
		t.Fatalf("fields not trimmed: %+v", lease)
	}
	if !lease.LeaseStartDate.Equal(start) {
		t.Fatalf("start = %v, want %v", lease.LeaseStartDate, start)
	}
	if lease.LeaseEndDate != nil {
		t.Fatalf("expected open-ended lease, got %v", lease.LeaseEndDate)
	}

	stored, err := repo.GetByID(context.Background(), lease.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Name != lease.Name {
		t.Fatalf("stored name = %q, want %q", stored.Name, lease.Name)
	}
}

func TestCreateLeaseValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sameDay := start

	cases := []struct {
		name      string
		leaseName string
		start     time.Time
		end       *time.Time
	}{
		{"blank name", "   ", start, nil},
		{"zero start date", "Renewal", time.Time{}, nil},
		{"end before start", "Renewal", start, timePtr(start.AddDate(0, -1, 0))},
		{"end equals start", "Renewal", start, &sameDay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateLease(context.Background(), tc.leaseName, "", "", tc.start, tc.end); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateLeaseAcceptsFutureEndDate(t *testing.T) {
	svc, _, _ := setupService(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	lease, err := svc.CreateLease(context.Background(), "Renewal", "", "", start, &end)
	if err != nil {
		t.Fatalf("CreateLease: %v", err)
	}
	if lease.LeaseEndDate == nil || !lease.LeaseEndDate.Equal(end) {
		t.Fatalf("end = %v, want %v", lease.LeaseEndDate, end)
	}
}

func TestAddResidentCarriesDeclaredIncome(t *testing.T) {
	svc, _, resRepo := setupService(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lease, err := svc.CreateLease(context.Background(), "Renewal", "", "", start, nil)
	if err != nil {
		t.Fatalf("CreateLease: %v", err)
	}

	declared := 32000.0
	res, err := svc.AddResident(context.Background(), lease.ID, "  Jane Tenant ", &declared)
	if err != nil {
		t.Fatalf("AddResident: %v", err)
	}
	if res.Name != "Jane Tenant" {
		t.Fatalf("name = %q, want %q", res.Name, "Jane Tenant")
	}
	if res.LeaseID != lease.ID {
		t.Fatalf("leaseID = %q, want %q", res.LeaseID, lease.ID)
	}
	if res.DeclaredAnnualizedIncome == nil || *res.DeclaredAnnualizedIncome != 32000 {
		t.Fatalf("declared income not carried: %v", res.DeclaredAnnualizedIncome)
	}

	stored, err := resRepo.GetByID(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.LeaseID != lease.ID {
		t.Fatalf("stored leaseID = %q, want %q", stored.LeaseID, lease.ID)
	}
}

func TestAddResidentAllowsNoDeclaredIncome(t *testing.T) {
	svc, _, _ := setupService(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lease, err := svc.CreateLease(context.Background(), "Renewal", "", "", start, nil)
	if err != nil {
		t.Fatalf("CreateLease: %v", err)
	}

	res, err := svc.AddResident(context.Background(), lease.ID, "John Tenant", nil)
	if err != nil {
		t.Fatalf("AddResident: %v", err)
	}
	if res.DeclaredAnnualizedIncome != nil {
		t.Fatalf("expected nil declared income, got %v", *res.DeclaredAnnualizedIncome)
	}
}

func TestAddResidentValidation(t *testing.T) {
	svc, _, _ := setupService(t)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lease, err := svc.CreateLease(context.Background(), "Renewal", "", "", start, nil)
	if err != nil {
		t.Fatalf("CreateLease: %v", err)
	}

	if _, err := svc.AddResident(context.Background(), lease.ID, "  ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
	negative := -1.0
	if _, err := svc.AddResident(context.Background(), lease.ID, "Jane", &negative); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative income, got %v", err)
	}
	if _, err := svc.AddResident(context.Background(), "lease-missing", "Jane", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown lease, got %v", err)
	}
}

func TestGetWithResidentsOrdersByCreation(t *testing.T) {
	svc, repo, resRepo := setupService(t)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lease := Lease{ID: "lease-1", Name: "Renewal", LeaseStartDate: base, CreatedAt: base, UpdatedAt: base}
	if err := repo.Create(context.Background(), lease); err != nil {
		t.Fatalf("Create lease: %v", err)
	}
	// Insert out of creation order to make the sort observable.
	second := residents.Resident{ID: "res-b", LeaseID: "lease-1", Name: "Second", CreatedAt: base.Add(2 * time.Hour)}
	first := residents.Resident{ID: "res-a", LeaseID: "lease-1", Name: "First", CreatedAt: base.Add(time.Hour)}
	if err := resRepo.Create(context.Background(), second); err != nil {
		t.Fatalf("Create resident: %v", err)
	}
	if err := resRepo.Create(context.Background(), first); err != nil {
		t.Fatalf("Create resident: %v", err)
	}

	got, members, err := svc.GetWithResidents(context.Background(), "lease-1")
	if err != nil {
		t.Fatalf("GetWithResidents: %v", err)
	}
	if got.ID != "lease-1" {
		t.Fatalf("lease id = %q", got.ID)
	}
	if len(members) != 2 || members[0].Name != "First" || members[1].Name != "Second" {
		t.Fatalf("unexpected member order: %+v", members)
	}
}

func TestGetWithResidentsUnknownLease(t *testing.T) {
	svc, _, _ := setupService(t)
	if _, _, err := svc.GetWithResidents(context.Background(), "lease-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }
