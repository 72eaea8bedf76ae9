package leases

import (
	"time"

	"github.com/Kayler1303/ACS-sub001/internal/residents"
)

// LeaseResponse is the outward-facing representation of a lease.
type LeaseResponse struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Address        string               `json:"address,omitempty"`
	UnitNumber     string               `json:"unitNumber,omitempty"`
	LeaseStartDate string               `json:"leaseStartDate"`
	LeaseEndDate   *string              `json:"leaseEndDate"`
	CreatedAt      time.Time            `json:"createdAt"`
	Residents      []residents.Response `json:"residents,omitempty"`
}

func toResponse(lease Lease, members []residents.Resident) LeaseResponse {
	resp := LeaseResponse{
		ID:             lease.ID,
		Name:           lease.Name,
		Address:        lease.Address,
		UnitNumber:     lease.UnitNumber,
		LeaseStartDate: lease.LeaseStartDate.Format("2006-01-02"),
		CreatedAt:      lease.CreatedAt,
	}
	if lease.LeaseEndDate != nil {
		end := lease.LeaseEndDate.Format("2006-01-02")
		resp.LeaseEndDate = &end
	}
	for _, m := range members {
		resp.Residents = append(resp.Residents, residents.ToResponse(m))
	}
	return resp
}
