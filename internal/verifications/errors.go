package verifications

import "errors"

var (
	// ErrNotFound is returned when a verification does not exist.
	ErrNotFound = errors.New("verification not found")
	// ErrInvalidInput flags a rejected payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLeaseConflict is returned when a lease already has an IN_PROGRESS
	// verification. Start surfaces the existing verification alongside it.
	ErrLeaseConflict = errors.New("lease already has a verification in progress")
	// ErrAlreadyFinalized rejects transitions on a finalized verification.
	ErrAlreadyFinalized = errors.New("verification is already finalized")
	// ErrResidentsNotFinalized blocks lease-wide finalization while any
	// resident remains open.
	ErrResidentsNotFinalized = errors.New("not every resident is finalized")
	// ErrUnresolvedDiscrepancy blocks lease-wide finalization while a
	// declared-vs-verified difference has no approved resolution.
	ErrUnresolvedDiscrepancy = errors.New("unresolved income discrepancies remain")
	// ErrResidentFinalized rejects edits to a finalized resident.
	ErrResidentFinalized = errors.New("resident income is already finalized")
	// ErrResidentNotFinalized rejects operations that need a frozen figure.
	ErrResidentNotFinalized = errors.New("resident income is not finalized")
	// ErrFinalizeBlocked is returned when a resident does not yet meet the
	// finalization requirements; the wrapped message names the gap.
	ErrFinalizeBlocked = errors.New("resident cannot be finalized")
)
