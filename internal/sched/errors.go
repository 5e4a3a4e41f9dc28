package sched

import "errors"

var (
	// ErrCapacity indicates a UE index outside the UE universe.
	ErrCapacity = errors.New("ue capacity exceeded")
	// ErrUnknownCell indicates a cell index that was never registered.
	ErrUnknownCell = errors.New("unknown cell")
	// ErrUEExists indicates a creation request for an index already in use.
	ErrUEExists = errors.New("ue already exists")
	// ErrUENotFound indicates a request for a UE that does not exist or is
	// already being deleted.
	ErrUENotFound = errors.New("ue not found")
	// ErrInvalidRequest indicates a malformed request.
	ErrInvalidRequest = errors.New("invalid request")
)
