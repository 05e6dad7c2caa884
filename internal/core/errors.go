package core

import "errors"

var (
	// ErrToolNotFound is returned by registry lookups for unknown names.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolUnavailable is returned when a wrapped binary is not on PATH.
	ErrToolUnavailable = errors.New("tool not available")

	// ErrUnknownOperation is returned for operations a tool does not define.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNoJob is returned by CommandBus.Pop when the queue is empty.
	ErrNoJob = errors.New("no job available")

	// ErrJobNotFound is returned for job IDs the bus has never seen
	// or whose records have expired.
	ErrJobNotFound = errors.New("job not found")

	// ErrScanNotFound is returned for scan IDs absent from the store.
	ErrScanNotFound = errors.New("scan not found")

	// ErrGeneNotFound is returned for missing genome records.
	ErrGeneNotFound = errors.New("gene not found")

	// ErrNoInstinct is returned when no instinct matches a trigger.
	ErrNoInstinct = errors.New("no matching instinct")

	// ErrConfirmationRequired is returned when a high risk command is
	// dispatched without an explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required for high risk command")
)
