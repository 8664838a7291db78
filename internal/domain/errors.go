package domain

import "errors"

var (
	// ErrDuplicatePost signals that a (network, source_id) pair is already
	// stored. Expected during normal operation: counted, never fatal.
	ErrDuplicatePost = errors.New("duplicate post")

	// ErrSymbolNotTracked signals a query for a symbol the registry does not
	// know.
	ErrSymbolNotTracked = errors.New("symbol not tracked")

	// ErrRunInProgress signals that an ingestion run was triggered while the
	// previous one is still running. The trigger is skipped, not queued.
	ErrRunInProgress = errors.New("ingestion run already in progress")
)
