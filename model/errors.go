package model

import (
	"errors"
	"fmt"
)

// ErrProjectNotFound reports a lookup for an absent project. Callers treat
// it as empty state, not a failure.
var ErrProjectNotFound = errors.New("project not found")

// ErrDuplicateProjectID reports a creation collision. The repository
// pre-checks IDs because the storage record itself cannot enforce
// uniqueness inside the serialized payload.
var ErrDuplicateProjectID = errors.New("duplicate project id")

// ErrSplitInFlight reports a second split request for a file whose previous
// split has not settled yet.
var ErrSplitInFlight = errors.New("split already in flight for this file")

// ErrExportConflict reports an export rejected because the target file
// already exists and the conflict policy is "fail".
var ErrExportConflict = errors.New("export target already exists")

// TransportError wraps any failure of a splitter backend call: network
// errors, timeouts and backend-reported failures all surface uniformly.
type TransportError struct {
	Op    string // "split", "get-segment" or "store"
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("splitter %s failed: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// SegmentInvariantError reports a segment edit that would break the
// ordered, non-overlapping sequence invariant.
type SegmentInvariantError struct {
	Index  int
	Reason string
}

func (e *SegmentInvariantError) Error() string {
	return fmt.Sprintf("segment %d: %s", e.Index, e.Reason)
}
