package settlement

import (
	"fmt"

	"github.com/pachtwerk/pachtwerk/internal/shared"
)

// transitions is the closed set of allowed status changes. CANCELLED is
// reachable from every non-terminal state except OPEN, which is simply
// deleted rather than cancelled.
var transitions = map[Status][]Status{
	StatusOpen:           {StatusCalculated},
	StatusCalculated:     {StatusAdvanceCreated, StatusSettled, StatusCancelled},
	StatusAdvanceCreated: {StatusSettled, StatusPendingReview, StatusCancelled},
	StatusSettled:        {StatusPendingReview, StatusCancelled},
	StatusPendingReview:  {StatusApproved, StatusInProgress, StatusCancelled},
	StatusApproved:       {StatusClosed, StatusCancelled},
	StatusInProgress:     {StatusCalculated, StatusPendingReview, StatusCancelled},
	StatusClosed:         nil,
	StatusCancelled:      nil,
}

// Terminal reports whether no further transition leaves the status.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// ValidateTransition rejects moves the lifecycle does not allow. The
// error names both states so the caller can surface it verbatim.
func ValidateTransition(from, to Status) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: transition %s -> %s not allowed", shared.ErrValidation, from, to)
}

// CanGenerate reports whether documents may be generated in the
// current status. Generation re-runs are allowed as long as the period
// is neither under review nor terminal; already-billed leases are
// skipped by the generation run itself.
func (s Status) CanGenerate() bool {
	switch s {
	case StatusCalculated, StatusAdvanceCreated, StatusSettled, StatusInProgress:
		return true
	default:
		return false
	}
}
