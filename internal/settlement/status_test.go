package settlement

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pachtwerk/pachtwerk/internal/shared"
)

func TestValidateTransitionAllowsLifecyclePath(t *testing.T) {
	path := []Status{
		StatusOpen, StatusCalculated, StatusAdvanceCreated,
		StatusPendingReview, StatusApproved, StatusClosed,
	}
	for i := 0; i < len(path)-1; i++ {
		require.NoError(t, ValidateTransition(path[i], path[i+1]),
			"%s -> %s", path[i], path[i+1])
	}
}

func TestValidateTransitionRejectionPath(t *testing.T) {
	require.NoError(t, ValidateTransition(StatusPendingReview, StatusInProgress))
	require.NoError(t, ValidateTransition(StatusInProgress, StatusCalculated))
	require.NoError(t, ValidateTransition(StatusInProgress, StatusPendingReview))
}

func TestValidateTransitionRejectsSkips(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusOpen, StatusClosed},
		{StatusOpen, StatusApproved},
		{StatusCalculated, StatusClosed},
		{StatusSettled, StatusApproved},
		{StatusApproved, StatusPendingReview},
		{StatusClosed, StatusCancelled},
		{StatusCancelled, StatusOpen},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		require.ErrorIs(t, err, shared.ErrValidation, "%s -> %s", tc.from, tc.to)
		require.Contains(t, err.Error(), string(tc.from))
		require.Contains(t, err.Error(), string(tc.to))
	}
}

func TestCancellableFromNonTerminalStates(t *testing.T) {
	for _, from := range []Status{
		StatusCalculated, StatusAdvanceCreated, StatusSettled,
		StatusPendingReview, StatusApproved, StatusInProgress,
	} {
		require.NoError(t, ValidateTransition(from, StatusCancelled), "from %s", from)
	}
	require.Error(t, ValidateTransition(StatusOpen, StatusCancelled))
}

func TestTerminal(t *testing.T) {
	require.True(t, StatusClosed.Terminal())
	require.True(t, StatusCancelled.Terminal())
	require.False(t, StatusOpen.Terminal())
	require.False(t, StatusApproved.Terminal())
}

func TestCanGenerate(t *testing.T) {
	require.True(t, StatusCalculated.CanGenerate())
	require.True(t, StatusAdvanceCreated.CanGenerate())
	require.True(t, StatusSettled.CanGenerate())
	require.True(t, StatusInProgress.CanGenerate())

	require.False(t, StatusOpen.CanGenerate())
	require.False(t, StatusPendingReview.CanGenerate())
	require.False(t, StatusApproved.CanGenerate())
	require.False(t, StatusClosed.CanGenerate())
	require.False(t, StatusCancelled.CanGenerate())
}
