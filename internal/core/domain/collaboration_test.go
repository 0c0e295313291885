package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollaborationStatus_NextIsClosed(t *testing.T) {
	valid := map[transitionKey]CollaborationStatus{
		{CollabPending, EventApprove}:                     CollabApproved,
		{CollabPending, EventReject}:                      CollabRejected,
		{CollabApproved, EventRequestCancellation}:        CollabCancelRequested,
		{CollabCancelDeclined, EventRequestCancellation}:  CollabCancelRequested,
		{CollabCancelRequested, EventApproveCancellation}: CollabCancelApproved,
		{CollabCancelRequested, EventDeclineCancellation}: CollabCancelDeclined,
	}

	for _, from := range CollaborationStatuses {
		for _, ev := range CollaborationEvents {
			next, err := from.Next(ev)
			want, ok := valid[transitionKey{from, ev}]
			if ok {
				require.NoError(t, err, "%s --%s-->", from, ev)
				require.Equal(t, want, next)
				continue
			}
			require.True(t, errors.Is(err, ErrInvalidTransition), "%s --%s--> should be invalid", from, ev)
			require.Equal(t, from, next, "invalid transition must leave the status unchanged")
		}
	}
}

func TestCollaborationStatus_TerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range CollaborationStatuses {
		if !s.IsTerminal() {
			continue
		}
		for _, ev := range CollaborationEvents {
			_, err := s.Next(ev)
			require.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
}

func TestCollaborationStatus_Classification(t *testing.T) {
	require.ElementsMatch(t,
		[]CollaborationStatus{CollabPending, CollabApproved, CollabCancelRequested, CollabCancelDeclined},
		ActiveCollaborationStatuses(),
	)
	require.True(t, CollabCancelDeclined.IsUsable())
	require.True(t, CollabApproved.IsUsable())
	require.False(t, CollabCancelRequested.IsUsable())
	require.False(t, CollaborationStatus("archived").IsValid())
	require.False(t, CollaborationStatus("archived").IsActive())
}

func TestCollaboration_Parties(t *testing.T) {
	c := &Collaboration{ManagerID: "m1", ArtistID: "a1", Songs: []string{"s1"}}

	require.True(t, c.HasParty("m1"))
	require.True(t, c.HasParty("a1"))
	require.False(t, c.HasParty("x"))
	require.False(t, c.HasParty(""))
	require.Equal(t, "a1", c.Counterparty("m1"))
	require.Equal(t, "m1", c.Counterparty("a1"))
	require.True(t, c.ManagesSong("s1"))
	require.False(t, c.ManagesSong("s2"))
}

func TestCollaborationChange_Apply(t *testing.T) {
	reason := "moving labels"
	by := "a1"
	c := &Collaboration{Status: CollabApproved}

	CollaborationChange{To: CollabCancelRequested, CancellationReason: &reason, CancelRequestedBy: &by}.Apply(c)

	require.Equal(t, CollabCancelRequested, c.Status)
	require.Equal(t, reason, c.CancellationReason)
	require.Equal(t, by, c.CancelRequestedBy)

	CollaborationChange{To: CollabCancelDeclined}.Apply(c)
	require.Equal(t, reason, c.CancellationReason, "nil fields leave values untouched")
}
