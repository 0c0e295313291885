package domain

import (
	"fmt"
	"slices"
	"time"
)

// CollaborationStatus represents the lifecycle state of a collaboration.
type CollaborationStatus string

const (
	CollabPending         CollaborationStatus = "pending"
	CollabApproved        CollaborationStatus = "approved"
	CollabRejected        CollaborationStatus = "rejected"
	CollabCancelRequested CollaborationStatus = "cancel_requested"
	CollabCancelApproved  CollaborationStatus = "cancel_approved"
	CollabCancelDeclined  CollaborationStatus = "cancel_declined"
)

// CollaborationStatuses lists every status in lifecycle order.
var CollaborationStatuses = []CollaborationStatus{
	CollabPending, CollabApproved, CollabRejected,
	CollabCancelRequested, CollabCancelApproved, CollabCancelDeclined,
}

// CollaborationEvent is an input to the collaboration state machine.
type CollaborationEvent string

const (
	EventApprove             CollaborationEvent = "approve"
	EventReject              CollaborationEvent = "reject"
	EventRequestCancellation CollaborationEvent = "request_cancellation"
	EventApproveCancellation CollaborationEvent = "approve_cancellation"
	EventDeclineCancellation CollaborationEvent = "decline_cancellation"
)

// CollaborationEvents lists every event the machine accepts.
var CollaborationEvents = []CollaborationEvent{
	EventApprove, EventReject, EventRequestCancellation,
	EventApproveCancellation, EventDeclineCancellation,
}

type transitionKey struct {
	from  CollaborationStatus
	event CollaborationEvent
}

// collaborationTransitions is the complete transition table. Pairs absent
// from it are invalid.
var collaborationTransitions = map[transitionKey]CollaborationStatus{
	{CollabPending, EventApprove}:                     CollabApproved,
	{CollabPending, EventReject}:                      CollabRejected,
	{CollabApproved, EventRequestCancellation}:        CollabCancelRequested,
	{CollabCancelDeclined, EventRequestCancellation}:  CollabCancelRequested,
	{CollabCancelRequested, EventApproveCancellation}: CollabCancelApproved,
	{CollabCancelRequested, EventDeclineCancellation}: CollabCancelDeclined,
}

// Next returns the status reached by applying e to s, or ErrInvalidTransition.
func (s CollaborationStatus) Next(e CollaborationEvent) (CollaborationStatus, error) {
	next, ok := collaborationTransitions[transitionKey{s, e}]
	if !ok {
		return s, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}

// IsValid reports whether s is a known status.
func (s CollaborationStatus) IsValid() bool {
	switch s {
	case CollabPending, CollabApproved, CollabRejected,
		CollabCancelRequested, CollabCancelApproved, CollabCancelDeclined:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions leave s.
func (s CollaborationStatus) IsTerminal() bool {
	return s == CollabRejected || s == CollabCancelApproved
}

// IsActive reports whether s blocks a new request for the same pair.
func (s CollaborationStatus) IsActive() bool {
	return s.IsValid() && !s.IsTerminal()
}

// IsUsable reports whether the manager currently oversees the artist's songs.
// A declined cancellation leaves the relationship as it was when approved.
func (s CollaborationStatus) IsUsable() bool {
	return s == CollabApproved || s == CollabCancelDeclined
}

// ActiveCollaborationStatuses returns the statuses for which IsActive is true.
func ActiveCollaborationStatuses() []CollaborationStatus {
	out := make([]CollaborationStatus, 0, len(CollaborationStatuses))
	for _, s := range CollaborationStatuses {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}

// Collaboration is the managed relationship between one manager and one artist.
type Collaboration struct {
	ID                 string              `json:"id"`
	ManagerID          string              `json:"manager_id"`
	ArtistID           string              `json:"artist_id"`
	Status             CollaborationStatus `json:"status"`
	RequestedBy        string              `json:"requested_by"`
	Songs              []string            `json:"songs"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CancelRequestedBy  string              `json:"cancel_requested_by,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// HasParty reports whether userID is the manager or the artist.
func (c *Collaboration) HasParty(userID string) bool {
	return userID != "" && (c.ManagerID == userID || c.ArtistID == userID)
}

// Counterparty returns the other party of userID.
func (c *Collaboration) Counterparty(userID string) string {
	if userID == c.ManagerID {
		return c.ArtistID
	}
	return c.ManagerID
}

// ManagesSong reports whether songID is under this collaboration's management.
func (c *Collaboration) ManagesSong(songID string) bool {
	return slices.Contains(c.Songs, songID)
}

// CollaborationChange is the write applied by a compare-and-swap transition.
type CollaborationChange struct {
	To                 CollaborationStatus
	CancellationReason *string
	CancelRequestedBy  *string
	At                 time.Time
}

// Apply copies the change into c.
func (ch CollaborationChange) Apply(c *Collaboration) {
	c.Status = ch.To
	if ch.CancellationReason != nil {
		c.CancellationReason = *ch.CancellationReason
	}
	if ch.CancelRequestedBy != nil {
		c.CancelRequestedBy = *ch.CancelRequestedBy
	}
	c.UpdatedAt = ch.At
}
