// Package event defines the fan-out union pushed to connected sessions.
package event

import (
	"time"

	"lan-chat/domain"
)

// DomainEvent is what sinks consume. The concrete types below are the only
// members of the union.
type DomainEvent interface {
	OccurredAt() time.Time
}

// MessageBroadcast carries one durably persisted chat message. Fan-out order
// of these events equals the persistence log's acceptance order.
type MessageBroadcast struct {
	ID      domain.MessageID
	Author  string
	Content string
	At      time.Time
}

func (e MessageBroadcast) OccurredAt() time.Time { return e.At }

// UserJoined announces one identity entering the room, fanned out right
// before the refreshed presence snapshot.
type UserJoined struct {
	Name string
	At   time.Time
}

func (e UserJoined) OccurredAt() time.Time { return e.At }

// UserLeft announces one identity leaving the room.
type UserLeft struct {
	Name string
	At   time.Time
}

func (e UserLeft) OccurredAt() time.Time { return e.At }

// PresenceUpdated carries the full distinct snapshot of online names.
type PresenceUpdated struct {
	Online []string
	At     time.Time
}

func (e PresenceUpdated) OccurredAt() time.Time { return e.At }

// FileShared announces a completed upload. Never persisted.
type FileShared struct {
	Uploader string
	Filename string
	At       time.Time
}

func (e FileShared) OccurredAt() time.Time { return e.At }

// DeliveryError is addressed to a single session and never broadcast.
type DeliveryError struct {
	Reason string
	At     time.Time
}

func (e DeliveryError) OccurredAt() time.Time { return e.At }
