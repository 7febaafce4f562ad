// Package domain contains core concepts of the chat system.
// This file defines Identity and connection handles.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// ConnectionID identifies one live transport connection. Two connections may
// share a display name; the handle is what makes them distinct.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

// Identity is a display name bound to one active connection. It is never
// persisted beyond the process lifetime.
type Identity struct {
	Name string
}
