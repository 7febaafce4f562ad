package domain

import "time"

// Command is the input union of the hub loop. Every state mutation of the
// room (presence membership, message ordering) travels through one of these.
type Command interface {
	Connection() ConnectionID
}

// JoinCommand registers a connection. History hydration and the presence
// snapshot are delivered through the connection's sink, never as a return
// value, so the hub loop stays the only ordering point.
type JoinCommand struct {
	ConnID   ConnectionID
	Identity Identity
}

func (c JoinCommand) Connection() ConnectionID { return c.ConnID }

// LeaveCommand unregisters a connection. Idempotent.
type LeaveCommand struct {
	ConnID ConnectionID
}

func (c LeaveCommand) Connection() ConnectionID { return c.ConnID }

// PostMessageCommand carries one send attempt. Validation failures and
// storage errors are reported to the sender's sink only.
type PostMessageCommand struct {
	ConnID    ConnectionID
	Author    string
	Content   string
	CreatedAt time.Time
}

func (c PostMessageCommand) Connection() ConnectionID { return c.ConnID }

// AnnounceFileCommand fans out an upload notification. Not persisted.
type AnnounceFileCommand struct {
	ConnID ConnectionID
	File   FileRecord
}

func (c AnnounceFileCommand) Connection() ConnectionID { return c.ConnID }
