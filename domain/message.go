// Package domain contains core concepts of the chat system.
// This file defines Message entities and related rules.
// Messages are immutable once accepted by the log.
package domain

import "time"

// MessageID is assigned by the persistence log and is the single ordering
// authority: broadcast order always equals ascending MessageID order.
type MessageID uint64

// Message represents an immutable chat event.
type Message struct {
	ID        MessageID
	Author    string
	Content   string
	Lang      string // ISO 639-1 code detected at ingestion, may be empty
	CreatedAt time.Time
}
