package domain

import "time"

// FileRecord announces a completed upload. The hub only fans it out; the
// bytes stay with the upload handler and are never persisted in the log.
type FileRecord struct {
	Filename string
	Uploader string
	At       time.Time
}
