package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"lan-chat/domain"
	"lan-chat/errors"
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	ReadRecent(limit int) ([]domain.Message, error)
	Close() error
}

// MessageRepository is the append-only chat log. BadgerDB assigns each
// message a monotonic id from a sequence; the zero-padded id in the key
// keeps lexicographic iteration equal to acceptance order.
type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	// Bandwidth of 64 pre-reserves ids; gaps after a crash are fine, only
	// monotonicity matters.
	seq, err := db.GetSequence([]byte("seq:messages"), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrWriteFailed, err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

// diskMessage is the stored JSON shape, kept separate from domain.Message so
// the storage schema can evolve without touching the domain.
type diskMessage struct {
	ID      uint64 `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
	Lang    string `json:"lang,omitempty"`
	At      int64  `json:"at"` // unix nanoseconds, UTC
}

func messageKey(id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:%020d", id))
}

// Append durably records a message and returns it with its assigned id.
// The sequence is only ever pulled from the hub loop, so ids and key order
// both match the order in which the log accepted the writes.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	id, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrWriteFailed, err)
	}
	message.ID = domain.MessageID(id)

	bytes, err := json.Marshal(toDiskMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrWriteFailed, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message.ID), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrWriteFailed, err)
	}
	return message, nil
}

// ReadRecent returns the newest limit messages in ascending id order, used
// to hydrate a freshly connected session. limit <= 0 means everything.
func (m *MessageRepository) ReadRecent(limit int) ([]domain.Message, error) {
	var collected []diskMessage

	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the largest possible key, then walk backwards.
		seekKey := append(append([]byte{}, prefix...), []byte("99999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(collected) == limit {
				break
			}
			var dm diskMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			})
			if err != nil {
				return err
			}
			collected = append(collected, dm)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrReadFailed, err)
	}

	return lo.Map(lo.Reverse(collected), func(dm diskMessage, _ int) domain.Message {
		return fromDiskMessage(dm)
	}), nil
}

// Close releases the unused tail of the id sequence.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

func toDiskMessage(message domain.Message) diskMessage {
	return diskMessage{
		ID:      uint64(message.ID),
		Author:  message.Author,
		Content: message.Content,
		Lang:    message.Lang,
		At:      message.CreatedAt.UnixNano(),
	}
}

func fromDiskMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(dm.ID),
		Author:    dm.Author,
		Content:   dm.Content,
		Lang:      dm.Lang,
		CreatedAt: time.Unix(0, dm.At).UTC(),
	}
}
