package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
	"chat-relay/errors"
)

type IMessageRepository interface {
	Append(sender, receiver, body string) (domain.Message, error)
	History(a, b string) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	mu     sync.Mutex
	lastAt time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// messageKey is formatted as "msg:{roomKey}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if
//     two messages are assigned the same nanosecond.
func messageKey(roomKey string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", roomKey, at.UnixNano(), id))
}

// Append assigns the timestamp and persists the message durably,
// returning the stored record. Timestamps are clamped against the last
// assigned one so createdAt is non-decreasing across appends even if the
// wall clock steps backwards.
func (m *MessageRepository) Append(sender, receiver, body string) (domain.Message, error) {
	if body == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}

	m.mu.Lock()
	at := time.Now().UTC()
	if at.Before(m.lastAt) {
		at = m.lastAt
	}
	m.lastAt = at
	m.mu.Unlock()

	message := domain.Message{
		ID:        uuid.New(),
		Sender:    sender,
		Receiver:  receiver,
		Body:      body,
		CreatedAt: at,
	}
	data, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	key := messageKey(domain.RoomKey(sender, receiver), at, message.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// History retrieves every message exchanged between the unordered pair
// {a, b} using a forward prefix scan. Thanks to the padded timestamp in
// the key, messages come back sorted ascending by createdAt with no
// in-memory sort. No pagination: unbounded history is an accepted scale
// limitation of this core.
func (m *MessageRepository) History(a, b string) ([]domain.Message, error) {
	prefix := []byte("msg:" + domain.RoomKey(a, b) + ":")

	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				raw = append(raw, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(raw))
	for _, data := range raw {
		var message domain.Message
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	m.log.Debug("history fetched", "room", domain.RoomKey(a, b), "count", len(messages))
	return messages, nil
}
