//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	badgerpb "github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"

	"vanish-chat/domain"
	"vanish-chat/errors"
)

type IMessageRepository interface {
	Create(msg domain.Message) (domain.Message, error)
	Delete(ownerID string, id uuid.UUID) error
	List(ownerID string) ([]domain.Message, error)
	Watch(ctx context.Context, ownerID string) <-chan struct{}
}

// MessageRepository persists chat messages in BadgerDB and exposes a
// live change feed per owner on top of Badger's prefix subscriptions.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the stored JSON shape of a message record.
type diskMessage struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Text        string `json:"text"`
	At          int64  `json:"at"`
	VanishAfter *int64 `json:"vanish_after,omitempty"`
}

// messageKey is formatted as "msg:{owner}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order equals CreatedAt order).
//  2. Break ties deterministically via the UUID suffix when two messages
//     share the same nanosecond, stable across re-subscription.
func messageKey(ownerID string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", ownerID, at.UnixNano(), id))
}

// indexKey maps a message ID back to its primary key, so deletes do not
// need the creation timestamp.
func indexKey(ownerID string, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("id:%s:%s", ownerID, id))
}

func ownerPrefix(ownerID string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", ownerID))
}

// Create assigns a fresh ID and persists the record together with its
// ID index entry in a single transaction. The returned message carries
// the store-assigned ID.
func (m MessageRepository) Create(msg domain.Message) (domain.Message, error) {
	msg.ID = uuid.New()

	data, err := json.Marshal(fromDomain(msg))
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	key := messageKey(msg.OwnerID, msg.CreatedAt, msg.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(indexKey(msg.OwnerID, msg.ID), key)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	return msg, nil
}

// Delete removes a message and its index entry. A missing record yields
// ErrNotFound so callers can decide to treat it as an acknowledgement.
func (m MessageRepository) Delete(ownerID string, id uuid.UUID) error {
	idx := indexKey(ownerID, id)
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(idx)
		if err == badger.ErrKeyNotFound {
			return errors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
		}

		var primary []byte
		if err := item.Value(func(val []byte) error {
			primary = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
		}

		if err := txn.Delete(primary); err != nil {
			return fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
		}
		return txn.Delete(idx)
	})
}

// List returns every message of one owner ordered by CreatedAt ascending.
// Thanks to the padded timestamp in the key, a forward prefix scan is
// already in display order.
func (m MessageRepository) List(ownerID string) ([]domain.Message, error) {
	var raw [][]byte
	prefix := ownerPrefix(ownerID)

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				raw = append(raw, append([]byte(nil), val...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	messages := make([]domain.Message, 0, len(raw))
	for _, b := range raw {
		var dm diskMessage
		if err := json.Unmarshal(b, &dm); err != nil {
			return nil, fmt.Errorf("unmarshal failed: %w", err)
		}
		msg, err := toDomain(dm)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Watch emits a signal whenever the owner's message set changes, built
// on Badger's native prefix subscription. Notifications are coalesced:
// a pending signal absorbs later ones until the consumer drains it.
// The channel is closed when ctx is cancelled or the subscription dies.
func (m MessageRepository) Watch(ctx context.Context, ownerID string) <-chan struct{} {
	changes := make(chan struct{}, 1)
	matches := []badgerpb.Match{{Prefix: ownerPrefix(ownerID)}}

	go func() {
		defer close(changes)
		err := m.db.Subscribe(ctx, func(kv *badger.KVList) error {
			select {
			case changes <- struct{}{}:
			default:
			}
			return nil
		}, matches)

		if err != nil && ctx.Err() == nil {
			m.log.Error("Message subscription terminated", "owner", ownerID, "error", err)
		}
	}()
	return changes
}

func fromDomain(msg domain.Message) diskMessage {
	dm := diskMessage{
		ID:      msg.ID.String(),
		OwnerID: msg.OwnerID,
		Text:    msg.Text,
		At:      msg.CreatedAt.UnixNano(),
	}
	if msg.VanishAfter != nil {
		ns := msg.VanishAfter.Nanoseconds()
		dm.VanishAfter = &ns
	}
	return dm
}

func toDomain(dm diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("corrupt message id %q: %w", dm.ID, err)
	}
	msg := domain.Message{
		ID:        id,
		OwnerID:   dm.OwnerID,
		Text:      dm.Text,
		CreatedAt: time.Unix(0, dm.At).UTC(),
	}
	if dm.VanishAfter != nil {
		d := time.Duration(*dm.VanishAfter)
		msg.VanishAfter = &d
	}
	return msg, nil
}
