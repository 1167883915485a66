// Package search maintains a full-text index over the live chat view
// and answers /search queries from the client.
package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"vanish-chat/domain"
)

// Result is one search hit, resolved from stored fields.
type Result struct {
	ID   uuid.UUID
	Text string
}

// MessageIndex mirrors published snapshots into a Bluge index. It is a
// SnapshotSink: inserts and deletions both arrive through the same
// ordered-view notifications the UI consumes, so the index never gets
// ahead of the store.
type MessageIndex struct {
	log    *slog.Logger
	writer *bluge.Writer

	mu    sync.Mutex
	known map[string]map[uuid.UUID]struct{}
}

// NewMessageIndex opens an in-memory index. The index is rebuilt from
// the replayed snapshot on every fresh subscription, so nothing needs
// to survive a restart.
func NewMessageIndex(log *slog.Logger) (*MessageIndex, error) {
	writer, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return nil, err
	}
	return &MessageIndex{
		log:    log,
		writer: writer,
		known:  make(map[string]map[uuid.UUID]struct{}),
	}, nil
}

// Consume reconciles the index with the snapshot: upserts every present
// message and drops the ones that disappeared (vanished or deleted).
// Degraded snapshots are ignored, the index keeps its last good state.
func (m *MessageIndex) Consume(ctx context.Context, s domain.Snapshot) error {
	if s.Degraded {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	known := m.known[s.OwnerID]
	if known == nil {
		known = make(map[uuid.UUID]struct{})
		m.known[s.OwnerID] = known
	}

	present := make(map[uuid.UUID]struct{}, len(s.Messages))
	for _, msg := range s.Messages {
		present[msg.ID] = struct{}{}
		if _, ok := known[msg.ID]; ok {
			continue
		}
		doc := bluge.NewDocument(msg.ID.String()).
			AddField(bluge.NewTextField("text", msg.Text).StoreValue()).
			AddField(bluge.NewKeywordField("owner", msg.OwnerID))
		if err := m.writer.Update(doc.ID(), doc); err != nil {
			m.log.Warn("Index update failed", "id", msg.ID, "error", err)
			continue
		}
		known[msg.ID] = struct{}{}
	}

	for id := range known {
		if _, ok := present[id]; ok {
			continue
		}
		if err := m.writer.Delete(bluge.Identifier(id.String())); err != nil {
			m.log.Warn("Index delete failed", "id", id, "error", err)
			continue
		}
		delete(known, id)
	}
	return nil
}

// Search runs a match query over the owner's indexed messages.
func (m *MessageIndex) Search(ctx context.Context, ownerID, terms string, limit int) ([]Result, error) {
	reader, err := m.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("text")).
		AddMust(bluge.NewTermQuery(ownerID).SetField("owner"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var results []Result
	for match, err := iter.Next(); match != nil; match, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		var res Result
		if err := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				res.ID, _ = uuid.Parse(string(value))
			case "text":
				res.Text = string(value)
			}
			return true
		}); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Close releases the underlying index writer.
func (m *MessageIndex) Close() error {
	return m.writer.Close()
}
